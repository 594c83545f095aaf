package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	GroqAPIKey              string  `env:"GROQ_API_KEY"`
	LLMBaseURL              string  `env:"LLM_BASE_URL"                envDefault:"https://api.groq.com/openai/v1/"`
	LLMModel                string  `env:"LLM_MODEL"                   envDefault:"gemma2-9b-it"`
	LLMMaxOutputTokens      int64   `env:"LLM_MAX_OUTPUT_TOKENS"       envDefault:"1024"`
	LLMMaxOutputTokensLimit int64   `env:"LLM_MAX_OUTPUT_TOKENS_LIMIT" envDefault:"4096"`
	LLMTemperature          float64 `env:"LLM_TEMPERATURE"             envDefault:"0.3"`
	SummaryWords            int     `env:"SUMMARY_WORDS"               envDefault:"300"`

	FetchTimeout          time.Duration `env:"FETCH_TIMEOUT"            envDefault:"30s"`
	WebInsecureSkipVerify bool          `env:"WEB_INSECURE_SKIP_VERIFY" envDefault:"false"`
	YouTubeLanguages      []string      `env:"YOUTUBE_LANGUAGES"        envDefault:"en"`
	MaxUploadBytes        int64         `env:"MAX_UPLOAD_BYTES"         envDefault:"20971520"`
	SplitThreshold        int           `env:"SPLIT_THRESHOLD"          envDefault:"10000"`
	ChunkSize             int           `env:"CHUNK_SIZE"               envDefault:"4000"`
	ChunkOverlap          int           `env:"CHUNK_OVERLAP"            envDefault:"200"`

	CacheMaxEntries int           `env:"CACHE_MAX_ENTRIES" envDefault:"256"`
	CacheTTL        time.Duration `env:"CACHE_TTL"         envDefault:"1h"`
	RateLimitRPS    float64       `env:"RATE_LIMIT_RPS"    envDefault:"0.2"`
	RateLimitBurst  int           `env:"RATE_LIMIT_BURST"  envDefault:"3"`

	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	TelegramToken string  `env:"TELEGRAM_TOKEN"`
	AllowedUsers  []int64 `env:"ALLOWED_USERS"`

	DBPath           string        `env:"DB_PATH"            envDefault:"docsum.sqlite"`
	HistoryRetention time.Duration `env:"HISTORY_RETENTION"  envDefault:"720h"`
	HistoryPruneSpec string        `env:"HISTORY_PRUNE_SPEC" envDefault:"0 * * * *"`
}

// LoadConfig reads an optional .env file and then the process environment.
// Variables already present in the environment win over the file.
func LoadConfig(dotenvPaths ...string) (Config, error) {
	if err := godotenv.Load(dotenvPaths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load dotenv: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate: %w", err)
	}

	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if c.ChunkSize <= 0 {
		errs = append(errs, errors.New("CHUNK_SIZE must be positive"))
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		errs = append(errs, errors.New("CHUNK_OVERLAP must be in [0, CHUNK_SIZE)"))
	}
	if c.LLMMaxOutputTokens <= 0 || c.LLMMaxOutputTokensLimit < c.LLMMaxOutputTokens {
		errs = append(errs, errors.New("LLM_MAX_OUTPUT_TOKENS must be positive and not above LLM_MAX_OUTPUT_TOKENS_LIMIT"))
	}
	if c.SummaryWords <= 0 {
		errs = append(errs, errors.New("SUMMARY_WORDS must be positive"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must not be negative"))
	}

	return errors.Join(errs...)
}

func (c Config) TelegramEnabled() bool {
	return c.TelegramToken != ""
}
