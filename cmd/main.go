package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"docsum/internal/config"
	"docsum/internal/loader"
	"docsum/internal/metrics"
	"docsum/internal/pipeline"
	"docsum/internal/summarizer"

	"github.com/spf13/cobra"
)

var (
	version    = "dev"
	dotenvPath string
)

var rootCmd = &cobra.Command{
	Use:   "docsum",
	Short: "docsum - AI Content Summarizer",
	Long: `docsum summarizes YouTube videos, websites and PDF documents with an LLM.

  docsum serve                                   Start the web UI, JSON API and optional Telegram bot
  docsum summarize https://youtu.be/<id>         Summarize a link once and print the result
  docsum summarize --pdf ./paper.pdf             Summarize a local PDF document`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dotenvPath, "env-file", ".env", "Path to an optional .env file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.LoadConfig(dotenvPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}

	return cfg, nil
}

func newLogger(level slog.Level) *slog.Logger {
	return newLoggerTo(os.Stdout, level)
}

func newLoggerTo(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func newLoaderSet(cfg config.Config, log *slog.Logger) *loader.Set {
	return loader.NewSet(loader.Options{
		FetchTimeout:       cfg.FetchTimeout,
		InsecureSkipVerify: cfg.WebInsecureSkipVerify,
		YouTubeLanguages:   cfg.YouTubeLanguages,
		SplitThreshold:     cfg.SplitThreshold,
		ChunkSize:          cfg.ChunkSize,
		ChunkOverlap:       cfg.ChunkOverlap,
	}, log)
}

// initSummarizer returns nil when the API key is missing so that requests
// fail with a readable message instead of the process refusing to start.
func initSummarizer(ctx context.Context, cfg config.Config, log *slog.Logger) (summarizer.Summarizer, error) {
	s, err := summarizer.NewOpenAISummarizer(summarizer.Options{
		APIKey:               cfg.GroqAPIKey,
		BaseURL:              cfg.LLMBaseURL,
		Model:                cfg.LLMModel,
		MaxOutputTokens:      cfg.LLMMaxOutputTokens,
		MaxOutputTokensLimit: cfg.LLMMaxOutputTokensLimit,
		Temperature:          cfg.LLMTemperature,
		Words:                cfg.SummaryWords,
	})
	if errors.Is(err, summarizer.ErrNotConfigured) {
		log.WarnContext(ctx, "GROQ_API_KEY is missing so summaries will fail",
			"envVar", "GROQ_API_KEY")

		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create summarizer: %w", err)
	}

	log.InfoContext(ctx, "Summarizer is initialized",
		"baseURL", cfg.LLMBaseURL,
		"model", cfg.LLMModel)

	return s, nil
}

func pipelineOptions(cfg config.Config) pipeline.Options {
	return pipeline.Options{
		CacheMaxEntries: cfg.CacheMaxEntries,
		CacheTTL:        cfg.CacheTTL,
		MaxUploadBytes:  cfg.MaxUploadBytes,
	}
}

func newService(
	cfg config.Config,
	s summarizer.Summarizer,
	store pipeline.Store,
	m *metrics.Metrics,
	log *slog.Logger,
) *pipeline.Service {
	return pipeline.New(newLoaderSet(cfg, log), s, store, m, pipelineOptions(cfg), log)
}
