package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "gemma2-9b-it", cfg.LLMModel)
	assert.Equal(t, "https://api.groq.com/openai/v1/", cfg.LLMBaseURL)
	assert.Equal(t, 300, cfg.SummaryWords)
	assert.Equal(t, 4000, cfg.ChunkSize)
	assert.Equal(t, 200, cfg.ChunkOverlap)
	assert.Equal(t, 10000, cfg.SplitThreshold)
	assert.Equal(t, []string{"en"}, cfg.YouTubeLanguages)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, "docsum.sqlite", cfg.DBPath)
	assert.False(t, cfg.TelegramEnabled())
}

func TestLoadConfigReadsDotenvWithoutOverridingEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "GROQ_API_KEY=from-file\nLLM_MODEL=from-file-model\nALLOWED_USERS=1,2\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("LLM_MODEL", "from-env-model")
	// godotenv sets variables on the process; register cleanup for them.
	t.Setenv("GROQ_API_KEY", "")
	require.NoError(t, os.Unsetenv("GROQ_API_KEY"))
	t.Setenv("ALLOWED_USERS", "")
	require.NoError(t, os.Unsetenv("ALLOWED_USERS"))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.GroqAPIKey)
	assert.Equal(t, "from-env-model", cfg.LLMModel)
	assert.Equal(t, []int64{1, 2}, cfg.AllowedUsers)
}

func TestLoadConfigRejectsInvalidChunking(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "100")
	t.Setenv("CHUNK_OVERLAP", "100")

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHUNK_OVERLAP")
}

func TestLoadConfigParsesLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}
