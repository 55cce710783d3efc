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

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL",
		"HEALTHAGENT_EXTRACTOR_URL", "HEALTHAGENT_LOCAL_FALLBACK", "HEALTHAGENT_DB", "HEALTHAGENT_LISTEN", "HEALTHAGENT_LOG_LEVEL",
		"HEALTHAGENT_EXTRACT_TIMEOUT", "HEALTHAGENT_COMMIT_TIMEOUT", "HEALTHAGENT_REPLY_DELAY",
		"HEALTHAGENT_MAX_FAILURES", "HEALTHAGENT_HISTORY_WINDOW",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, 30*time.Second, cfg.ExtractTimeout.Std())
	assert.False(t, cfg.LLM.Enabled())
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", `
llm:
  api_key: sk-file
  model: gpt-4o
db_path: /tmp/h.db
listen: ":9090"
log_level: debug
extract_timeout: 5s
commit_timeout: 2
max_failures: 5
history_window: 3
reply_delay: 300ms
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-file", cfg.LLM.APIKey)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.True(t, cfg.LLM.Enabled())
	assert.Equal(t, "/tmp/h.db", cfg.DBPath)
	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, 5*time.Second, cfg.ExtractTimeout.Std())
	assert.Equal(t, 2*time.Second, cfg.CommitTimeout.Std())
	assert.Equal(t, 300*time.Millisecond, cfg.ReplyDelay.Std())
	assert.Equal(t, 5, cfg.MaxFailures)
	assert.Equal(t, 3, cfg.HistoryWindow)
}

func TestLoadJSON(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.json", `{"extractor_url":"http://localhost:7000/extract","extract_timeout":"12s","max_failures":2}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:7000/extract", cfg.ExtractorURL)
	assert.Equal(t, 12*time.Second, cfg.ExtractTimeout.Std())
	assert.Equal(t, 2, cfg.MaxFailures)
	assert.Equal(t, "./data/healthagent.db", cfg.DBPath)
}

func TestLoadRejectsBadInput(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeFile(t, "config.toml", `listen = ":1"`))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "config.yaml", "extract_timeout: soon\n"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "config.yaml", "max_failures: 0\n"))
	assert.ErrorContains(t, err, "max_failures")

	_, err = Load(writeFile(t, "config.yaml", "log_level: loud\n"))
	assert.ErrorContains(t, err, "log_level")
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("OPENAI_BASE_URL", "https://llm.internal/v1")
	t.Setenv("OPENAI_MODEL", "qwen-plus")
	t.Setenv("HEALTHAGENT_DB", ":memory:")
	t.Setenv("HEALTHAGENT_EXTRACT_TIMEOUT", "45s")
	t.Setenv("HEALTHAGENT_MAX_FAILURES", "7")
	t.Setenv("HEALTHAGENT_HISTORY_WINDOW", "not-a-number")

	path := writeFile(t, "config.yaml", "llm:\n  api_key: sk-file\nhistory_window: 2\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
	assert.Equal(t, "https://llm.internal/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "qwen-plus", cfg.LLM.Model)
	assert.Equal(t, ":memory:", cfg.DBPath)
	assert.Equal(t, 45*time.Second, cfg.ExtractTimeout.Std())
	assert.Equal(t, 7, cfg.MaxFailures)
	assert.Equal(t, 2, cfg.HistoryWindow, "invalid env values are ignored")
	assert.False(t, cfg.LocalFallback)
}

func TestLocalFallbackIsOptIn(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeFile(t, "config.yaml", "extractor_url: http://localhost:7000\n"))
	require.NoError(t, err)
	assert.False(t, cfg.LocalFallback)

	cfg, err = Load(writeFile(t, "config.yaml", "local_fallback: true\n"))
	require.NoError(t, err)
	assert.True(t, cfg.LocalFallback)

	t.Setenv("HEALTHAGENT_LOCAL_FALLBACK", "off")
	cfg, err = Load(writeFile(t, "config.yaml", "local_fallback: true\n"))
	require.NoError(t, err)
	assert.False(t, cfg.LocalFallback)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"", slog.LevelInfo, true},
		{"DEBUG", slog.LevelDebug, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"trace", slog.LevelInfo, false},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, err == nil, tt.in)
	}
}
