// Package config loads the healthagent binary configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type LLMConfig struct {
	APIKey  string `yaml:"api_key" json:"api_key"`
	BaseURL string `yaml:"base_url" json:"base_url"`
	Model   string `yaml:"model" json:"model"`
}

// Enabled reports whether an LLM-backed extractor can be built.
func (c LLMConfig) Enabled() bool {
	return c.APIKey != "" && c.Model != ""
}

type Config struct {
	LLM LLMConfig `yaml:"llm" json:"llm"`
	// ExtractorURL points at a remote extraction service. Optional.
	ExtractorURL string `yaml:"extractor_url" json:"extractor_url"`
	// LocalFallback appends the rule-based extractor after the LLM or remote
	// extractor. Without either, the rules are always used.
	LocalFallback bool   `yaml:"local_fallback" json:"local_fallback"`
	DBPath        string `yaml:"db_path" json:"db_path"`
	Listen        string `yaml:"listen" json:"listen"`
	LogLevel      string `yaml:"log_level" json:"log_level"`

	ExtractTimeout Duration `yaml:"extract_timeout" json:"extract_timeout"`
	CommitTimeout  Duration `yaml:"commit_timeout" json:"commit_timeout"`
	MaxFailures    int      `yaml:"max_failures" json:"max_failures"`
	HistoryWindow  int      `yaml:"history_window" json:"history_window"`
	// ReplyDelay is a cosmetic pause before REPL replies.
	ReplyDelay Duration `yaml:"reply_delay" json:"reply_delay"`
}

func DefaultConfig() *Config {
	return &Config{
		LLM:            LLMConfig{Model: "gpt-4o-mini"},
		DBPath:         "./data/healthagent.db",
		Listen:         ":8080",
		LogLevel:       "info",
		ExtractTimeout: Duration(30 * time.Second),
		CommitTimeout:  Duration(10 * time.Second),
		MaxFailures:    3,
		HistoryWindow:  5,
	}
}

// Load reads path (YAML or JSON by extension) over the defaults and applies
// environment overrides. A missing file yields the defaults. A .env file in
// the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env", "error", err)
	}
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			slog.Debug("Config file not found, using defaults", "path", path)
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := decode(path, data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return sonic.Unmarshal(data, cfg)
	case ".yaml", ".yml", "":
		return yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if url := os.Getenv("OPENAI_BASE_URL"); url != "" {
		c.LLM.BaseURL = url
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if url := os.Getenv("HEALTHAGENT_EXTRACTOR_URL"); url != "" {
		c.ExtractorURL = url
	}
	if path := os.Getenv("HEALTHAGENT_DB"); path != "" {
		c.DBPath = path
	}
	if addr := os.Getenv("HEALTHAGENT_LISTEN"); addr != "" {
		c.Listen = addr
	}
	if level := os.Getenv("HEALTHAGENT_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	envBool("HEALTHAGENT_LOCAL_FALLBACK", &c.LocalFallback)
	envDuration("HEALTHAGENT_EXTRACT_TIMEOUT", &c.ExtractTimeout)
	envDuration("HEALTHAGENT_COMMIT_TIMEOUT", &c.CommitTimeout)
	envDuration("HEALTHAGENT_REPLY_DELAY", &c.ReplyDelay)
	envInt("HEALTHAGENT_MAX_FAILURES", &c.MaxFailures)
	envInt("HEALTHAGENT_HISTORY_WINDOW", &c.HistoryWindow)
}

func envBool(key string, dst *bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		*dst = true
	case "0", "false", "no", "off":
		*dst = false
	}
}

func envDuration(key string, dst *Duration) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		slog.Warn("Ignoring invalid duration", "key", key, "value", value)
		return
	}
	*dst = Duration(d)
}

func envInt(key string, dst *int) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		slog.Warn("Ignoring invalid integer", "key", key, "value", value)
		return
	}
	*dst = n
}

// Validate checks ranges and required fields.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path cannot be empty")
	}
	if c.ExtractTimeout <= 0 {
		return fmt.Errorf("extract_timeout must be > 0")
	}
	if c.CommitTimeout <= 0 {
		return fmt.Errorf("commit_timeout must be > 0")
	}
	if c.MaxFailures <= 0 {
		return fmt.Errorf("max_failures must be > 0")
	}
	if c.HistoryWindow < 0 {
		return fmt.Errorf("history_window must be >= 0")
	}
	if c.ReplyDelay < 0 {
		return fmt.Errorf("reply_delay must be >= 0")
	}
	if c.LLM.APIKey != "" && c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required when an API key is set")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps debug/info/warn/error to a slog level. Empty means info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q", level)
	}
}
