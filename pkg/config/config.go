package config

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/junchih/strand/pkg/agent"
	"github.com/junchih/strand/pkg/llm"
)

// Config represents the application configuration.
type Config struct {
	// Model configuration
	Model ModelConfig `json:"model"`

	// History bounds for the conversation window
	History *HistoryConfig `json:"history,omitempty"`

	// Concurrency configuration
	Concurrency *ConcurrencyConfig `json:"concurrency,omitempty"`

	// Logging configuration
	Log *LogConfig `json:"log,omitempty"`

	// AgentsPath points at the YAML file defining spawnable agents.
	AgentsPath string `json:"agentsPath,omitempty"`

	// RequireApproval routes file mutations through the approval gate.
	RequireApproval bool `json:"requireApproval,omitempty"`
}

// ModelConfig contains model configuration.
type ModelConfig struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	BaseURL  string `json:"baseUrl"`
	API      string `json:"api"`
}

// HistoryConfig bounds the conversation history.
type HistoryConfig struct {
	MaxMessages int `json:"maxMessages"` // message count trigger
	MaxTokens   int `json:"maxTokens"`   // estimated token trigger
	KeepRecent  int `json:"keepRecent"`  // recent messages kept on trim
}

// ConcurrencyConfig contains concurrency control settings.
type ConcurrencyConfig struct {
	MaxConcurrentTools int `json:"maxConcurrentTools"` // Maximum tools running concurrently
	ToolTimeout        int `json:"toolTimeout"`        // Tool execution timeout in seconds
	QueueTimeout       int `json:"queueTimeout"`       // Queue wait timeout in seconds
}

// LogConfig contains logging configuration.
type LogConfig struct {
	Level string `json:"level,omitempty"` // Log level: debug, info, warn, error
	File  string `json:"file,omitempty"`  // Log file path (empty = stderr only)
}

// DefaultHistoryConfig returns default history bounds.
func DefaultHistoryConfig() *HistoryConfig {
	return &HistoryConfig{
		MaxMessages: 50,
		MaxTokens:   8000,
		KeepRecent:  10,
	}
}

// DefaultConcurrencyConfig returns default concurrency configuration.
func DefaultConcurrencyConfig() *ConcurrencyConfig {
	return &ConcurrencyConfig{
		MaxConcurrentTools: 3,
		ToolTimeout:        30,
		QueueTimeout:       60,
	}
}

// DefaultLogConfig returns default logging configuration.
func DefaultLogConfig() *LogConfig {
	homeDir, _ := os.UserHomeDir()
	return &LogConfig{
		Level: "info",
		File:  filepath.Join(homeDir, ".strand", "strand.log"),
	}
}

// SetupLogger installs the default slog logger per the log config.
// Logs go to the configured file when set, otherwise to stderr.
func (c *LogConfig) SetupLogger() error {
	if c == nil {
		c = DefaultLogConfig()
	}

	var out io.Writer = os.Stderr
	if c.File != "" {
		if err := os.MkdirAll(filepath.Dir(c.File), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(c.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		out = f
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: ParseLogLevel(c.Level),
	})
	slog.SetDefault(slog.New(handler))
	return nil
}

// ParseLogLevel maps a level name to a slog level, defaulting to info.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadConfig loads configuration from file and merges with environment
// variables. Environment variables take precedence over file values.
func LoadConfig(configPath string) (*Config, error) {
	cfg := &Config{
		Model: ModelConfig{
			ID:       getEnv("STRAND_MODEL", "claude-sonnet-4-20250514"),
			Provider: "anthropic",
			BaseURL:  getEnv("STRAND_BASE_URL", "https://api.anthropic.com/v1"),
			API:      "anthropic-messages",
		},
		History:     DefaultHistoryConfig(),
		Concurrency: DefaultConcurrencyConfig(),
		Log:         DefaultLogConfig(),
	}

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// File values override defaults.
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if val := os.Getenv("STRAND_MODEL"); val != "" {
		cfg.Model.ID = val
	}
	if val := os.Getenv("STRAND_BASE_URL"); val != "" {
		cfg.Model.BaseURL = val
	}
	if val := os.Getenv("STRAND_AGENTS_PATH"); val != "" {
		cfg.AgentsPath = val
	}

	return cfg, nil
}

// SaveConfig saves configuration to file.
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetLLMModel converts ModelConfig to llm.Model.
func (c *Config) GetLLMModel() llm.Model {
	return llm.Model{
		ID:       c.Model.ID,
		Provider: c.Model.Provider,
		BaseURL:  c.Model.BaseURL,
		API:      c.Model.API,
	}
}

// GetHistoryConfig converts the history section for the history manager.
func (c *Config) GetHistoryConfig() agent.HistoryConfig {
	h := c.History
	if h == nil {
		h = DefaultHistoryConfig()
	}
	return agent.HistoryConfig{
		MaxMessages: h.MaxMessages,
		MaxTokens:   h.MaxTokens,
		KeepRecent:  h.KeepRecent,
	}
}

// GetDefaultConfigPath returns the default config file path.
func GetDefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".strand", "config.json"), nil
}

// GetDefaultSessionsDir returns the default directory for persisted
// chat sessions.
func GetDefaultSessionsDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".strand", "sessions"), nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
