package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/junchih/strand/pkg/config"
)

var (
	flagConfig   string
	flagDebug    bool
	flagNoStream bool
	flagApprove  bool
	flagAgents   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "strand",
		Short: "Streaming tool-use agent for the terminal",
		Long: `strand drives a conversation with an LLM that can call tools:
reading and editing files, running commands, and spawning nested
agents for independent subtasks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path (default ~/.strand/config.json)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagNoStream, "no-stream", false, "use single-shot completions instead of streaming")
	rootCmd.PersistentFlags().BoolVar(&flagApprove, "approve", false, "ask before applying file changes")
	rootCmd.PersistentFlags().StringVar(&flagAgents, "agents", "", "agent definitions file (YAML)")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newChatCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig resolves the config file, applies command-line overrides
// and installs the logger.
func loadConfig() (*config.Config, error) {
	configPath := flagConfig
	if configPath == "" {
		var err error
		configPath, err = config.GetDefaultConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get config path: %w", err)
		}
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if flagDebug {
		if cfg.Log == nil {
			cfg.Log = config.DefaultLogConfig()
		}
		cfg.Log.Level = "debug"
	}
	if flagApprove {
		cfg.RequireApproval = true
	}
	if flagAgents != "" {
		cfg.AgentsPath = flagAgents
	}

	if err := cfg.Log.SetupLogger(); err != nil {
		return nil, err
	}
	slog.Debug("configuration loaded", "path", configPath, "model", cfg.Model.ID)

	return cfg, nil
}
