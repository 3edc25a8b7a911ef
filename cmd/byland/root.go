package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/byland-ai/byland/internal/config"
	"github.com/byland-ai/byland/internal/logging"
	"github.com/spf13/cobra"
)

// defaultConfigFile is read from the working directory when --config is not given.
const defaultConfigFile = "byland.yaml"

var rootCmd = &cobra.Command{
	Use:   "byland",
	Short: "Byland onboards hikers and plans multi-day trips",
	Long: `Byland runs a scripted onboarding conversation that builds a hiker profile,
and assembles trip plans from route, gear, weather and permit producers.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Override the log level (debug, info, warn, error)")
}

// loadConfig reads configuration and applies command-line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.NewFromConfig(cfg.Log.Level, cfg.Log.Format)
}
