package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"growthops/internal/config"

	_ "growthops/docs"
)

var (
	configPath string
	envOnly    bool
)

var rootCmd = &cobra.Command{
	Use:           "growthops",
	Short:         "Tenant strategy runner",
	Long:          "growthops runs tenant growth strategies: it executes their active plugins, records the audit trail and serves the HTTP API.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	defPath := os.Getenv("GO_CONFIG")
	if defPath == "" {
		defPath = "config/config.yaml"
	}
	defEnvOnly := false
	if raw := os.Getenv("GO_ENV_ONLY"); raw != "" {
		defEnvOnly = strings.EqualFold(raw, "true") || raw == "1"
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defPath, "path to the YAML config (GO_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&envOnly, "env-only", defEnvOnly, "read configuration from GO_* env vars only (GO_ENV_ONLY)")

	rootCmd.AddCommand(serveCmd, migrateCmd, executeCmd, reapCmd)
}

// loadConfig reads the config and refuses to continue without a database.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath, envOnly)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.RequireDB(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
