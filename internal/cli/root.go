// Package cli defines the cobra commands for the subtitle relay.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/live-subtitle/backend/internal/config"
)

var (
	configPath string
	version    = "dev" // set via ldflags at build time
)

var rootCmd = &cobra.Command{
	Use:   "subtitle-relay",
	Short: "Live caption translation relay",
	Long: `subtitle-relay receives captions scraped from meeting pages, translates
them and pushes them back to the page overlay. It also queues and watches
transcription jobs and keeps their notifications.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// backendURL is where job status and notifications live: the configured
// backend, or a relay running locally.
func backendURL(cfg *config.Config) string {
	if cfg.BackendURL != "" {
		return cfg.BackendURL
	}
	return fmt.Sprintf("http://localhost:%d", cfg.Port)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a yaml config file (default $"+config.EnvConfigFile+")")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(translateCmd)
	rootCmd.AddCommand(notificationsCmd)
}
