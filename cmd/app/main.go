package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/y2kjoh23-ux/btc-compass-26/internal/di"
	"github.com/y2kjoh23-ux/btc-compass-26/pkg/config"
)

var configPath string

// rootCmd is the base command for the compass CLI
var rootCmd = &cobra.Command{
	Use:   "compass",
	Short: "Bitcoin fair-value and risk dashboard",
	Long: `compass evaluates a blended power-law fair-value model for bitcoin,
derives a composite risk score and regime from a price and sentiment observation,
and serves both over an HTTP API.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, snapshot collector and optional observation consumer",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadWithEnv(configPath)
		if err != nil {
			return fmt.Errorf("config load failed: %w", err)
		}

		// Wire DI: Initialize all dependencies
		app, err := di.InitializeApp(cfg)
		if err != nil {
			return fmt.Errorf("app initialization failed: %w", err)
		}

		// Run application (blocks until signal)
		return app.Run(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path")
	rootCmd.AddCommand(serveCmd, newEvalCmd(), newSeriesCmd())
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
