package main

import (
	"fmt"
	"os"

	"LPRange/internal/di"
	"LPRange/pkg/config"
	"LPRange/pkg/server"

	"github.com/spf13/cobra"
)

var configPath string

// rootCmd is the base command for the lprange CLI.
var rootCmd = &cobra.Command{
	Use:   "lprange",
	Short: "Concentrated liquidity range evaluator",
	Long: `lprange estimates the probability that a log-normal price stays inside a
liquidity range over several horizons and turns it into a Bayesian
provide-liquidity decision.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (defaults only when empty)")
}

// loadApp reads the configuration and wires the application graph.
func loadApp() (*config.Config, *server.App, func(), error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("config load failed: %w", err)
	}
	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("app initialization failed: %w", err)
	}
	return cfg, app, cleanup, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
