package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	Version   string
	Commit    string
	BuildDate string
)

var rootCmd = &cobra.Command{
	Use:   "bonusd",
	Short: "Operator bonus calculation service",
	Long: `bonusd computes rule-based operator bonuses from novelty records and
serves them over HTTP through a hybrid redis/in-memory cache.

Example usage:
  bonusd serve                          # Start the HTTP API
  bonusd serve --port 3000              # Listen on another port
  bonusd bonuses --user A123 --year 2025  # One-off query from the CLI`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
}
