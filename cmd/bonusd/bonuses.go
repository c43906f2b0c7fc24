package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opsdash/bonus-engine/internal/config"
	"github.com/opsdash/bonus-engine/internal/service"
)

var (
	bonusesUser  string
	bonusesYear  int
	bonusesMonth int
)

var bonusesCmd = &cobra.Command{
	Use:   "bonuses",
	Short: "Query a user's bonuses from the command line",
	Long: `Computes the bonus view for one user without starting the HTTP
server. Useful for spot checks against the production feed.

Examples:
  bonusd bonuses --user A123
  bonusd bonuses --user A123 --year 2025
  bonusd bonuses --user A123 --year 2025 --month 6`,
	RunE: runBonuses,
}

func init() {
	rootCmd.AddCommand(bonusesCmd)
	bonusesCmd.Flags().StringVarP(&bonusesUser, "user", "u", "", "user code (required)")
	bonusesCmd.Flags().IntVarP(&bonusesYear, "year", "y", 0, "calendar year")
	bonusesCmd.Flags().IntVarP(&bonusesMonth, "month", "m", 0, "month 1-12 (requires --year)")
	bonusesCmd.MarkFlagRequired("user")
}

func runBonuses(cmd *cobra.Command, args []string) error {
	if bonusesMonth != 0 && bonusesYear == 0 {
		return fmt.Errorf("--month requires --year")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	svc, err := service.NewBonusService(
		service.WithRedisConfig(cfg.RedisAddr()),
		service.WithSourceConfig(cfg.Source.Backend, cfg.Source.DSN),
		service.WithLogging(false),
	)
	if err != nil {
		return fmt.Errorf("failed to create bonus service: %w", err)
	}
	if err := svc.Initialize(); err != nil {
		return err
	}
	defer svc.Stop()

	data, err := svc.GetUserBonuses(context.Background(), bonusesUser, bonusesYear, bonusesMonth)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
