package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"realestate-crm/backend/internal/config"
	"realestate-crm/backend/internal/logging"
	"realestate-crm/backend/internal/repository"
)

func main() {
	if err := newSeedCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newSeedCmd() *cobra.Command {
	var configPath, fixturePath string

	cmd := &cobra.Command{
		Use:          "crm-seed",
		Short:        "Load demo agents, leads, transactions and campaigns into the CRM database",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			logger := logging.New(os.Stdout, cfg.Log.Level)
			if cfg.DB.Driver != "postgres" {
				return fmt.Errorf("seeding needs a persistent store; db.driver is %q", cfg.DB.Driver)
			}

			fixture, err := LoadFixture(fixturePath)
			if err != nil {
				return err
			}

			pool, err := pgxpool.New(ctx, cfg.DSN())
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer pool.Close()

			store := repository.NewPostgresStore(pool, time.Now)
			if err := store.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("ensure schema: %w", err)
			}

			sum, err := Seed(ctx, store, fixture, time.Now())
			if err != nil {
				return err
			}
			logger.Info("Seeding complete",
				"users", sum.Users,
				"clients", sum.Clients,
				"leads", sum.Leads,
				"transactions", sum.Transactions,
				"milestones", sum.Milestones,
				"campaigns", sum.Campaigns,
			)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	cmd.Flags().StringVarP(&fixturePath, "file", "f", "", "Fixture YAML (default: built-in demo data)")
	return cmd
}
