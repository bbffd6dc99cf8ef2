package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/propmanage/internal/config"
	"github.com/matthewbaird/propmanage/internal/logging"
	"github.com/matthewbaird/propmanage/internal/seed"
	"github.com/matthewbaird/propmanage/internal/server"
)

// openApp loads the configuration, initialises logging and opens the
// migrated database.
func openApp(ctx context.Context, configPath string) (*server.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logging.Init(cfg.LogLevel, "propmanage")
	return server.Open(ctx, cfg)
}

func serveCmd(configPath *string) *cobra.Command {
	var withSeed bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := openApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			if withSeed {
				if _, err := seed.Demo(ctx, app.Store, app.Manager); err != nil {
					return err
				}
			}
			return server.Run(ctx, app)
		},
	}
	cmd.Flags().BoolVar(&withSeed, "seed", false, "seed demo data into an empty database before serving")
	return cmd
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer app.Close()
			logging.Logger.WithField("database", app.Config.DatabaseURL).Info("database migrated")
			return nil
		},
	}
}

func seedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo buildings, tenants and a lease into an empty database",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			res, err := seed.Demo(cmd.Context(), app.Store, app.Manager)
			if err != nil {
				return err
			}
			if res.Skipped {
				fmt.Fprintln(cmd.OutOrStdout(), "database already has data, nothing seeded")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d buildings, %d rooms, %d tenants and lease %d\n",
				res.Buildings, res.Rooms, res.Tenants, res.Lease.ID)
			return nil
		},
	}
}
