// Package cli implements the shelfctl admin commands.
package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/AarushDarne/shelftrack-webapp/pkg/config"
	"github.com/AarushDarne/shelftrack-webapp/pkg/db"
	"github.com/AarushDarne/shelftrack-webapp/pkg/logger"
	"github.com/AarushDarne/shelftrack-webapp/pkg/migrate"
)

// ValidFormats are the accepted --format values.
var ValidFormats = []string{"text", "json"}

// Runtime is what a command needs from the environment.
type Runtime struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *db.Client
}

// Opener builds a Runtime; the returned func releases it.
type Opener func(ctx context.Context) (*Runtime, func(), error)

// RootOptions holds global flags and the runtime factory.
type RootOptions struct {
	Format string
	Open   Opener
}

// NewRootCommand creates shelfctl. A nil opener reads the environment the
// same way the api server does.
func NewRootCommand(open Opener) *cobra.Command {
	if open == nil {
		open = OpenFromEnv
	}
	opts := &RootOptions{Open: open}

	cmd := &cobra.Command{
		Use:   "shelfctl",
		Short: "ShelfTrack admin tooling",
		Long:  "Seed catalogs, report overdue loans and list borrower history against the ShelfTrack database.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")

	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewOverdueCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	return cmd
}

// OpenFromEnv loads .env and config, then connects to the database.
func OpenFromEnv(ctx context.Context) (*Runtime, func(), error) {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	cfg.Service.Kind = "shelfctl"
	logg := logger.New(logger.Options{
		ServiceName: "shelfctl",
		Format:      cfg.App.LogFormat,
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})
	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := migrate.MaybeRunDev(ctx, cfg, logg, client); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("dev migrations: %w", err)
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}
	return &Runtime{Config: cfg, Logger: logg, DB: client}, closeFn, nil
}
