package migrate

import (
	"context"
	"fmt"

	"github.com/AarushDarne/shelftrack-webapp/pkg/config"
	"github.com/AarushDarne/shelftrack-webapp/pkg/db"
	"github.com/AarushDarne/shelftrack-webapp/pkg/logger"
)

// MaybeRunDev applies the embedded migrations at startup when running in dev
// with SHELFTRACK_AUTO_MIGRATE set. Production schemas move only through
// cmd/migrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	runner, err := NewRunner(sqlDB, client.Dialect(), Embedded())
	if err != nil {
		return err
	}

	ctx = logg.WithField(ctx, "dialect", client.Dialect())
	applied, err := runner.Up(ctx)
	if err != nil {
		return err
	}
	version, err := runner.Version(ctx)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	logg.Info(logg.WithFields(ctx, map[string]any{
		"applied": len(applied),
		"version": version,
	}), "dev migrations applied")
	return nil
}
