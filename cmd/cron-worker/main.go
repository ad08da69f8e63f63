package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/AarushDarne/shelftrack-webapp/internal/cron"
	"github.com/AarushDarne/shelftrack-webapp/internal/loans"
	"github.com/AarushDarne/shelftrack-webapp/internal/notify"
	"github.com/AarushDarne/shelftrack-webapp/internal/overdue"
	"github.com/AarushDarne/shelftrack-webapp/pkg/config"
	"github.com/AarushDarne/shelftrack-webapp/pkg/db"
	"github.com/AarushDarne/shelftrack-webapp/pkg/instance"
	"github.com/AarushDarne/shelftrack-webapp/pkg/logger"
	"github.com/AarushDarne/shelftrack-webapp/pkg/metrics"
	"github.com/AarushDarne/shelftrack-webapp/pkg/migrate"
	"github.com/AarushDarne/shelftrack-webapp/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Format:      cfg.App.LogFormat,
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	circulationMetrics := metrics.NewCirculationMetrics(prometheus.DefaultRegisterer)
	sweepMetrics := metrics.NewSweepMetrics(prometheus.DefaultRegisterer)

	sweepParams := cron.OverdueSweepJobParams{
		Logger:     logg,
		Loans:      loans.NewRepository(dbClient.DB()),
		Calculator: overdue.NewCalculator(cfg.Circulation.FineRate(), nil),
		Notifier:   notify.Nop{},
		Gauge:      circulationMetrics,
	}
	var lock cron.Lock = &cron.LocalLock{}
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()

		lock, err = cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker"), cfg.Cron.LockTTL)
		if err != nil {
			logg.Error(context.Background(), "failed to create cron lock", err)
			os.Exit(1)
		}
		publisher, err := notify.NewPublisher(notify.PublisherParams{
			Publisher:      redisClient,
			HoldChannel:    cfg.Notify.HoldChannel,
			OverdueChannel: cfg.Notify.OverdueChannel,
			Timeout:        cfg.Notify.Timeout,
			Logger:         logg,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to create notifier", err)
			os.Exit(1)
		}
		sweepParams.Notifier = publisher
		sweepParams.Deduper = redisClient
	} else {
		logg.Warn(context.Background(), "redis not configured; using a process-local lock and dropping overdue notices")
	}

	sweep, err := cron.NewOverdueSweepJob(sweepParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create overdue sweep job", err)
		os.Exit(1)
	}
	registry := cron.NewRegistry(sweep)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  sweepMetrics,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
		"jobs":        registry.Names(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
