package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/AarushDarne/shelftrack-webapp/api/controllers"
	"github.com/AarushDarne/shelftrack-webapp/api/routes"
	"github.com/AarushDarne/shelftrack-webapp/internal/engine"
	"github.com/AarushDarne/shelftrack-webapp/internal/journal"
	"github.com/AarushDarne/shelftrack-webapp/internal/notify"
	"github.com/AarushDarne/shelftrack-webapp/internal/persistence"
	"github.com/AarushDarne/shelftrack-webapp/pkg/config"
	"github.com/AarushDarne/shelftrack-webapp/pkg/db"
	"github.com/AarushDarne/shelftrack-webapp/pkg/instance"
	"github.com/AarushDarne/shelftrack-webapp/pkg/logger"
	"github.com/AarushDarne/shelftrack-webapp/pkg/metrics"
	"github.com/AarushDarne/shelftrack-webapp/pkg/migrate"
	"github.com/AarushDarne/shelftrack-webapp/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	} else {
		logg.Warn(context.Background(), "redis not configured; notices and idempotency keys disabled")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	circulationMetrics := metrics.NewCirculationMetrics(reg)

	repos := persistence.NewRepositories(dbClient.DB())
	queue := journal.NewQueue(circulationMetrics)
	sink, err := persistence.NewGormSink(dbClient, repos)
	if err != nil {
		logg.Error(context.Background(), "failed to create journal sink", err)
		os.Exit(1)
	}
	writer, err := journal.NewWriter(journal.WriterParams{
		Queue:         queue,
		Sink:          sink,
		Logger:        logg,
		Metrics:       circulationMetrics,
		FlushInterval: cfg.Journal.FlushInterval,
		BatchSize:     cfg.Journal.BatchSize,
		WriteTimeout:  cfg.Journal.WriteTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create journal writer", err)
		os.Exit(1)
	}

	var notifier notify.Notifier = notify.Nop{}
	if redisClient != nil {
		notifier, err = notify.NewPublisher(notify.PublisherParams{
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
	}

	params := engine.ParamsFromConfig(cfg.Circulation)
	params.Logger = logg
	params.Metrics = circulationMetrics
	params.Journal = queue
	params.Notifier = notifier
	params.History = repos.Activity
	eng, err := engine.New(params)
	if err != nil {
		logg.Error(context.Background(), "failed to build engine", err)
		os.Exit(1)
	}

	loader := persistence.NewLoader(repos, cfg.Circulation.ActivityTailSize)
	directory, err := loader.LoadDirectory(context.Background())
	if err != nil {
		logg.Error(context.Background(), "failed to load directory", err)
		os.Exit(1)
	}
	snapshot, err := loader.LoadSnapshot(context.Background())
	if err != nil {
		logg.Error(context.Background(), "failed to load snapshot", err)
		os.Exit(1)
	}
	if err := eng.Hydrate(directory.Branches, directory.Users, snapshot); err != nil {
		logg.Error(context.Background(), "failed to hydrate engine", err)
		os.Exit(1)
	}

	readiness := map[string]controllers.Pinger{"database": dbClient}
	routeParams := routes.Params{
		Config:      cfg,
		Logger:      logg,
		Identity:    eng.Identity,
		Circulation: eng.Circulation,
		Gatherer:    reg,
		HTTPMetrics: metrics.NewHTTPMetrics(reg),
		Readiness:   readiness,
	}
	if redisClient != nil {
		readiness["redis"] = redisClient
		routeParams.Idempotency = redisClient
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
		"titles":   len(snapshot.Titles),
		"copies":   len(snapshot.Copies),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(routeParams),
		ReadHeaderTimeout: 10 * time.Second,
	}

	writerCtx, stopWriter := context.WithCancel(context.Background())
	writerDone := make(chan error, 1)
	go func() { writerDone <- writer.Run(writerCtx) }()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	exitCode := 0
	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			exitCode = 1
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "http shutdown failed", err)
	}

	stopWriter()
	if err := <-writerDone; err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "journal writer did not drain", err)
		exitCode = 1
	}
	logg.Info(ctx, "api server stopped")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
