package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/AarushDarne/shelftrack-webapp/pkg/config"
	"github.com/AarushDarne/shelftrack-webapp/pkg/db"
	"github.com/AarushDarne/shelftrack-webapp/pkg/logger"
	"github.com/AarushDarne/shelftrack-webapp/pkg/migrate"
	"github.com/joho/godotenv"
)

const usage = "up|down|to|status|version|create|validate"

func main() {
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: "+usage)
	dir := flag.String("dir", "", "migrations directory; empty uses the migrations compiled into the binary")
	name := flag.String("name", "", "migration name for -cmd=create")
	target := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=to")
	flag.Parse()

	// create and validate work on files only and never touch config.
	switch *cmd {
	case "create":
		out := *dir
		if out == "" {
			out = migrate.SourceDir
		}
		if *name == "" {
			exit("missing -name for create")
		}
		path, err := migrate.Create(out, *name, time.Now())
		if err != nil {
			exit("create migration: %v", err)
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		if err := migrate.Validate(migrate.Source(*dir)); err != nil {
			exit("migration validation failed: %v", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	ctx := context.Background()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Format:      cfg.App.LogFormat,
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{
		"env":    cfg.App.Env,
		"cmd":    *cmd,
		"source": sourceLabel(*dir),
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)

	runner, err := migrate.NewRunner(sqlDB, dbClient.Dialect(), migrate.Source(*dir))
	requireResource(ctx, logg, "migration runner", err)

	switch *cmd {
	case "up":
		applied, err := runner.Up(ctx)
		if err != nil {
			exit("migrate up: %v", err)
		}
		logg.Info(logg.WithField(ctx, "applied", applied), "migrations applied")
	case "down":
		version, err := runner.Down(ctx)
		if err != nil {
			exit("migrate down: %v", err)
		}
		logg.Info(logg.WithField(ctx, "version", version), "migration rolled back")
	case "to":
		if *target == "" {
			exit("missing -version for -cmd=to")
		}
		version, err := strconv.ParseInt(*target, 10, 64)
		if err != nil {
			exit("invalid -version %q: %v", *target, err)
		}
		changed, err := runner.To(ctx, version)
		if err != nil {
			exit("migrate to %d: %v", version, err)
		}
		logg.Info(logg.WithFields(ctx, map[string]any{"target": version, "changed": changed}), "migrated to version")
	case "version":
		version, err := runner.Version(ctx)
		if err != nil {
			exit("read version: %v", err)
		}
		fmt.Println(version)
	case "status":
		statuses, err := runner.Status(ctx)
		if err != nil {
			exit("migration status: %v", err)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tAPPLIED\tAT\tFILE")
		for _, s := range statuses {
			at := "-"
			if !s.AppliedAt.IsZero() {
				at = s.AppliedAt.UTC().Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%d\t%t\t%s\t%s\n", s.Version, s.Applied, at, s.Path)
		}
		_ = w.Flush()
	default:
		exit("unknown -cmd value %q (want %s)", *cmd, usage)
	}
}

func sourceLabel(dir string) string {
	if dir == "" {
		return "embedded"
	}
	return dir
}

func exit(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
