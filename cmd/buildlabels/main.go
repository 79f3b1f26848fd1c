package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/churnflow/churnflow/internal/config"
	"github.com/churnflow/churnflow/internal/db"
	"github.com/churnflow/churnflow/internal/labels"
	"github.com/churnflow/churnflow/internal/platform/fsutil"
	"github.com/churnflow/churnflow/internal/platform/logger"
	"github.com/churnflow/churnflow/internal/repos"
	"github.com/churnflow/churnflow/internal/store"
	"github.com/churnflow/churnflow/internal/trigger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(trigger.ExitFault)
	}

	var (
		input   = flag.String("input", filepath.Join(cfg.Paths.Raw, "user_activity_daily.csv"), "raw activity CSV")
		output  = flag.String("output", filepath.Join(cfg.Paths.Labels, "churn_labels.csv"), "label CSV to write")
		window  = flag.Int("window", cfg.Labels.WindowDays, "look-ahead window W in days")
		workers = flag.Int("workers", cfg.Labels.Workers, "parallel per-user workers (0 = GOMAXPROCS)")
		toDB    = flag.Bool("db", false, "also replace the churn_labels table in the database")
	)
	flag.Parse()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(trigger.ExitFault)
	}
	defer log.Sync()

	if err := run(cfg, log, *input, *output, *window, *workers, *toDB); err != nil {
		log.Error("label build failed", "error", err.Error())
		log.Sync()
		os.Exit(trigger.FatalCode(err))
	}
}

func run(cfg config.Config, log *logger.Logger, input, output string, window, workers int, toDB bool) error {
	ctx := context.Background()

	activity, err := store.ReadActivityCSV(input)
	if err != nil {
		return err
	}
	log.Info("activity loaded", "path", input, "rows", len(activity))

	built, err := labels.Build(ctx, log, activity, labels.BuildInput{WindowDays: window, Workers: workers})
	if err != nil {
		return err
	}

	if err := fsutil.EnsureDir(filepath.Dir(output)); err != nil {
		return err
	}
	if err := store.WriteLabelsCSV(output, built.Labels); err != nil {
		return err
	}
	log.Info("labels written", "path", output, "rows", len(built.Labels))

	if toDB {
		svc, err := db.New(cfg.Database.Driver, cfg.Database.DSN, log)
		if err != nil {
			return err
		}
		if err := svc.AutoMigrateAll(); err != nil {
			return err
		}
		repo := repos.NewLabelRepo(svc.DB(), log)
		if err := repo.ReplaceAll(ctx, nil, built.Labels); err != nil {
			return err
		}
		log.Info("label table replaced", "rows", len(built.Labels))
	}
	return nil
}
