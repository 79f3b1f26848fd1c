package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/churnflow/churnflow/internal/config"
	"github.com/churnflow/churnflow/internal/dataset"
	"github.com/churnflow/churnflow/internal/platform/fsutil"
	"github.com/churnflow/churnflow/internal/platform/logger"
	"github.com/churnflow/churnflow/internal/store"
	"github.com/churnflow/churnflow/internal/synth"
	"github.com/churnflow/churnflow/internal/trigger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(trigger.ExitFault)
	}

	var (
		users    = flag.Int("users", 500, "number of synthetic users")
		days     = flag.Int("days", 90, "days of activity history")
		start    = flag.String("start", "2026-01-01", "first activity day (ISO date)")
		seed     = flag.Int64("seed", 42, "generator seed")
		strength = flag.Float64("drift-strength", 0, "also write a drifted feature copy at this strength (0 disables)")
	)
	flag.Parse()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(trigger.ExitFault)
	}
	defer log.Sync()

	if err := run(cfg, log, *users, *days, *start, *seed, *strength); err != nil {
		log.Error("synthetic generation failed", "error", err.Error())
		log.Sync()
		os.Exit(trigger.FatalCode(err))
	}
}

func run(cfg config.Config, log *logger.Logger, users, days int, start string, seed int64, strength float64) error {
	startDay, err := time.Parse(dataset.DateLayout, start)
	if err != nil {
		return fmt.Errorf("parse start date %q: %w", start, err)
	}

	out, err := synth.Generate(synth.Options{
		Users:     users,
		Days:      days,
		StartDate: startDay,
		Seed:      seed,
	})
	if err != nil {
		return err
	}

	if err := fsutil.EnsureDir(cfg.Paths.Raw); err != nil {
		return err
	}
	activityPath := filepath.Join(cfg.Paths.Raw, "user_activity_daily.csv")
	if err := store.WriteActivityCSV(activityPath, out.Activity); err != nil {
		return err
	}

	if err := fsutil.EnsureDir(cfg.Paths.Features); err != nil {
		return err
	}
	featuresPath := filepath.Join(cfg.Paths.Features, "user_features_daily.csv")
	if err := dataset.WriteCSV(featuresPath, out.Features); err != nil {
		return err
	}
	log.Info("synthetic data written",
		"users", users,
		"days", days,
		"activity", activityPath,
		"features", featuresPath)

	if strength > 0 {
		shifted, changed, err := synth.ApplyHighDrift(out.Features, strength, seed+1)
		if err != nil {
			return err
		}
		driftedPath := filepath.Join(cfg.Paths.Features, "user_features_daily_drifted.csv")
		if err := dataset.WriteCSV(driftedPath, shifted); err != nil {
			return err
		}
		log.Info("high-drift copy written",
			"path", driftedPath,
			"strength", strength,
			"shifted_columns", changed)
	}
	return nil
}
