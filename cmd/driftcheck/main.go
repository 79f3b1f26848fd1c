package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/churnflow/churnflow/internal/config"
	"github.com/churnflow/churnflow/internal/dataset"
	"github.com/churnflow/churnflow/internal/db"
	"github.com/churnflow/churnflow/internal/drift"
	"github.com/churnflow/churnflow/internal/platform/fsutil"
	"github.com/churnflow/churnflow/internal/platform/logger"
	"github.com/churnflow/churnflow/internal/repos"
	"github.com/churnflow/churnflow/internal/trigger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(trigger.ExitFault)
	}

	var (
		baseline = flag.String("baseline", filepath.Join(cfg.Paths.Features, "training_dataset.csv"), "reference feature CSV")
		current  = flag.String("current", filepath.Join(cfg.Paths.Features, "user_features_daily.csv"), "current feature CSV")
		report   = flag.String("report", filepath.Join(cfg.Paths.Metrics, "data_drift_latest.json"), "drift report JSON to write")
	)
	flag.Parse()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(trigger.ExitFault)
	}
	defer log.Sync()

	code, err := run(cfg, log, *baseline, *current, *report)
	if err != nil {
		log.Error("drift check failed", "error", err.Error())
		log.Sync()
		os.Exit(trigger.FatalCode(err))
	}
	log.Sync()
	os.Exit(code)
}

// run returns the scheduler-facing exit code for a completed check.
func run(cfg config.Config, log *logger.Logger, baselinePath, currentPath, reportPath string) (int, error) {
	ctx := context.Background()

	reference, err := dataset.ReadCSV(baselinePath, nil)
	if err != nil {
		return 0, err
	}
	currentFrame, err := dataset.ReadCSV(currentPath, nil)
	if err != nil {
		return 0, err
	}

	deps := drift.ComputeDeps{Log: log}
	if cfg.Drift.PersistHistory {
		svc, err := db.New(cfg.Database.Driver, cfg.Database.DSN, log)
		if err != nil {
			return 0, err
		}
		if err := svc.AutoMigrateAll(); err != nil {
			return 0, err
		}
		deps.Metrics = repos.NewDriftMetricRepo(svc.DB(), log)
		deps.DB = svc.DB()
	}

	report, err := drift.Compute(ctx, deps, drift.ComputeInput{
		Reference:      reference,
		Current:        currentFrame,
		Features:       cfg.Drift.Features,
		Buckets:        cfg.Drift.Buckets,
		WarnPSI:        cfg.Drift.WarnPSI,
		FailPSI:        cfg.Drift.FailPSI,
		PersistHistory: cfg.Drift.PersistHistory,
	})
	if err != nil {
		return 0, err
	}

	if err := fsutil.EnsureDir(filepath.Dir(reportPath)); err != nil {
		return 0, err
	}
	if err := fsutil.WriteJSON(reportPath, report); err != nil {
		return 0, err
	}

	code := trigger.Decide(report.Verdict, trigger.Policy{RetrainOnModerate: cfg.Drift.RetrainOnModerate})
	log.Info("drift report written",
		"path", reportPath,
		"verdict", report.Verdict,
		"max_psi", report.MaxPSI,
		"exit_code", code)
	return code, nil
}
