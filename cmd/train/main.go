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
	"github.com/churnflow/churnflow/internal/platform/fsutil"
	"github.com/churnflow/churnflow/internal/platform/logger"
	"github.com/churnflow/churnflow/internal/repos"
	"github.com/churnflow/churnflow/internal/store"
	"github.com/churnflow/churnflow/internal/training"
	"github.com/churnflow/churnflow/internal/trigger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(trigger.ExitFault)
	}

	var (
		featuresPath = flag.String("features", filepath.Join(cfg.Paths.Features, "user_features_daily.csv"), "daily feature CSV")
		labelsPath   = flag.String("labels", filepath.Join(cfg.Paths.Labels, "churn_labels.csv"), "label CSV")
		strategy     = flag.String("strategy", cfg.Training.ImbalanceStrategy, "imbalance strategy: none|class_weight|smote|boosted")
		registry     = flag.Bool("db", false, "record the run in the training_runs table")
	)
	flag.Parse()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(trigger.ExitFault)
	}
	defer log.Sync()

	if err := run(cfg, log, *featuresPath, *labelsPath, *strategy, *registry); err != nil {
		log.Error("training failed", "error", err.Error())
		log.Sync()
		os.Exit(trigger.FatalCode(err))
	}
}

func run(cfg config.Config, log *logger.Logger, featuresPath, labelsPath, strategy string, registry bool) error {
	ctx := context.Background()

	schema := dataset.NewSchema()
	schema.DeclareNumeric("user_id")
	schema.DeclareCategorical("as_of_date", "signup_date")
	features, err := dataset.ReadCSV(featuresPath, schema)
	if err != nil {
		return err
	}
	labelRows, err := store.ReadLabelsCSV(labelsPath)
	if err != nil {
		return err
	}
	table, err := dataset.JoinLabels(features, labelRows)
	if err != nil {
		return err
	}
	log.Info("training table built",
		"feature_rows", features.NumRows(),
		"label_rows", len(labelRows),
		"joined_rows", table.NumRows())

	// The joined table doubles as the drift reference baseline.
	if err := fsutil.EnsureDir(cfg.Paths.Features); err != nil {
		return err
	}
	baselinePath := filepath.Join(cfg.Paths.Features, "training_dataset.csv")
	if err := dataset.WriteCSV(baselinePath, table); err != nil {
		return err
	}

	parsed, err := training.ParseStrategy(strategy)
	if err != nil {
		return err
	}

	deps := training.Deps{Log: log}
	if registry {
		svc, err := db.New(cfg.Database.Driver, cfg.Database.DSN, log)
		if err != nil {
			return err
		}
		if err := svc.AutoMigrateAll(); err != nil {
			return err
		}
		deps.Runs = repos.NewTrainingRunRepo(svc.DB(), log)
		deps.DB = svc.DB()
	}

	res, err := training.Train(ctx, deps, table, training.Options{
		TestFraction:      cfg.Training.TestFraction,
		Strategy:          parsed,
		DecisionThreshold: cfg.Training.DecisionThreshold,
		MaxIter:           cfg.Training.MaxIter,
		Seed:              cfg.Training.Seed,
		ModelsDir:         cfg.Paths.Models,
		MetricsDir:        cfg.Paths.Metrics,
	})
	if err != nil {
		return err
	}

	log.Info("artifact written", "artifact", res.ArtifactPath, "metrics", res.MetricsPath)
	if !res.Document.Converged {
		log.Warn("model did not converge; do not promote without review")
	}
	return nil
}
