package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/churnflow/churnflow/internal/config"
	"github.com/churnflow/churnflow/internal/platform/logger"
	"github.com/churnflow/churnflow/internal/scoring"
	"github.com/churnflow/churnflow/internal/trigger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(trigger.ExitFault)
	}

	var (
		features = flag.String("features", filepath.Join(cfg.Paths.Features, "user_features_daily.csv"), "daily feature CSV")
		asOfDate = flag.String("as-of-date", "", "ISO day to score; default latest available")
		topK     = flag.Int("top-k", 50, "also write a top-K highest-risk preview (0 disables)")
	)
	flag.Parse()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(trigger.ExitFault)
	}
	defer log.Sync()

	res, err := scoring.Score(context.Background(), scoring.Deps{Log: log}, scoring.Options{
		FeaturesPath:   *features,
		ModelsDir:      cfg.Paths.Models,
		PredictionsDir: cfg.Paths.Predictions,
		AsOfDate:       *asOfDate,
		TopK:           *topK,
	})
	if err != nil {
		log.Error("batch scoring failed", "error", err.Error())
		log.Sync()
		os.Exit(trigger.FatalCode(err))
	}
	log.Info("predictions written",
		"as_of_date", res.AsOfDate,
		"rows", res.Rows,
		"output", res.OutputPath,
		"preview", res.PreviewPath)
}
