package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/churnflow/churnflow/internal/config"
	"github.com/churnflow/churnflow/internal/platform/logger"
	"github.com/churnflow/churnflow/internal/training"
	"github.com/churnflow/churnflow/internal/trigger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(trigger.ExitFault)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(trigger.ExitFault)
	}
	defer log.Sync()

	res, err := training.Promote(log, cfg.Paths.Models, cfg.Paths.Metrics)
	if err != nil {
		log.Error("promotion failed", "error", err.Error())
		log.Sync()
		os.Exit(trigger.FatalCode(err))
	}

	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))
}
