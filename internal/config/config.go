package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/churnflow/churnflow/internal/platform/envutil"
)

type Paths struct {
	Raw         string `yaml:"raw"`
	Features    string `yaml:"features"`
	Labels      string `yaml:"labels"`
	Models      string `yaml:"models"`
	Metrics     string `yaml:"metrics"`
	Predictions string `yaml:"predictions"`
}

type Database struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type Labels struct {
	WindowDays int `yaml:"window_days"`
	Workers    int `yaml:"workers"`
}

type Training struct {
	TestFraction      float64 `yaml:"test_fraction"`
	ImbalanceStrategy string  `yaml:"imbalance_strategy"`
	DecisionThreshold float64 `yaml:"decision_threshold"`
	MaxIter           int     `yaml:"max_iter"`
	Seed              int64   `yaml:"seed"`
}

type Drift struct {
	Buckets           int      `yaml:"buckets"`
	WarnPSI           float64  `yaml:"warn_psi"`
	FailPSI           float64  `yaml:"fail_psi"`
	Features          []string `yaml:"features"`
	RetrainOnModerate bool     `yaml:"retrain_on_moderate"`
	PersistHistory    bool     `yaml:"persist_history"`
}

type Config struct {
	LogMode  string   `yaml:"log_mode"`
	Paths    Paths    `yaml:"paths"`
	Database Database `yaml:"database"`
	Labels   Labels   `yaml:"labels"`
	Training Training `yaml:"training"`
	Drift    Drift    `yaml:"drift"`
}

func Default() Config {
	return Config{
		LogMode: "development",
		Paths: Paths{
			Raw:         "data/raw",
			Features:    "data/features",
			Labels:      "data/labels",
			Models:      "artifacts/models",
			Metrics:     "artifacts/metrics",
			Predictions: "artifacts/predictions",
		},
		Labels: Labels{WindowDays: 30},
		Training: Training{
			TestFraction:      0.2,
			ImbalanceStrategy: "class_weight",
			DecisionThreshold: 0.5,
			MaxIter:           2000,
			Seed:              42,
		},
		Drift: Drift{
			Buckets: 10,
			WarnPSI: 0.1,
			FailPSI: 0.25,
			Features: []string{
				"sessions_7d",
				"watch_minutes_7d",
				"watch_minutes_14d",
				"watch_minutes_30d",
				"quiz_attempts_7d",
				"quiz_avg_score_7d",
			},
		},
	}
}

// Load reads the YAML config (CHURNFLOW_CONFIG or churnflow.yaml if present)
// over the defaults, then applies env overrides. A missing config file is not
// an error; a malformed one is.
func Load() (Config, error) {
	cfg := Default()

	path := strings.TrimSpace(os.Getenv("CHURNFLOW_CONFIG"))
	explicit := path != ""
	if path == "" {
		path = "churnflow.yaml"
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// no config file, defaults + env only
	default:
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.LogMode = envutil.Str("LOG_MODE", c.LogMode)

	c.Paths.Raw = envutil.Str("CHURNFLOW_RAW_DIR", c.Paths.Raw)
	c.Paths.Features = envutil.Str("CHURNFLOW_FEATURES_DIR", c.Paths.Features)
	c.Paths.Labels = envutil.Str("CHURNFLOW_LABELS_DIR", c.Paths.Labels)
	c.Paths.Models = envutil.Str("CHURNFLOW_MODELS_DIR", c.Paths.Models)
	c.Paths.Metrics = envutil.Str("CHURNFLOW_METRICS_DIR", c.Paths.Metrics)
	c.Paths.Predictions = envutil.Str("CHURNFLOW_PREDICTIONS_DIR", c.Paths.Predictions)

	c.Database.Driver = envutil.Str("CHURNFLOW_DB_DRIVER", c.Database.Driver)
	c.Database.DSN = envutil.Str("CHURNFLOW_DB_DSN", c.Database.DSN)

	c.Labels.WindowDays = envutil.Int("CHURNFLOW_LABEL_WINDOW_DAYS", c.Labels.WindowDays)
	c.Labels.Workers = envutil.Int("CHURNFLOW_LABEL_WORKERS", c.Labels.Workers)

	c.Training.TestFraction = envutil.Float("CHURNFLOW_TEST_FRACTION", c.Training.TestFraction)
	c.Training.ImbalanceStrategy = envutil.Str("CHURNFLOW_IMBALANCE_STRATEGY", c.Training.ImbalanceStrategy)
	c.Training.DecisionThreshold = envutil.Float("CHURNFLOW_DECISION_THRESHOLD", c.Training.DecisionThreshold)
	c.Training.MaxIter = envutil.Int("CHURNFLOW_MAX_ITER", c.Training.MaxIter)
	c.Training.Seed = int64(envutil.Int("CHURNFLOW_SEED", int(c.Training.Seed)))

	c.Drift.Buckets = envutil.Int("CHURNFLOW_DRIFT_BUCKETS", c.Drift.Buckets)
	c.Drift.WarnPSI = envutil.Float("CHURNFLOW_DRIFT_WARN_PSI", c.Drift.WarnPSI)
	c.Drift.FailPSI = envutil.Float("CHURNFLOW_DRIFT_FAIL_PSI", c.Drift.FailPSI)
	c.Drift.RetrainOnModerate = envutil.Bool("CHURNFLOW_DRIFT_RETRAIN_ON_MODERATE", c.Drift.RetrainOnModerate)
	c.Drift.PersistHistory = envutil.Bool("CHURNFLOW_DRIFT_PERSIST_HISTORY", c.Drift.PersistHistory)
	if raw := strings.TrimSpace(os.Getenv("CHURNFLOW_DRIFT_FEATURES")); raw != "" {
		c.Drift.Features = splitCSV(raw)
	}
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
