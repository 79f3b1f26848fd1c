package config

import (
	"os"
	"path/filepath"
	"testing"
)

// chdir changes the working directory for the duration of the test; it
// mirrors testing.T.Chdir, which requires Go 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatalf("chdir back: %v", err)
		}
	})
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CHURNFLOW_CONFIG", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Labels.WindowDays != 30 {
		t.Fatalf("window_days = %d, want default 30", cfg.Labels.WindowDays)
	}
	if cfg.Training.ImbalanceStrategy != "class_weight" {
		t.Fatalf("strategy = %q, want default class_weight", cfg.Training.ImbalanceStrategy)
	}
	if cfg.Drift.WarnPSI != 0.1 || cfg.Drift.FailPSI != 0.25 {
		t.Fatalf("psi thresholds = %v/%v, want 0.1/0.25", cfg.Drift.WarnPSI, cfg.Drift.FailPSI)
	}
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "churnflow.yaml")
	content := "log_mode: production\nlabels:\n  window_days: 14\ntraining:\n  test_fraction: 0.3\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CHURNFLOW_CONFIG", path)
	t.Setenv("CHURNFLOW_LABEL_WINDOW_DAYS", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogMode != "production" {
		t.Fatalf("log_mode = %q, want yaml value", cfg.LogMode)
	}
	if cfg.Training.TestFraction != 0.3 {
		t.Fatalf("test_fraction = %v, want yaml value 0.3", cfg.Training.TestFraction)
	}
	// env wins over yaml
	if cfg.Labels.WindowDays != 7 {
		t.Fatalf("window_days = %d, want env override 7", cfg.Labels.WindowDays)
	}
	// untouched settings keep defaults
	if cfg.Drift.Buckets != 10 {
		t.Fatalf("buckets = %d, want default 10", cfg.Drift.Buckets)
	}
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	t.Setenv("CHURNFLOW_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("explicitly configured file that does not exist must fail")
	}
}

func TestLoadDriftFeaturesFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CHURNFLOW_CONFIG", "")
	t.Setenv("CHURNFLOW_DRIFT_FEATURES", "a, b ,c")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []string{"a", "b", "c"}
	if len(cfg.Drift.Features) != len(want) {
		t.Fatalf("features = %v, want %v", cfg.Drift.Features, want)
	}
	for i := range want {
		if cfg.Drift.Features[i] != want[i] {
			t.Fatalf("features[%d] = %q, want %q", i, cfg.Drift.Features[i], want[i])
		}
	}
}
