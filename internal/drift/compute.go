package drift

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/churnflow/churnflow/internal/dataset"
	"github.com/churnflow/churnflow/internal/domain"
	"github.com/churnflow/churnflow/internal/platform/logger"
	"github.com/churnflow/churnflow/internal/repos"
)

// Verdict severity ordering: none < moderate < high.
const (
	VerdictNone     = "none"
	VerdictModerate = "moderate"
	VerdictHigh     = "high"
)

type ComputeDeps struct {
	Log *logger.Logger

	// Metrics/DB persist per-feature history rows when input.PersistHistory
	// is set; both nil disables persistence.
	Metrics repos.DriftMetricRepo
	DB      *gorm.DB
}

type ComputeInput struct {
	// Reference is the fixed baseline sample, Current the sample under test.
	Reference *dataset.Frame
	Current   *dataset.Frame

	// Features lists the numeric columns to monitor; empty monitors every
	// numeric column present in both frames.
	Features []string

	Buckets int
	WarnPSI float64
	FailPSI float64

	PersistHistory bool
	RunID          uuid.UUID
}

// Report is the point-in-time snapshot of one monitoring run. It is
// recomputed in full each run and carries no state beyond the reference
// baseline it was computed against.
type Report struct {
	PerFeature map[string]float64 `json:"per_feature"`
	MaxPSI     float64            `json:"max_psi"`
	Verdict    string             `json:"verdict"`
	Skipped    []string           `json:"skipped,omitempty"`
	Buckets    int                `json:"buckets"`
	WarnPSI    float64            `json:"warn_psi"`
	FailPSI    float64            `json:"fail_psi"`
	RunID      uuid.UUID          `json:"run_id"`
	CreatedAt  time.Time          `json:"created_at"`
}

// Compute scores every monitored feature's current sample against the
// reference baseline and aggregates to the worst per-feature verdict.
func Compute(ctx context.Context, deps ComputeDeps, input ComputeInput) (Report, error) {
	out := Report{PerFeature: map[string]float64{}, Verdict: VerdictNone}
	if ctx == nil {
		ctx = context.Background()
	}
	if input.Reference == nil || input.Current == nil {
		return out, fmt.Errorf("drift: reference and current samples are required")
	}
	if input.Buckets <= 0 {
		input.Buckets = 10
	}
	if input.WarnPSI <= 0 {
		input.WarnPSI = 0.1
	}
	if input.FailPSI <= input.WarnPSI {
		input.FailPSI = 0.25
	}
	if input.RunID == uuid.Nil {
		input.RunID = uuid.New()
	}

	features := input.Features
	if len(features) == 0 {
		features = sharedNumericColumns(input.Reference, input.Current)
	}
	if len(features) == 0 {
		return out, fmt.Errorf("drift: no numeric features to monitor")
	}

	out.Buckets = input.Buckets
	out.WarnPSI = input.WarnPSI
	out.FailPSI = input.FailPSI
	out.RunID = input.RunID
	out.CreatedAt = time.Now().UTC()

	for _, name := range features {
		ref, err := numericColumn(input.Reference, name)
		if err != nil {
			out.Skipped = append(out.Skipped, name)
			continue
		}
		cur, err := numericColumn(input.Current, name)
		if err != nil {
			out.Skipped = append(out.Skipped, name)
			continue
		}
		psi := PSI(ref, cur, input.Buckets)
		out.PerFeature[name] = psi
		if psi > out.MaxPSI {
			out.MaxPSI = psi
		}
		if v := verdictFor(psi, input.WarnPSI, input.FailPSI); severity(v) > severity(out.Verdict) {
			out.Verdict = v
		}
	}
	if len(out.PerFeature) == 0 {
		return out, fmt.Errorf("drift: none of the monitored features exist in both samples")
	}

	if input.PersistHistory && deps.Metrics != nil {
		if err := persistHistory(ctx, deps, input, out); err != nil {
			return out, fmt.Errorf("drift: persist history: %w", err)
		}
	}

	if deps.Log != nil {
		deps.Log.Info("drift check complete",
			"run_id", out.RunID.String(),
			"features", len(out.PerFeature),
			"skipped", len(out.Skipped),
			"max_psi", out.MaxPSI,
			"verdict", out.Verdict)
	}
	return out, nil
}

// verdictFor maps one feature's PSI onto the three-level scale.
func verdictFor(psi, warn, fail float64) string {
	switch {
	case psi >= fail:
		return VerdictHigh
	case psi >= warn:
		return VerdictModerate
	default:
		return VerdictNone
	}
}

func severity(v string) int {
	switch v {
	case VerdictHigh:
		return 2
	case VerdictModerate:
		return 1
	default:
		return 0
	}
}

func sharedNumericColumns(ref, cur *dataset.Frame) []string {
	var out []string
	for _, name := range ref.ColumnNames() {
		col := ref.Column(name)
		if col == nil || col.Type != dataset.Numeric {
			continue
		}
		other := cur.Column(name)
		if other == nil || other.Type != dataset.Numeric {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func numericColumn(f *dataset.Frame, name string) ([]float64, error) {
	if !f.HasColumn(name) {
		return nil, fmt.Errorf("drift: missing column %q", name)
	}
	return f.NumericValues(name)
}

func persistHistory(ctx context.Context, deps ComputeDeps, input ComputeInput, report Report) error {
	names := make([]string, 0, len(report.PerFeature))
	for name := range report.PerFeature {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]*domain.DriftMetric, 0, len(names))
	for _, name := range names {
		psi := report.PerFeature[name]
		meta, _ := json.Marshal(map[string]any{
			"buckets":        input.Buckets,
			"warn_psi":       input.WarnPSI,
			"fail_psi":       input.FailPSI,
			"reference_rows": input.Reference.NumRows(),
			"current_rows":   input.Current.NumRows(),
		})
		rows = append(rows, &domain.DriftMetric{
			RunID:       report.RunID,
			FeatureName: name,
			PSI:         psi,
			Verdict:     verdictFor(psi, input.WarnPSI, input.FailPSI),
			Metadata:    datatypes.JSON(meta),
			CreatedAt:   report.CreatedAt,
		})
	}
	_, err := deps.Metrics.CreateMany(ctx, deps.DB, rows)
	return err
}
