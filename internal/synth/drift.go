package synth

import (
	"math"
	"math/rand"
	"sort"

	"github.com/churnflow/churnflow/internal/dataset"
)

type columnShift struct {
	mulPerUnit    float64
	addPerUnit    float64
	jitterPerUnit float64
}

// driftShifts define how each monitored engagement column moves under a
// simulated distribution shift, scaled by strength. Strength around 3 is
// enough to push PSI past the high threshold.
var driftShifts = map[string]columnShift{
	"sessions_7d":       {mulPerUnit: 0.8, addPerUnit: 3.0, jitterPerUnit: 0.5},
	"watch_minutes_7d":  {mulPerUnit: 2.0, addPerUnit: 50.0, jitterPerUnit: 10.0},
	"watch_minutes_14d": {mulPerUnit: 2.2, addPerUnit: 120.0, jitterPerUnit: 15.0},
	"watch_minutes_30d": {mulPerUnit: 2.5, addPerUnit: 220.0, jitterPerUnit: 20.0},
	"quiz_attempts_7d":  {mulPerUnit: 1.5, addPerUnit: 1.0, jitterPerUnit: 0.4},
}

// ApplyHighDrift returns a copy of the feature frame with a strong
// deterministic distribution shift applied to the drift-monitored columns
// and everything else untouched. Returns the shifted frame and the names of
// the columns that changed.
func ApplyHighDrift(f *dataset.Frame, strength float64, seed int64) (*dataset.Frame, []string, error) {
	if strength < 1 {
		strength = 1
	}
	rng := rand.New(rand.NewSource(seed))

	out := dataset.NewFrame()
	var changed []string
	for _, name := range f.ColumnNames() {
		col := f.Column(name)
		shift, shifted := driftShifts[name]
		scoreCol := name == "quiz_avg_score_7d"
		if col.Type != dataset.Numeric || (!shifted && !scoreCol) {
			if err := out.AddColumn(col); err != nil {
				return nil, nil, err
			}
			continue
		}

		nums := make([]float64, len(col.Nums))
		if scoreCol {
			// scores drift downward, opposite direction to usage volume
			for i, v := range col.Nums {
				if math.IsNaN(v) {
					nums[i] = v
					continue
				}
				nums[i] = clamp(v-12*strength+rng.NormFloat64()*6*strength, 0, 100)
			}
		} else {
			mul := 1 + shift.mulPerUnit*strength
			add := shift.addPerUnit * strength
			jitter := shift.jitterPerUnit * strength
			for i, v := range col.Nums {
				if math.IsNaN(v) {
					nums[i] = v
					continue
				}
				y := v*mul + add + rng.NormFloat64()*jitter
				if y < 0 {
					y = 0
				}
				nums[i] = y
			}
		}
		if err := out.AddColumn(&dataset.Column{Name: name, Type: dataset.Numeric, Nums: nums}); err != nil {
			return nil, nil, err
		}
		changed = append(changed, name)
	}
	sort.Strings(changed)
	return out, changed, nil
}
