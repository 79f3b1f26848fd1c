package split

import (
	"fmt"
	"sort"
	"time"

	"github.com/churnflow/churnflow/internal/dataset"
	"github.com/churnflow/churnflow/internal/domain"
)

// Dataset holds a temporal train/test partition. The cutoff guarantees
// max(train date) <= Cutoff < min(test date); the two sides never overlap in
// time.
type Dataset struct {
	Train  *dataset.Frame
	Test   *dataset.Frame
	Cutoff time.Time
}

// ByDate partitions rows by date, never randomly. The cutoff is the distinct
// date at position floor(len(dates)*(1-f)), clamped so both sides are
// non-empty. With fewer than 5 distinct dates it degrades to a row-index
// split over date-sorted rows; with fewer than 2 there is no valid boundary
// at all.
func ByDate(f *dataset.Frame, dateCol string, testFraction float64) (Dataset, error) {
	var out Dataset
	if testFraction <= 0 || testFraction >= 1 {
		return out, fmt.Errorf("split: test fraction must be in (0,1), got %v", testFraction)
	}
	dates, err := f.Dates(dateCol)
	if err != nil {
		return out, fmt.Errorf("%w: %v", domain.ErrSchemaInvalid, err)
	}

	distinct, err := f.DistinctSortedDates(dateCol)
	if err != nil {
		return out, err
	}
	if len(distinct) < 2 {
		return out, fmt.Errorf("%w: have %d", domain.ErrDegenerateSplit, len(distinct))
	}

	if len(distinct) < 5 {
		return rowIndexSplit(f, dates, distinct, testFraction)
	}

	cutAt := int(float64(len(distinct)) * (1 - testFraction))
	if cutAt < 1 {
		cutAt = 1
	}
	if cutAt > len(distinct)-1 {
		cutAt = len(distinct) - 1
	}
	cutoff := distinct[cutAt-1]

	var trainIdx, testIdx []int
	for i, d := range dates {
		if !d.After(cutoff) {
			trainIdx = append(trainIdx, i)
		} else {
			testIdx = append(testIdx, i)
		}
	}
	return Dataset{
		Train:  f.TakeRows(trainIdx),
		Test:   f.TakeRows(testIdx),
		Cutoff: cutoff,
	}, nil
}

// rowIndexSplit sorts row indices by date (stable, so ties keep input order)
// and cuts by count. Still deterministic and chronological, just not
// date-aligned; used only when the date set is too small for a meaningful
// date cutoff.
func rowIndexSplit(f *dataset.Frame, dates []time.Time, distinct []time.Time, testFraction float64) (Dataset, error) {
	order := make([]int, len(dates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return dates[order[a]].Before(dates[order[b]])
	})

	cut := int(float64(len(order)) * (1 - testFraction))
	if cut < 1 {
		cut = 1
	}
	if cut > len(order)-1 {
		cut = len(order) - 1
	}

	// never let a single date straddle the boundary: push the cut forward to
	// the next date change so the temporal invariant holds
	for cut < len(order) && dates[order[cut]].Equal(dates[order[cut-1]]) {
		cut++
	}
	if cut >= len(order) {
		// everything up to the last date lands in train; test takes the last date
		last := dates[order[len(order)-1]]
		cut = len(order) - 1
		for cut > 0 && dates[order[cut-1]].Equal(last) {
			cut--
		}
		if cut == 0 {
			return Dataset{}, fmt.Errorf("%w: have %d", domain.ErrDegenerateSplit, len(distinct))
		}
	}

	return Dataset{
		Train:  f.TakeRows(order[:cut]),
		Test:   f.TakeRows(order[cut:]),
		Cutoff: dates[order[cut-1]],
	}, nil
}
