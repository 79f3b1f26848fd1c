package labels

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/churnflow/churnflow/internal/domain"
	"github.com/churnflow/churnflow/internal/platform/logger"
)

type BuildInput struct {
	// WindowDays is the look-ahead window W. Must be positive.
	WindowDays int

	// Workers bounds the per-user goroutines. Zero means GOMAXPROCS.
	Workers int
}

type BuildOutput struct {
	Labels        []domain.LabelRecord
	UsersTotal    int
	UsersLabeled  int
	UsersTooShort int
}

// Build converts raw activity into forward-looking churn labels. Each user's
// timeline is independent, so users run in parallel and results are
// concatenated; only within-user chronological order matters.
//
// A row is emitted only when the full W-day window after it exists, so the
// trailing W rows of every timeline are always dropped.
func Build(ctx context.Context, log *logger.Logger, activity []domain.ActivityRecord, input BuildInput) (BuildOutput, error) {
	out := BuildOutput{}
	if input.WindowDays <= 0 {
		return out, fmt.Errorf("labels: window must be positive, got %d", input.WindowDays)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	byUser := groupByUser(activity)
	out.UsersTotal = len(byUser)

	workers := input.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var mu sync.Mutex
	for _, timeline := range byUser {
		timeline := timeline
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			rows := labelUser(timeline, input.WindowDays)
			mu.Lock()
			if len(rows) > 0 {
				out.Labels = append(out.Labels, rows...)
				out.UsersLabeled++
			} else {
				out.UsersTooShort++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BuildOutput{}, err
	}

	if log != nil {
		log.Info("labels built",
			"window_days", input.WindowDays,
			"users_total", out.UsersTotal,
			"users_labeled", out.UsersLabeled,
			"users_too_short", out.UsersTooShort,
			"label_rows", len(out.Labels))
	}
	return out, nil
}

func groupByUser(activity []domain.ActivityRecord) map[int64][]domain.ActivityRecord {
	byUser := map[int64][]domain.ActivityRecord{}
	for _, rec := range activity {
		byUser[rec.UserID] = append(byUser[rec.UserID], rec)
	}
	for uid := range byUser {
		timeline := byUser[uid]
		sort.Slice(timeline, func(i, j int) bool {
			return timeline[i].AsOfDate.Before(timeline[j].AsOfDate)
		})
	}
	return byUser
}

// futureActiveCounts computes, for every index i, the number of active days
// at indices (i, min(n-1, i+w)] using a prefix sum: cs[k] counts active days
// among the first k rows, so the window sum is cs[min(n, i+w+1)] - cs[i+1].
// O(n) instead of O(n*w).
func futureActiveCounts(active []bool, w int) []int {
	n := len(active)
	cs := make([]int, n+1)
	for i, a := range active {
		cs[i+1] = cs[i]
		if a {
			cs[i+1]++
		}
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		hi := i + w + 1
		if hi > n {
			hi = n
		}
		out[i] = cs[hi] - cs[i+1]
	}
	return out
}

func labelUser(timeline []domain.ActivityRecord, w int) []domain.LabelRecord {
	n := len(timeline)
	if n <= w {
		// insufficient history, omitted rather than failed
		return nil
	}

	active := make([]bool, n)
	for i, rec := range timeline {
		active[i] = rec.IsActiveDay
	}
	counts := futureActiveCounts(active, w)

	out := make([]domain.LabelRecord, 0, n-w)
	for i := 0; i+w < n; i++ {
		out = append(out, domain.LabelRecord{
			UserID:           timeline[i].UserID,
			AsOfDate:         timeline[i].AsOfDate,
			FutureActiveDays: counts[i],
			ChurnLabel:       counts[i] == 0,
		})
	}
	return out
}
