package split

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/churnflow/churnflow/internal/dataset"
	"github.com/churnflow/churnflow/internal/domain"
)

func frameWithDates(t *testing.T, dates []string) *dataset.Frame {
	t.Helper()
	f := dataset.NewFrame()
	vals := make([]float64, len(dates))
	for i := range vals {
		vals[i] = float64(i)
	}
	if err := f.AddColumn(&dataset.Column{Name: "x", Type: dataset.Numeric, Nums: vals}); err != nil {
		t.Fatalf("add x: %v", err)
	}
	if err := f.AddColumn(&dataset.Column{Name: "as_of_date", Type: dataset.Categorical, Cats: dates}); err != nil {
		t.Fatalf("add dates: %v", err)
	}
	return f
}

func checkInvariant(t *testing.T, ds Dataset) {
	t.Helper()
	trainDates, err := ds.Train.Dates("as_of_date")
	if err != nil {
		t.Fatalf("train dates: %v", err)
	}
	testDates, err := ds.Test.Dates("as_of_date")
	if err != nil {
		t.Fatalf("test dates: %v", err)
	}
	if len(trainDates) == 0 || len(testDates) == 0 {
		t.Fatal("both partitions must be non-empty")
	}
	for _, d := range trainDates {
		if d.After(ds.Cutoff) {
			t.Fatalf("train date %s after cutoff %s", d, ds.Cutoff)
		}
	}
	for _, d := range testDates {
		if !d.After(ds.Cutoff) {
			t.Fatalf("test date %s not after cutoff %s", d, ds.Cutoff)
		}
	}
}

func TestByDateInvariant(t *testing.T) {
	dates := []string{
		"2026-01-01", "2026-01-01", "2026-01-02", "2026-01-03", "2026-01-04",
		"2026-01-05", "2026-01-05", "2026-01-06", "2026-01-07", "2026-01-08",
	}
	ds, err := ByDate(frameWithDates(t, dates), "as_of_date", 0.2)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	checkInvariant(t, ds)
	if ds.Train.NumRows()+ds.Test.NumRows() != len(dates) {
		t.Fatalf("rows lost: %d + %d != %d", ds.Train.NumRows(), ds.Test.NumRows(), len(dates))
	}
}

func TestByDateRandomSparseDates(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for trial := 0; trial < 50; trial++ {
		nDates := 2 + rng.Intn(40)
		day := 0
		var dates []string
		for i := 0; i < nDates; i++ {
			day += 1 + rng.Intn(9) // sparse, irregular gaps
			d := base.AddDate(0, 0, day).Format("2006-01-02")
			// repeat some dates to simulate multiple users per day
			for r := 0; r < 1+rng.Intn(3); r++ {
				dates = append(dates, d)
			}
		}
		f := 0.1 + rng.Float64()*0.8
		ds, err := ByDate(frameWithDates(t, dates), "as_of_date", f)
		if err != nil {
			t.Fatalf("trial %d (n=%d f=%v): %v", trial, nDates, f, err)
		}
		checkInvariant(t, ds)
	}
}

func TestByDateFallbackFewDistinctDates(t *testing.T) {
	dates := []string{"2026-02-01", "2026-02-01", "2026-02-01", "2026-02-02", "2026-02-02", "2026-02-03"}
	ds, err := ByDate(frameWithDates(t, dates), "as_of_date", 0.3)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	checkInvariant(t, ds)
}

func TestByDateDegenerate(t *testing.T) {
	_, err := ByDate(frameWithDates(t, []string{"2026-03-01", "2026-03-01"}), "as_of_date", 0.2)
	if !errors.Is(err, domain.ErrDegenerateSplit) {
		t.Fatalf("want ErrDegenerateSplit, got %v", err)
	}
}

func TestByDateRejectsBadFraction(t *testing.T) {
	f := frameWithDates(t, []string{"2026-03-01", "2026-03-02"})
	for _, frac := range []float64{0, 1, -0.5, 2} {
		if _, err := ByDate(f, "as_of_date", frac); err == nil {
			t.Fatalf("fraction %v accepted", frac)
		}
	}
}

func TestByDateChronologicalOrderPreserved(t *testing.T) {
	var dates []string
	for i := 0; i < 12; i++ {
		dates = append(dates, fmt.Sprintf("2026-04-%02d", i+1))
	}
	ds, err := ByDate(frameWithDates(t, dates), "as_of_date", 0.25)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	trainDates, _ := ds.Train.Dates("as_of_date")
	for i := 1; i < len(trainDates); i++ {
		if trainDates[i].Before(trainDates[i-1]) {
			t.Fatal("train rows reordered")
		}
	}
}
