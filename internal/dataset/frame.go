package dataset

import (
	"fmt"
	"math"
	"sort"
	"time"
)

type ColType int

const (
	Numeric ColType = iota
	Categorical
)

// Column holds one typed column. Numeric columns use NaN for missing values;
// categorical columns use the empty string.
type Column struct {
	Name string
	Type ColType
	Nums []float64
	Cats []string
}

func (c *Column) Len() int {
	if c.Type == Numeric {
		return len(c.Nums)
	}
	return len(c.Cats)
}

// Frame is a small column-oriented table. It is deliberately append-only:
// transformations produce new frames instead of mutating shared columns.
type Frame struct {
	cols   []*Column
	byName map[string]int
	n      int
}

func NewFrame() *Frame {
	return &Frame{byName: map[string]int{}}
}

func (f *Frame) NumRows() int { return f.n }
func (f *Frame) NumCols() int { return len(f.cols) }

func (f *Frame) ColumnNames() []string {
	out := make([]string, len(f.cols))
	for i, c := range f.cols {
		out[i] = c.Name
	}
	return out
}

func (f *Frame) HasColumn(name string) bool {
	_, ok := f.byName[name]
	return ok
}

func (f *Frame) Column(name string) *Column {
	idx, ok := f.byName[name]
	if !ok {
		return nil
	}
	return f.cols[idx]
}

func (f *Frame) AddColumn(col *Column) error {
	if col == nil || col.Name == "" {
		return fmt.Errorf("dataset: column must have a name")
	}
	if _, exists := f.byName[col.Name]; exists {
		return fmt.Errorf("dataset: duplicate column %q", col.Name)
	}
	if len(f.cols) > 0 && col.Len() != f.n {
		return fmt.Errorf("dataset: column %q has %d rows, frame has %d", col.Name, col.Len(), f.n)
	}
	if len(f.cols) == 0 {
		f.n = col.Len()
	}
	f.byName[col.Name] = len(f.cols)
	f.cols = append(f.cols, col)
	return nil
}

// Select returns a frame sharing column storage with f, keeping only the
// named columns in the given order.
func (f *Frame) Select(names []string) (*Frame, error) {
	out := NewFrame()
	for _, name := range names {
		col := f.Column(name)
		if col == nil {
			return nil, fmt.Errorf("dataset: unknown column %q", name)
		}
		if err := out.AddColumn(col); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Drop returns a frame without the named columns, preserving order.
func (f *Frame) Drop(names ...string) *Frame {
	skip := map[string]bool{}
	for _, n := range names {
		skip[n] = true
	}
	out := NewFrame()
	for _, col := range f.cols {
		if skip[col.Name] {
			continue
		}
		_ = out.AddColumn(col)
	}
	return out
}

// TakeRows materializes a frame with only the given row indices.
func (f *Frame) TakeRows(idx []int) *Frame {
	out := NewFrame()
	for _, col := range f.cols {
		nc := &Column{Name: col.Name, Type: col.Type}
		if col.Type == Numeric {
			nc.Nums = make([]float64, len(idx))
			for i, r := range idx {
				nc.Nums[i] = col.Nums[r]
			}
		} else {
			nc.Cats = make([]string, len(idx))
			for i, r := range idx {
				nc.Cats[i] = col.Cats[r]
			}
		}
		_ = out.AddColumn(nc)
	}
	return out
}

// NumericValues returns the non-missing values of a numeric column.
func (f *Frame) NumericValues(name string) ([]float64, error) {
	col := f.Column(name)
	if col == nil {
		return nil, fmt.Errorf("dataset: unknown column %q", name)
	}
	if col.Type != Numeric {
		return nil, fmt.Errorf("dataset: column %q is not numeric", name)
	}
	out := make([]float64, 0, len(col.Nums))
	for _, v := range col.Nums {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out, nil
}

// DateLayout is the wire format for as_of_date values.
const DateLayout = "2006-01-02"

// Dates parses a categorical column of ISO dates. Unparseable cells are an
// error: the date column is load-bearing for splits and joins.
func (f *Frame) Dates(name string) ([]time.Time, error) {
	col := f.Column(name)
	if col == nil {
		return nil, fmt.Errorf("dataset: unknown column %q", name)
	}
	if col.Type != Categorical {
		return nil, fmt.Errorf("dataset: column %q is not a date string column", name)
	}
	out := make([]time.Time, len(col.Cats))
	for i, s := range col.Cats {
		t, err := time.Parse(DateLayout, s)
		if err != nil {
			return nil, fmt.Errorf("dataset: row %d: bad date %q: %w", i, s, err)
		}
		out[i] = t
	}
	return out, nil
}

// DistinctSortedDates returns the sorted set of distinct dates in a column.
func (f *Frame) DistinctSortedDates(name string) ([]time.Time, error) {
	dates, err := f.Dates(name)
	if err != nil {
		return nil, err
	}
	seen := map[time.Time]bool{}
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}
