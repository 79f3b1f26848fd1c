package dataset

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/churnflow/churnflow/internal/domain"
)

// ReadCSV loads a CSV file into a typed frame. Column types come from the
// schema when declared; undeclared columns fall back to runtime inference
// (numeric iff every non-empty cell parses as a float). Empty cells are
// missing values.
func ReadCSV(path string, schema *Schema) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrInputMissing, path)
		}
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrSchemaInvalid, path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s: no header row", domain.ErrSchemaInvalid, path)
	}

	header := records[0]
	rows := records[1:]
	for i, rec := range rows {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("%w: %s: row %d has %d fields, header has %d",
				domain.ErrSchemaInvalid, path, i+1, len(rec), len(header))
		}
	}

	frame := NewFrame()
	for ci, name := range header {
		raw := make([]string, len(rows))
		for ri, rec := range rows {
			raw[ri] = rec[ci]
		}
		col := buildColumn(name, raw, schema)
		if err := frame.AddColumn(col); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrSchemaInvalid, path, err)
		}
	}
	return frame, nil
}

func buildColumn(name string, raw []string, schema *Schema) *Column {
	typ, declared := Categorical, false
	if schema != nil {
		typ, declared = schema.TypeOf(name)
	}
	if !declared {
		typ = inferType(raw)
	}
	col := &Column{Name: name, Type: typ}
	if typ == Numeric {
		col.Nums = make([]float64, len(raw))
		for i, s := range raw {
			if s == "" {
				col.Nums[i] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				v = math.NaN()
			}
			col.Nums[i] = v
		}
		return col
	}
	col.Cats = raw
	return col
}

func inferType(raw []string) ColType {
	sawValue := false
	for _, s := range raw {
		if s == "" {
			continue
		}
		sawValue = true
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return Categorical
		}
	}
	if !sawValue {
		return Categorical
	}
	return Numeric
}

// WriteCSV writes the frame with its current column order. Numeric NaNs
// become empty cells.
func WriteCSV(path string, f *Frame) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(f.ColumnNames()); err != nil {
		return err
	}
	rec := make([]string, f.NumCols())
	for r := 0; r < f.NumRows(); r++ {
		for ci, name := range f.ColumnNames() {
			col := f.Column(name)
			if col.Type == Numeric {
				v := col.Nums[r]
				if math.IsNaN(v) {
					rec[ci] = ""
				} else {
					rec[ci] = strconv.FormatFloat(v, 'g', -1, 64)
				}
			} else {
				rec[ci] = col.Cats[r]
			}
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
