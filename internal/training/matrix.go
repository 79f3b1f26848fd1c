package training

// Matrix is a dense row-major design matrix produced by the preprocessor.
type Matrix struct {
	FeatureNames []string
	Rows         [][]float64
}

func (m *Matrix) NumRows() int { return len(m.Rows) }

func (m *Matrix) NumFeatures() int { return len(m.FeatureNames) }
