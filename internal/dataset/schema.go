package dataset

// Schema declares column types up front. Declared types always win over
// runtime inference, which exists only as the fallback for columns nobody
// declared.
type Schema struct {
	types map[string]ColType
}

func NewSchema() *Schema {
	return &Schema{types: map[string]ColType{}}
}

func (s *Schema) DeclareNumeric(names ...string) *Schema {
	for _, n := range names {
		s.types[n] = Numeric
	}
	return s
}

func (s *Schema) DeclareCategorical(names ...string) *Schema {
	for _, n := range names {
		s.types[n] = Categorical
	}
	return s
}

func (s *Schema) TypeOf(name string) (ColType, bool) {
	if s == nil {
		return Categorical, false
	}
	t, ok := s.types[name]
	return t, ok
}
