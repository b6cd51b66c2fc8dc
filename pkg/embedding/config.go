package embedding

import "fmt"

// Combiner is the reduction applied over the embeddings of one bag.
type Combiner string

const (
	Mean  Combiner = "mean"
	Sum   Combiner = "sum"
	SqrtN Combiner = "sqrtn"
)

func (c Combiner) valid() bool {
	switch c {
	case Mean, Sum, SqrtN:
		return true
	}
	return false
}

// TableConfig describes one embedding table. It is immutable once built by NewTableConfig.
type TableConfig struct {
	vocabularySize int
	dim            int
	combiner       Combiner
	name           string
}

func NewTableConfig(vocabularySize, dim int, combiner Combiner, name string) (*TableConfig, error) {
	t := &TableConfig{
		vocabularySize: vocabularySize,
		dim:            dim,
		combiner:       combiner,
		name:           name,
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *TableConfig) validate() error {
	if t.vocabularySize < 1 {
		return &ValidationError{Field: "vocabulary_size", Value: t.vocabularySize}
	}
	if t.dim < 1 {
		return &ValidationError{Field: "dim", Value: t.dim}
	}
	if !t.combiner.valid() {
		return &ValidationError{Field: "combiner", Value: t.combiner}
	}
	return nil
}

func (t *TableConfig) VocabularySize() int { return t.vocabularySize }
func (t *TableConfig) Dim() int            { return t.dim }
func (t *TableConfig) Combiner() Combiner  { return t.combiner }
func (t *TableConfig) Name() string        { return t.name }

// sameShape reports whether two configs would materialize identical tables.
func (t *TableConfig) sameShape(o *TableConfig) bool {
	return t.vocabularySize == o.vocabularySize && t.dim == o.dim && t.combiner == o.combiner
}

func (t *TableConfig) String() string {
	return fmt.Sprintf("TableConfig(vocabulary_size=%d, dim=%d, combiner=%q, name=%q)",
		t.vocabularySize, t.dim, t.combiner, t.name)
}

// FeatureConfig binds a feature to a (possibly shared) table.
type FeatureConfig struct {
	table             *TableConfig
	maxSequenceLength int
	name              string
}

func NewFeatureConfig(table *TableConfig, maxSequenceLength int, name string) (*FeatureConfig, error) {
	if table == nil {
		return nil, &ValidationError{Field: "table", Value: "<nil>"}
	}
	// a zero TableConfig built without NewTableConfig is not a valid table
	if err := table.validate(); err != nil {
		return nil, &ValidationError{Field: "table", Value: table}
	}
	if maxSequenceLength < 0 {
		return nil, &ValidationError{Field: "max_sequence_length", Value: maxSequenceLength}
	}
	return &FeatureConfig{
		table:             table,
		maxSequenceLength: maxSequenceLength,
		name:              name,
	}, nil
}

func (f *FeatureConfig) Table() *TableConfig    { return f.table }
func (f *FeatureConfig) MaxSequenceLength() int { return f.maxSequenceLength }
func (f *FeatureConfig) Name() string           { return f.name }

func (f *FeatureConfig) String() string {
	return fmt.Sprintf("FeatureConfig(table=%s, max_sequence_length=%d, name=%q)",
		f.table, f.maxSequenceLength, f.name)
}
