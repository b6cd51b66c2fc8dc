package embedding

import "fmt"

// Snapshot is a plain-data copy of a Features, suitable for gob encoding.
type Snapshot struct {
	Features []FeatureSnapshot
	Tables   []TableSnapshot
}

type TableConfigSnapshot struct {
	VocabularySize int
	Dim            int
	Combiner       Combiner
	Name           string
}

type FeatureSnapshot struct {
	Key               string
	Table             TableConfigSnapshot
	MaxSequenceLength int
	Name              string
}

type TableSnapshot struct {
	Name    string
	Weights [][]float32
}

func snapshotTableConfig(t *TableConfig) TableConfigSnapshot {
	return TableConfigSnapshot{
		VocabularySize: t.VocabularySize(),
		Dim:            t.Dim(),
		Combiner:       t.Combiner(),
		Name:           t.Name(),
	}
}

func (f *Features) Snapshot() Snapshot {
	s := Snapshot{}
	for _, name := range f.FeatureNames() {
		feature := f.featureConfig[name]
		s.Features = append(s.Features, FeatureSnapshot{
			Key:               name,
			Table:             snapshotTableConfig(feature.Table()),
			MaxSequenceLength: feature.MaxSequenceLength(),
			Name:              feature.Name(),
		})
	}
	for _, table := range f.Tables() {
		weights := make([][]float32, len(table.Weights))
		for i := range weights {
			weights[i], _ = table.Vector(i)
		}
		s.Tables = append(s.Tables, TableSnapshot{Name: table.Config().Name(), Weights: weights})
	}
	return s
}

// FromSnapshot rebuilds a Features and restores its weights. Features that shared a table
// config share it again.
func FromSnapshot(s Snapshot, opts ...Option) (*Features, error) {
	tableConfigs := map[TableConfigSnapshot]*TableConfig{}
	featureConfig := make(map[string]*FeatureConfig, len(s.Features))
	for _, fs := range s.Features {
		table, ok := tableConfigs[fs.Table]
		if !ok {
			var err error
			table, err = NewTableConfig(fs.Table.VocabularySize, fs.Table.Dim, fs.Table.Combiner, fs.Table.Name)
			if err != nil {
				return nil, fmt.Errorf("feature %s: %w", fs.Key, err)
			}
			tableConfigs[fs.Table] = table
		}
		feature, err := NewFeatureConfig(table, fs.MaxSequenceLength, fs.Name)
		if err != nil {
			return nil, fmt.Errorf("feature %s: %w", fs.Key, err)
		}
		featureConfig[fs.Key] = feature
	}

	f, err := New(featureConfig, opts...)
	if err != nil {
		return nil, err
	}
	for _, ts := range s.Tables {
		table, ok := f.Table(ts.Name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrTableNotFound, ts.Name)
		}
		if len(ts.Weights) != len(table.Weights) {
			return nil, fmt.Errorf("%w: table %q has %d rows, snapshot %d",
				ErrShape, ts.Name, len(table.Weights), len(ts.Weights))
		}
		for i, row := range ts.Weights {
			if err := table.SetVector(i, row); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}
