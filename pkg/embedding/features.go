package embedding

import (
	"fmt"
	"sort"

	"github.com/nlpodyssey/spago/pkg/ml/ag"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Features owns one embedding table per distinct table name and computes pooled
// embeddings for the configured features.
type Features struct {
	featureConfig map[string]*FeatureConfig
	filter        FeatureFilter
	tables        map[string]*Table
}

type options struct {
	strictTables bool
}

type Option func(*options)

// WithStrictTables rejects construction when two same-named table configs disagree on
// vocabulary size, dimension or combiner, instead of keeping the first one.
func WithStrictTables() Option {
	return func(o *options) {
		o.strictTables = true
	}
}

// New builds the tables for featureConfig. Tables are deduplicated by name; when two configs
// share a name the one referenced by the lowest feature name is materialized.
func New(featureConfig map[string]*FeatureConfig, opts ...Option) (*Features, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	names := make([]string, 0, len(featureConfig))
	for name, feature := range featureConfig {
		if feature == nil {
			return nil, &ValidationError{Field: "feature " + name, Value: "<nil>"}
		}
		names = append(names, name)
	}
	sort.Strings(names)

	tableConfigs := map[string]*TableConfig{}
	var tableNames []string
	for _, name := range names {
		table := featureConfig[name].Table()
		existing, ok := tableConfigs[table.Name()]
		if !ok {
			tableConfigs[table.Name()] = table
			tableNames = append(tableNames, table.Name())
			continue
		}
		if existing == table || existing.sameShape(table) {
			continue
		}
		if o.strictTables {
			return nil, fmt.Errorf("%w: feature %s has %s, table already defined as %s",
				ErrConflictingTables, name, table, existing)
		}
		log.Warn().Str("Feature", name).Str("Table", table.Name()).
			Str("Kept", existing.String()).Str("Dropped", table.String()).
			Msg("Table name already in use, dropping conflicting config")
	}

	tables := make(map[string]*Table, len(tableNames))
	for _, name := range tableNames {
		tables[name] = NewTable(tableConfigs[name])
		log.Debug().Str("Table", name).
			Int("VocabularySize", tableConfigs[name].VocabularySize()).
			Int("Dim", tableConfigs[name].Dim()).
			Str("Combiner", string(tableConfigs[name].Combiner())).
			Msg("Created embedding table")
	}

	return &Features{
		featureConfig: featureConfig,
		filter:        NewFeatureFilter(names...),
		tables:        tables,
	}, nil
}

// Init initializes every table from N(0, 1) using a generator seeded with seed.
func (f *Features) Init(seed uint64) {
	dist := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(seed)}
	for _, name := range f.TableNames() {
		f.tables[name].Init(dist)
	}
}

func (f *Features) FeatureConfig() map[string]*FeatureConfig { return f.featureConfig }

// FeatureNames returns the configured feature names in ascending order.
func (f *Features) FeatureNames() []string { return f.filter.Names() }

func (f *Features) Table(name string) (*Table, bool) {
	t, ok := f.tables[name]
	return t, ok
}

// TableNames returns the materialized table names in ascending order.
func (f *Features) TableNames() []string {
	result := make([]string, 0, len(f.tables))
	for name := range f.tables {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// Tables returns the tables in TableNames order, e.g. for nn.NewDefaultParamsIterator.
func (f *Features) Tables() []*Table {
	names := f.TableNames()
	result := make([]*Table, len(names))
	for i, name := range names {
		result[i] = f.tables[name]
	}
	return result
}

// OutputDim is the width of all feature embeddings concatenated.
func (f *Features) OutputDim() int {
	dim := 0
	for _, feature := range f.featureConfig {
		dim += feature.Table().Dim()
	}
	return dim
}

// Forward embeds the configured features of inputs; other inputs are ignored. Each result holds
// one pooled vector of the table's dimension per example.
func (f *Features) Forward(g *ag.Graph, inputs map[string]Input) (map[string][]ag.Node, error) {
	filtered := f.filter.Filter(inputs)
	result := make(map[string][]ag.Node, len(filtered))
	for name, input := range filtered {
		tableName := f.featureConfig[name].Table().Name()
		table, ok := f.tables[tableName]
		if !ok {
			return nil, fmt.Errorf("%w: %q for feature %s", ErrTableNotFound, tableName, name)
		}

		bags, err := input.bags()
		if err != nil {
			return nil, fmt.Errorf("feature %s: %w", name, err)
		}
		pooled := make([]ag.Node, len(bags))
		for i, bag := range bags {
			if pooled[i], err = table.Lookup(g, bag); err != nil {
				return nil, fmt.Errorf("feature %s example %d: %w", name, i, err)
			}
		}
		result[name] = pooled
	}
	return result, nil
}

// ForwardOutputSize returns the (batch_size, dim) shape Forward produces for every configured
// feature, without computing anything. The batch size comes from the first configured input.
func (f *Features) ForwardOutputSize(inputSizes map[string]InputSize) (map[string][]int, error) {
	batchSize, err := f.batchSize(inputSizes)
	if err != nil {
		return nil, err
	}
	sizes := make(map[string][]int, len(f.featureConfig))
	for name, feature := range f.featureConfig {
		sizes[name] = []int{batchSize, feature.Table().Dim()}
	}
	return sizes, nil
}

func (f *Features) batchSize(inputSizes map[string]InputSize) (int, error) {
	filtered := f.filter.FilterSizes(inputSizes)
	names := make([]string, 0, len(filtered))
	for name := range filtered {
		names = append(names, name)
	}
	if len(names) == 0 {
		return 0, fmt.Errorf("%w: no input size for any configured feature", ErrShape)
	}
	sort.Strings(names)
	return filtered[names[0]].batchSize()
}
