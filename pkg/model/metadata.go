package model

import (
	"sort"

	"tabemb/pkg/schema"
)

// OutOfVocabulary is the index of values not seen while building the metadata.
const OutOfVocabulary = 0

// NameMap implements a bidirectional mapping between a category value and an index.
// Index 0 is reserved for out-of-vocabulary values.
type NameMap struct {
	NameToIndex map[string]int
	IndexToName map[int]string
}

func NewNameMap() NameMap {
	return NameMap{
		NameToIndex: map[string]int{},
		IndexToName: map[int]string{},
	}
}

func (f NameMap) Set(name string, index int) {
	f.NameToIndex[name] = index
	f.IndexToName[index] = name
}

// Size is the number of known values plus the out-of-vocabulary slot.
func (f NameMap) Size() int {
	return len(f.IndexToName) + 1
}

// ValueFor returns the index of name, adding it if it is new.
func (f NameMap) ValueFor(name string) int {
	index, ok := f.NameToIndex[name]
	if !ok {
		index = f.Size()
		f.Set(name, index)
	}
	return index
}

// IndexFor returns the index of name, or OutOfVocabulary.
func (f NameMap) IndexFor(name string) (int, bool) {
	index, ok := f.NameToIndex[name]
	if !ok {
		return OutOfVocabulary, false
	}
	return index, true
}

type Metadata struct {
	Columns []string

	// CategoricalFeaturesMap maps a data row column index to the feature name
	CategoricalFeaturesMap map[int]string

	// CategoricalValuesMap holds the value to index mapping of each feature
	CategoricalValuesMap map[string]NameMap

	// MultiValued contains the features whose cells hold several values
	MultiValued map[string]bool

	// Separator splits the values of a multi-valued cell
	Separator string
}

func NewMetadata() *Metadata {
	return &Metadata{
		CategoricalFeaturesMap: map[int]string{},
		CategoricalValuesMap:   map[string]NameMap{},
		MultiValued:            map[string]bool{},
	}
}

// FeatureNames returns the categorical feature names in column order.
func (d *Metadata) FeatureNames() []string {
	columns := make([]int, 0, len(d.CategoricalFeaturesMap))
	for column := range d.CategoricalFeaturesMap {
		columns = append(columns, column)
	}
	sort.Ints(columns)
	result := make([]string, len(columns))
	for i, column := range columns {
		result[i] = d.CategoricalFeaturesMap[column]
	}
	return result
}

func (d *Metadata) HasFeature(name string) bool {
	for _, feature := range d.CategoricalFeaturesMap {
		if feature == name {
			return true
		}
	}
	return false
}

// Cardinality is the vocabulary size needed to embed feature, out-of-vocabulary slot included.
func (d *Metadata) Cardinality(feature string) int {
	values, ok := d.CategoricalValuesMap[feature]
	if !ok {
		return 1
	}
	return values.Size()
}

// ColumnGroup describes the categorical features. Every column is tagged categorical, multi-valued
// ones also multi_valued, plus any extra tags given per feature.
func (d *Metadata) ColumnGroup(extraTags map[string][]string) *schema.Group {
	var columns []schema.Column
	for _, name := range d.FeatureNames() {
		tags := []string{schema.Categorical}
		if d.MultiValued[name] {
			tags = append(tags, schema.MultiValued)
		}
		tags = append(tags, extraTags[name]...)
		columns = append(columns, schema.Column{
			Name:        name,
			Cardinality: d.Cardinality(name),
			Tags:        tags,
		})
	}
	return schema.New(columns...)
}
