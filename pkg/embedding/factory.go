package embedding

import (
	"fmt"
	"sort"
)

// EmbeddingSize is the (vocabulary size, dimension) pair inferred for a column.
type EmbeddingSize struct {
	VocabularySize int
	Dim            int
}

// ColumnGroup describes the categorical columns of a dataset.
type ColumnGroup interface {
	Cardinalities() map[string]int
	EmbeddingSizes() map[string]EmbeddingSize
	GetTagged(tags, tagsToFilter []string) ColumnGroup
}

type FactoryOptions struct {
	// EmbeddingDims overrides DefaultEmbeddingDim per column when sizes are not inferred.
	EmbeddingDims       map[string]int
	DefaultEmbeddingDim int
	InferEmbeddingSizes bool
	Combiner            Combiner
	Tags                []string
	TagsToFilter        []string
}

func DefaultFactoryOptions() FactoryOptions {
	return FactoryOptions{
		DefaultEmbeddingDim: 64,
		InferEmbeddingSizes: true,
		Combiner:            Mean,
	}
}

// Sizes returns the embedding size of every column of group selected by the options.
func (o FactoryOptions) Sizes(group ColumnGroup) map[string]EmbeddingSize {
	if len(o.Tags) > 0 {
		group = group.GetTagged(o.Tags, o.TagsToFilter)
	}
	if o.InferEmbeddingSizes {
		return group.EmbeddingSizes()
	}
	sizes := map[string]EmbeddingSize{}
	for name, cardinality := range group.Cardinalities() {
		dim, ok := o.EmbeddingDims[name]
		if !ok {
			dim = o.DefaultEmbeddingDim
		}
		sizes[name] = EmbeddingSize{VocabularySize: cardinality, Dim: dim}
	}
	return sizes
}

// FromColumnGroup builds one table per selected column, named after the column. It returns
// nil and no error when no column is selected.
func FromColumnGroup(group ColumnGroup, o FactoryOptions, opts ...Option) (*Features, error) {
	sizes := o.Sizes(group)

	names := make([]string, 0, len(sizes))
	for name := range sizes {
		names = append(names, name)
	}
	sort.Strings(names)

	featureConfig := make(map[string]*FeatureConfig, len(sizes))
	for _, name := range names {
		table, err := NewTableConfig(sizes[name].VocabularySize, sizes[name].Dim, o.Combiner, name)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		if featureConfig[name], err = NewFeatureConfig(table, 0, ""); err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
	}

	if len(featureConfig) == 0 {
		return nil, nil
	}
	return New(featureConfig, opts...)
}
