// Package schema describes the categorical columns of a dataset: their cardinalities, tags and
// the embedding sizes inferred from them.
package schema

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"tabemb/pkg/embedding"
)

const (
	Categorical = "categorical"
	MultiValued = "multi_valued"
	Continuous  = "continuous"
)

const (
	DefaultMinEmbeddingSize = 16
	DefaultMaxEmbeddingSize = 512
)

var _ embedding.ColumnGroup = &Group{}

type Column struct {
	Name        string   `yaml:"name"`
	Cardinality int      `yaml:"cardinality"`
	Tags        []string `yaml:"tags,omitempty"`
}

func (c Column) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (c Column) hasAny(tags []string) bool {
	for _, tag := range tags {
		if c.HasTag(tag) {
			return true
		}
	}
	return false
}

// Group is an ordered set of columns.
type Group struct {
	Columns          []Column `yaml:"columns"`
	MinEmbeddingSize int      `yaml:"min_embedding_size,omitempty"`
	MaxEmbeddingSize int      `yaml:"max_embedding_size,omitempty"`
}

func New(columns ...Column) *Group {
	return &Group{
		Columns:          columns,
		MinEmbeddingSize: DefaultMinEmbeddingSize,
		MaxEmbeddingSize: DefaultMaxEmbeddingSize,
	}
}

func (g *Group) Names() []string {
	result := make([]string, len(g.Columns))
	for i, c := range g.Columns {
		result[i] = c.Name
	}
	return result
}

func (g *Group) Cardinalities() map[string]int {
	result := make(map[string]int, len(g.Columns))
	for _, c := range g.Columns {
		result[c.Name] = c.Cardinality
	}
	return result
}

func (g *Group) EmbeddingSizes() map[string]embedding.EmbeddingSize {
	result := make(map[string]embedding.EmbeddingSize, len(g.Columns))
	for _, c := range g.Columns {
		result[c.Name] = embedding.EmbeddingSize{
			VocabularySize: c.Cardinality,
			Dim:            EmbeddingSizeRule(c.Cardinality, g.MinEmbeddingSize, g.MaxEmbeddingSize),
		}
	}
	return result
}

// GetTagged keeps the columns carrying any of tags and none of tagsToFilter.
func (g *Group) GetTagged(tags, tagsToFilter []string) embedding.ColumnGroup {
	return g.Tagged(tags, tagsToFilter)
}

// Tagged is GetTagged returning the concrete group.
func (g *Group) Tagged(tags, tagsToFilter []string) *Group {
	result := &Group{MinEmbeddingSize: g.MinEmbeddingSize, MaxEmbeddingSize: g.MaxEmbeddingSize}
	for _, c := range g.Columns {
		if c.hasAny(tags) && !c.hasAny(tagsToFilter) {
			result.Columns = append(result.Columns, c)
		}
	}
	return result
}

// EmbeddingSizeRule is round(1.6 * cardinality^0.56) clamped to [minSize, maxSize].
// A non-positive bound disables that side of the clamp.
func EmbeddingSizeRule(cardinality, minSize, maxSize int) int {
	size := int(math.Round(1.6 * math.Pow(float64(cardinality), 0.56)))
	if minSize > 0 && size < minSize {
		size = minSize
	}
	if maxSize > 0 && size > maxSize {
		size = maxSize
	}
	return size
}

// Load reads a YAML group description.
func Load(path string) (*Group, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading schema %s: %w", path, err)
	}
	g := New()
	if err := yaml.Unmarshal(data, g); err != nil {
		return nil, fmt.Errorf("error parsing schema %s: %w", path, err)
	}
	return g, nil
}

func Save(path string, g *Group) error {
	data, err := yaml.Marshal(g)
	if err != nil {
		return fmt.Errorf("error encoding schema: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
