// Package config holds the YAML build configuration: which columns are embedded and how.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"tabemb/pkg/embedding"
)

// TableConfig declares an embedding table that several features may share.
type TableConfig struct {
	Name           string `yaml:"name"`
	VocabularySize int    `yaml:"vocabulary_size"`
	Dim            int    `yaml:"dim"`
	Combiner       string `yaml:"combiner,omitempty"`
}

// FeatureConfig binds a data column to a declared table.
type FeatureConfig struct {
	Name              string `yaml:"name"`
	Table             string `yaml:"table"`
	MaxSequenceLength int    `yaml:"max_sequence_length,omitempty"`
}

type Config struct {
	CategoricalColumns  []string            `yaml:"categorical_columns"`
	MultiValuedColumns  []string            `yaml:"multi_valued_columns,omitempty"`
	Separator           string              `yaml:"separator"`
	ColumnTags          map[string][]string `yaml:"column_tags,omitempty"`
	Combiner            string              `yaml:"combiner"`
	DefaultEmbeddingDim int                 `yaml:"default_embedding_dim"`
	InferEmbeddingSizes bool                `yaml:"infer_embedding_sizes"`
	EmbeddingDims       map[string]int      `yaml:"embedding_dims,omitempty"`
	Tags                []string            `yaml:"tags,omitempty"`
	TagsToFilter        []string            `yaml:"tags_to_filter,omitempty"`
	StrictTables        bool                `yaml:"strict_tables"`
	RandomSeed          uint64              `yaml:"random_seed"`

	// Tables and Features, when present, replace the tables inferred from the data.
	Tables   []TableConfig   `yaml:"tables,omitempty"`
	Features []FeatureConfig `yaml:"features,omitempty"`
}

func Default() *Config {
	o := embedding.DefaultFactoryOptions()
	return &Config{
		Separator:           "|",
		Combiner:            string(o.Combiner),
		DefaultEmbeddingDim: o.DefaultEmbeddingDim,
		InferEmbeddingSizes: o.InferEmbeddingSizes,
		RandomSeed:          42,
	}
}

// Load reads a config from path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to path, creating directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) FactoryOptions() embedding.FactoryOptions {
	return embedding.FactoryOptions{
		EmbeddingDims:       c.EmbeddingDims,
		DefaultEmbeddingDim: c.DefaultEmbeddingDim,
		InferEmbeddingSizes: c.InferEmbeddingSizes,
		Combiner:            embedding.Combiner(c.Combiner),
		Tags:                c.Tags,
		TagsToFilter:        c.TagsToFilter,
	}
}

func (c *Config) Options() []embedding.Option {
	if c.StrictTables {
		return []embedding.Option{embedding.WithStrictTables()}
	}
	return nil
}

func (c *Config) HasExplicitFeatures() bool {
	return len(c.Features) > 0
}

// FeatureConfigs builds the declared features. Features naming the same table share one
// TableConfig.
func (c *Config) FeatureConfigs() (map[string]*embedding.FeatureConfig, error) {
	tables := make(map[string]*embedding.TableConfig, len(c.Tables))
	for _, t := range c.Tables {
		if _, ok := tables[t.Name]; ok {
			return nil, fmt.Errorf("table %s declared twice", t.Name)
		}
		combiner := t.Combiner
		if combiner == "" {
			combiner = c.Combiner
		}
		table, err := embedding.NewTableConfig(t.VocabularySize, t.Dim, embedding.Combiner(combiner), t.Name)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", t.Name, err)
		}
		tables[t.Name] = table
	}

	features := make(map[string]*embedding.FeatureConfig, len(c.Features))
	for _, f := range c.Features {
		table, ok := tables[f.Table]
		if !ok {
			return nil, fmt.Errorf("feature %s: %w: %q", f.Name, embedding.ErrTableNotFound, f.Table)
		}
		feature, err := embedding.NewFeatureConfig(table, f.MaxSequenceLength, f.Name)
		if err != nil {
			return nil, fmt.Errorf("feature %s: %w", f.Name, err)
		}
		features[f.Name] = feature
	}
	return features, nil
}
