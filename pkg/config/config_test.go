package config

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"tabemb/pkg/embedding"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Equal(t, embedding.DefaultFactoryOptions().DefaultEmbeddingDim, cfg.FactoryOptions().DefaultEmbeddingDim)
	require.False(t, cfg.HasExplicitFeatures())
	require.Nil(t, cfg.Options())
}

func TestLoad_SharedTables(t *testing.T) {
	cfg, err := Load("testdata/shared.yaml")
	require.NoError(t, err)
	require.Equal(t, []string{"user", "country"}, cfg.CategoricalColumns)
	require.Equal(t, uint64(7), cfg.RandomSeed)
	require.True(t, cfg.InferEmbeddingSizes) // default kept
	require.True(t, cfg.HasExplicitFeatures())
	require.Equal(t, 1, len(cfg.Options()))

	features, err := cfg.FeatureConfigs()
	require.NoError(t, err)
	require.Equal(t, 2, len(features))
	require.Equal(t, embedding.Sum, features["country"].Table().Combiner())
	require.Equal(t, embedding.SqrtN, features["genres"].Table().Combiner())
	require.Equal(t, 5, features["genres"].MaxSequenceLength())
}

func TestFeatureConfigs_Invalid(t *testing.T) {
	cfg := Default()
	cfg.Tables = []TableConfig{{Name: "t", VocabularySize: 0, Dim: 2}}
	cfg.Features = []FeatureConfig{{Name: "f", Table: "t"}}
	_, err := cfg.FeatureConfigs()
	require.True(t, errors.Is(err, embedding.ErrInvalidConfig))

	cfg.Tables = []TableConfig{{Name: "t", VocabularySize: 4, Dim: 2}}
	cfg.Features = []FeatureConfig{{Name: "f", Table: "other"}}
	_, err = cfg.FeatureConfigs()
	require.True(t, errors.Is(err, embedding.ErrTableNotFound))

	cfg.Tables = []TableConfig{{Name: "t", VocabularySize: 4, Dim: 2}, {Name: "t", VocabularySize: 4, Dim: 2}}
	_, err = cfg.FeatureConfigs()
	require.Error(t, err)
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.CategoricalColumns = []string{"a"}
	cfg.EmbeddingDims = map[string]int{"a": 3}
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}
