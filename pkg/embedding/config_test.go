package embedding

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTableConfig(t *testing.T) {
	for _, combiner := range []Combiner{Mean, Sum, SqrtN} {
		for _, size := range [][2]int{{1, 1}, {10, 4}, {100000, 512}} {
			table, err := NewTableConfig(size[0], size[1], combiner, "t")
			require.NoError(t, err)
			require.Equal(t, size[0], table.VocabularySize())
			require.Equal(t, size[1], table.Dim())
			require.Equal(t, combiner, table.Combiner())
			require.Equal(t, "t", table.Name())
		}
	}
}

func TestNewTableConfig_Invalid(t *testing.T) {
	tests := []struct {
		vocabularySize int
		dim            int
		combiner       Combiner
		field          string
	}{
		{vocabularySize: 0, dim: 4, combiner: Mean, field: "vocabulary_size"},
		{vocabularySize: -3, dim: 4, combiner: Mean, field: "vocabulary_size"},
		{vocabularySize: 10, dim: 0, combiner: Sum, field: "dim"},
		{vocabularySize: 10, dim: 4, combiner: "max", field: "combiner"},
		{vocabularySize: 10, dim: 4, combiner: "", field: "combiner"},
	}

	for _, tt := range tests {
		table, err := NewTableConfig(tt.vocabularySize, tt.dim, tt.combiner, "")
		require.Nil(t, table)
		require.True(t, errors.Is(err, ErrInvalidConfig))
		var validationErr *ValidationError
		require.True(t, errors.As(err, &validationErr))
		require.Equal(t, tt.field, validationErr.Field)
	}
}

func TestTableConfig_String(t *testing.T) {
	table, err := NewTableConfig(10, 4, Mean, "f")
	require.NoError(t, err)
	require.Equal(t, `TableConfig(vocabulary_size=10, dim=4, combiner="mean", name="f")`, table.String())

	feature, err := NewFeatureConfig(table, 3, "g")
	require.NoError(t, err)
	require.Equal(t,
		`FeatureConfig(table=TableConfig(vocabulary_size=10, dim=4, combiner="mean", name="f"), max_sequence_length=3, name="g")`,
		feature.String())
}

func TestNewFeatureConfig(t *testing.T) {
	table, err := NewTableConfig(10, 4, Sum, "shared")
	require.NoError(t, err)

	feature, err := NewFeatureConfig(table, 0, "")
	require.NoError(t, err)
	require.Same(t, table, feature.Table())
	require.Equal(t, 0, feature.MaxSequenceLength())

	_, err = NewFeatureConfig(nil, 0, "")
	require.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = NewFeatureConfig(&TableConfig{}, 0, "")
	require.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = NewFeatureConfig(table, -1, "")
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Equal(t, "max_sequence_length", validationErr.Field)
	require.Equal(t, "invalid max_sequence_length -1", err.Error())
}
