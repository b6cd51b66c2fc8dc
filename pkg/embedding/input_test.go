package embedding

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustIndices(t *testing.T, data []int, shape ...int) *Indices {
	x, err := NewIndices(data, shape...)
	require.NoError(t, err)
	return x
}

func TestNewIndices_ShapeMismatch(t *testing.T) {
	_, err := NewIndices([]int{1, 2, 3}, 2, 2)
	require.True(t, errors.Is(err, ErrShape))
	_, err = NewIndices(nil, -1)
	require.True(t, errors.Is(err, ErrShape))
}

func TestInput_Bags(t *testing.T) {
	tests := []struct {
		name  string
		input Input
		bags  [][]int
	}{
		{
			name:  "dense scalar",
			input: DenseInput(Scalar(7)),
			bags:  [][]int{{7}},
		},
		{
			name:  "dense vector",
			input: DenseInput(Vector(1, 2, 3)),
			bags:  [][]int{{1}, {2}, {3}},
		},
		{
			name:  "dense single row pools as one bag",
			input: DenseInput(mustIndices(t, []int{1, 2, 3}, 1, 3)),
			bags:  [][]int{{1, 2, 3}},
		},
		{
			name:  "dense matrix",
			input: DenseInput(mustIndices(t, []int{1, 2, 3, 4, 5, 6}, 2, 3)),
			bags:  [][]int{{1, 2, 3}, {4, 5, 6}},
		},
		{
			name: "ragged with trailing singleton and two offset columns",
			input: BagInput(
				mustIndices(t, []int{1, 2, 3, 4, 5}, 5, 1),
				mustIndices(t, []int{0, 2, 2, 3, 3, 5}, 3, 2)),
			bags: [][]int{{1, 2}, {3}, {4, 5}},
		},
		{
			name:  "ragged single scalar value",
			input: BagInput(mustIndices(t, []int{4}, 1), mustIndices(t, []int{0}, 1, 1)),
			bags:  [][]int{{4}},
		},
		{
			name:  "ragged empty bag",
			input: BagInput(Vector(1, 2), Vector(0, 0)),
			bags:  [][]int{{}, {1, 2}},
		},
	}

	for _, tt := range tests {
		bags, err := tt.input.bags()
		require.NoError(t, err, tt.name)
		require.Equal(t, len(tt.bags), len(bags), tt.name)
		for i := range bags {
			require.ElementsMatch(t, tt.bags[i], bags[i], tt.name)
		}
	}
}

func TestInput_Bags_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input Input
	}{
		{name: "missing values", input: Input{}},
		{name: "rank 3 dense", input: DenseInput(mustIndices(t, make([]int, 8), 2, 2, 2))},
		{name: "rank 2 bag values", input: BagInput(mustIndices(t, make([]int, 4), 2, 2), Vector(0))},
		{name: "first offset not zero", input: BagInput(Vector(1, 2), Vector(1))},
		{name: "decreasing offsets", input: BagInput(Vector(1, 2, 3), Vector(0, 2, 1))},
		{name: "offset past values", input: BagInput(Vector(1, 2), Vector(0, 3))},
		{name: "scalar offsets", input: BagInput(Vector(1, 2), Scalar(0))},
	}

	for _, tt := range tests {
		_, err := tt.input.bags()
		require.True(t, errors.Is(err, ErrShape), tt.name)
	}
}

func TestFeatureFilter(t *testing.T) {
	f := NewFeatureFilter("b", "a")
	require.Equal(t, []string{"a", "b"}, f.Names())
	require.True(t, f.Contains("a"))
	require.False(t, f.Contains("c"))

	inputs := map[string]Input{
		"a": DenseInput(Vector(1)),
		"c": DenseInput(Vector(2)),
	}
	filtered := f.Filter(inputs)
	require.Len(t, filtered, 1)
	require.Contains(t, filtered, "a")

	sizes := f.FilterSizes(map[string]InputSize{"b": DenseSize(3), "c": DenseSize(3)})
	require.Equal(t, map[string]InputSize{"b": DenseSize(3)}, sizes)
}
