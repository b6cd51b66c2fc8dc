package embedding

import (
	"errors"
	"math"
	"testing"

	mat "github.com/nlpodyssey/spago/pkg/mat32"
	"github.com/nlpodyssey/spago/pkg/ml/ag"
	"github.com/stretchr/testify/require"
)

func newSingleFeature(t *testing.T, combiner Combiner) *Features {
	table, err := NewTableConfig(10, 4, combiner, "f")
	require.NoError(t, err)
	feature, err := NewFeatureConfig(table, 0, "f")
	require.NoError(t, err)
	features, err := New(map[string]*FeatureConfig{"f": feature})
	require.NoError(t, err)
	features.Init(42)
	return features
}

func requireShape(t *testing.T, nodes []ag.Node, batchSize, dim int) {
	require.Equal(t, batchSize, len(nodes))
	for _, n := range nodes {
		require.Equal(t, dim, n.Value().Rows())
		require.Equal(t, 1, n.Value().Columns())
	}
}

func TestFeatures_Forward_Dense(t *testing.T) {
	features := newSingleFeature(t, Mean)
	g := ag.NewGraph()
	defer g.Clear()

	result, err := features.Forward(g, map[string]Input{
		"f":     DenseInput(Vector(0, 5, 9)),
		"other": DenseInput(Vector(1)),
	})
	require.NoError(t, err)
	require.Equal(t, 1, len(result))
	requireShape(t, result["f"], 3, 4)

	row, err := features.tables["f"].Vector(5)
	require.NoError(t, err)
	require.Equal(t, row, toFloat32(result["f"][1].Value().Data()))
}

func TestFeatures_Forward_Bags(t *testing.T) {
	features := newSingleFeature(t, Mean)
	g := ag.NewGraph()
	defer g.Clear()

	result, err := features.Forward(g, map[string]Input{
		"f": BagInput(
			mustIndices(t, []int{1, 2, 3, 4, 5}, 5, 1),
			mustIndices(t, []int{0, 0, 2, 0, 3, 0}, 3, 2)),
	})
	require.NoError(t, err)
	requireShape(t, result["f"], 3, 4)

	table := features.tables["f"]
	for i := 0; i < 10; i++ {
		require.NoError(t, table.SetVector(i, []float32{float32(i), float32(2 * i), 0, 1}))
	}
	result, err = features.Forward(g, map[string]Input{
		"f": BagInput(
			mustIndices(t, []int{1, 2, 3, 4, 5}, 5, 1),
			mustIndices(t, []int{0, 0, 2, 0, 3, 0}, 3, 2)),
	})
	require.NoError(t, err)
	expected := [][]float32{
		{1.5, 3, 0, 1}, // rows 1 and 2
		{3, 6, 0, 1},   // row 3 alone
		{4.5, 9, 0, 1}, // rows 4 and 5
	}
	for i, want := range expected {
		got := toFloat32(result["f"][i].Value().Data())
		for j := range want {
			require.InDelta(t, want[j], got[j], 1e-5, "bag %d", i)
		}
	}
}

func TestNewTable(t *testing.T) {
	config, err := NewTableConfig(5, 3, Sum, "t")
	require.NoError(t, err)
	table := NewTable(config)
	require.Equal(t, 5, len(table.Weights))
	for _, w := range table.Weights {
		require.Equal(t, 3, w.Value().Rows())
		require.Equal(t, 1, w.Value().Columns())
		require.Equal(t, []float32{0, 0, 0}, toFloat32(w.Value().Data()))
	}

	g := ag.NewGraph()
	defer g.Clear()
	require.NoError(t, table.SetVector(4, []float32{1, 2, 3}))
	row, err := table.Lookup(g, []int{4})
	require.NoError(t, err)
	require.Equal(t, []float32{1, 2, 3}, toFloat32(row.Value().Data()))
}

func TestFeatures_Forward_Scalar(t *testing.T) {
	features := newSingleFeature(t, Sum)
	g := ag.NewGraph()
	defer g.Clear()

	result, err := features.Forward(g, map[string]Input{"f": DenseInput(Scalar(3))})
	require.NoError(t, err)
	requireShape(t, result["f"], 1, 4)

	result, err = features.Forward(g, map[string]Input{
		"f": BagInput(mustIndices(t, []int{3}, 1, 1), mustIndices(t, []int{0, 1}, 1, 2)),
	})
	require.NoError(t, err)
	requireShape(t, result["f"], 1, 4)
}

func TestTable_Lookup_Combiners(t *testing.T) {
	tests := []struct {
		combiner Combiner
		expected []float32
	}{
		{combiner: Sum, expected: []float32{4, 6}},
		{combiner: Mean, expected: []float32{2, 3}},
		{combiner: SqrtN, expected: []float32{float32(4 / math.Sqrt2), float32(6 / math.Sqrt2)}},
	}

	for _, tt := range tests {
		config, err := NewTableConfig(3, 2, tt.combiner, "t")
		require.NoError(t, err)
		table := NewTable(config)
		require.NoError(t, table.SetVector(0, []float32{1, 2}))
		require.NoError(t, table.SetVector(2, []float32{3, 4}))

		g := ag.NewGraph()
		pooled, err := table.Lookup(g, []int{0, 2})
		require.NoError(t, err)
		data := toFloat32(pooled.Value().Data())
		for i := range tt.expected {
			require.InDelta(t, tt.expected[i], data[i], 1e-5, string(tt.combiner))
		}

		empty, err := table.Lookup(g, nil)
		require.NoError(t, err)
		require.Equal(t, []float32{0, 0}, toFloat32(empty.Value().Data()))
		g.Clear()
	}
}

func TestFeatures_Forward_IndexOutOfRange(t *testing.T) {
	features := newSingleFeature(t, Mean)
	g := ag.NewGraph()
	defer g.Clear()

	_, err := features.Forward(g, map[string]Input{"f": DenseInput(Vector(0, 10))})
	require.True(t, errors.Is(err, ErrIndexOutOfRange))

	_, err = features.Forward(g, map[string]Input{"f": DenseInput(Vector(-1))})
	require.True(t, errors.Is(err, ErrIndexOutOfRange))
}

func TestFeatures_SharedTable(t *testing.T) {
	shared, err := NewTableConfig(10, 4, Mean, "shared")
	require.NoError(t, err)
	a, err := NewFeatureConfig(shared, 0, "a")
	require.NoError(t, err)
	b, err := NewFeatureConfig(shared, 0, "b")
	require.NoError(t, err)

	features, err := New(map[string]*FeatureConfig{"a": a, "b": b})
	require.NoError(t, err)
	require.Equal(t, []string{"shared"}, features.TableNames())
	require.Equal(t, []string{"a", "b"}, features.FeatureNames())

	features.Init(1)
	g := ag.NewGraph()
	defer g.Clear()
	result, err := features.Forward(g, map[string]Input{
		"a": DenseInput(Vector(2)),
		"b": DenseInput(Vector(2)),
	})
	require.NoError(t, err)
	require.Equal(t, result["a"][0].Value().Data(), result["b"][0].Value().Data())
}

func TestFeatures_SameNameDistinctConfigs(t *testing.T) {
	first, err := NewTableConfig(10, 4, Mean, "shared")
	require.NoError(t, err)
	second, err := NewTableConfig(20, 8, Sum, "shared")
	require.NoError(t, err)
	a, err := NewFeatureConfig(first, 0, "")
	require.NoError(t, err)
	b, err := NewFeatureConfig(second, 0, "")
	require.NoError(t, err)
	configs := map[string]*FeatureConfig{"a": a, "b": b}

	features, err := New(configs)
	require.NoError(t, err)
	require.Equal(t, 1, len(features.Tables()))
	table, ok := features.Table("shared")
	require.True(t, ok)
	require.Same(t, first, table.Config())

	_, err = New(configs, WithStrictTables())
	require.True(t, errors.Is(err, ErrConflictingTables))

	// identical shapes are not a conflict
	third, err := NewTableConfig(10, 4, Mean, "shared")
	require.NoError(t, err)
	c, err := NewFeatureConfig(third, 0, "")
	require.NoError(t, err)
	_, err = New(map[string]*FeatureConfig{"a": a, "c": c}, WithStrictTables())
	require.NoError(t, err)
}

func TestFeatures_Forward_TableNotFound(t *testing.T) {
	features := newSingleFeature(t, Mean)
	delete(features.tables, "f")

	g := ag.NewGraph()
	defer g.Clear()
	_, err := features.Forward(g, map[string]Input{"f": DenseInput(Vector(1))})
	require.True(t, errors.Is(err, ErrTableNotFound))
}

func TestFeatures_ForwardOutputSize(t *testing.T) {
	features := newSingleFeature(t, Mean)

	sizes, err := features.ForwardOutputSize(map[string]InputSize{"f": DenseSize(7)})
	require.NoError(t, err)
	require.Equal(t, map[string][]int{"f": {7, 4}}, sizes)

	sizes, err = features.ForwardOutputSize(map[string]InputSize{"f": BagSize([]int{30, 1}, []int{7, 2})})
	require.NoError(t, err)
	require.Equal(t, map[string][]int{"f": {7, 4}}, sizes)

	sizes, err = features.ForwardOutputSize(map[string]InputSize{"f": DenseSize()})
	require.NoError(t, err)
	require.Equal(t, map[string][]int{"f": {1, 4}}, sizes)

	_, err = features.ForwardOutputSize(map[string]InputSize{"other": DenseSize(7)})
	require.True(t, errors.Is(err, ErrShape))
}

func TestFeatures_Init_Deterministic(t *testing.T) {
	a := newSingleFeature(t, Mean)
	b := newSingleFeature(t, Mean)
	for i := 0; i < 10; i++ {
		ra, err := a.tables["f"].Vector(i)
		require.NoError(t, err)
		rb, err := b.tables["f"].Vector(i)
		require.NoError(t, err)
		require.Equal(t, ra, rb)
	}
	require.Equal(t, 4, a.OutputDim())
}

func toFloat32(data []mat.Float) []float32 {
	result := make([]float32, len(data))
	for i, v := range data {
		result[i] = float32(v)
	}
	return result
}
