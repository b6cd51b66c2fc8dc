package embedding

import (
	"fmt"
	"math"

	mat "github.com/nlpodyssey/spago/pkg/mat32"
	"github.com/nlpodyssey/spago/pkg/ml/ag"
	"github.com/nlpodyssey/spago/pkg/ml/nn"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	_ nn.Model = &Table{}
)

// Table is a pooled embedding table of shape (vocabulary_size, dim). Each row is a separate
// param so that a batch only touches the rows it looks up.
type Table struct {
	nn.BaseModel
	config  *TableConfig
	Weights []nn.Param `spago:"type:weights"`
}

func NewTable(config *TableConfig) *Table {
	weights := make([]nn.Param, config.VocabularySize())
	for i := range weights {
		weights[i] = nn.NewParam(mat.NewEmptyVecDense(config.Dim()))
	}
	return &Table{
		BaseModel: nn.BaseModel{},
		config:    config,
		Weights:   weights,
	}
}

func (t *Table) Config() *TableConfig { return t.config }

// Init draws every weight from N(0, 1).
func (t *Table) Init(dist distuv.Normal) {
	for _, w := range t.Weights {
		data := w.Value().Data()
		for j := range data {
			data[j] = mat.Float(dist.Rand())
		}
	}
}

// Lookup pools the rows of bag with the table's combiner. An empty bag pools to zeros.
func (t *Table) Lookup(g *ag.Graph, bag []int) (ag.Node, error) {
	if len(bag) == 0 {
		return g.NewVariable(mat.NewEmptyVecDense(t.config.Dim()), false), nil
	}

	var pooled ag.Node
	for _, index := range bag {
		if index < 0 || index >= len(t.Weights) {
			return nil, fmt.Errorf("%w: %d not in [0, %d) for table %q",
				ErrIndexOutOfRange, index, len(t.Weights), t.config.Name())
		}
		row := g.NewWrap(t.Weights[index])
		if pooled == nil {
			pooled = row
		} else {
			pooled = g.Add(pooled, row)
		}
	}

	n := float64(len(bag))
	switch t.config.Combiner() {
	case Mean:
		pooled = g.DivScalar(pooled, g.NewScalar(mat.Float(n)))
	case SqrtN:
		pooled = g.DivScalar(pooled, g.NewScalar(mat.Float(math.Sqrt(n))))
	}
	return pooled, nil
}

// Vector returns a copy of row index.
func (t *Table) Vector(index int) ([]float32, error) {
	if index < 0 || index >= len(t.Weights) {
		return nil, fmt.Errorf("%w: %d not in [0, %d) for table %q",
			ErrIndexOutOfRange, index, len(t.Weights), t.config.Name())
	}
	data := t.Weights[index].Value().Data()
	result := make([]float32, len(data))
	for i, v := range data {
		result[i] = float32(v)
	}
	return result, nil
}

// SetVector overwrites row index.
func (t *Table) SetVector(index int, values []float32) error {
	if index < 0 || index >= len(t.Weights) {
		return fmt.Errorf("%w: %d not in [0, %d) for table %q",
			ErrIndexOutOfRange, index, len(t.Weights), t.config.Name())
	}
	data := t.Weights[index].Value().Data()
	if len(values) != len(data) {
		return fmt.Errorf("%w: row of %d values for dim %d", ErrShape, len(values), len(data))
	}
	for i, v := range values {
		data[i] = mat.Float(v)
	}
	return nil
}
