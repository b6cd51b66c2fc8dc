package embedding

import "fmt"

// Indices is a row-major integer tensor of categorical ids or bag offsets.
type Indices struct {
	shape []int
	data  []int
}

// NewIndices wraps data with the given shape. An empty shape makes a scalar.
func NewIndices(data []int, shape ...int) (*Indices, error) {
	size := 1
	for _, d := range shape {
		if d < 0 {
			return nil, fmt.Errorf("%w: negative dimension in %v", ErrShape, shape)
		}
		size *= d
	}
	if size != len(data) {
		return nil, fmt.Errorf("%w: shape %v needs %d values, got %d", ErrShape, shape, size, len(data))
	}
	return &Indices{shape: append([]int(nil), shape...), data: data}, nil
}

// Scalar returns a zero-dimensional tensor holding a single index.
func Scalar(index int) *Indices {
	return &Indices{shape: []int{}, data: []int{index}}
}

// Vector returns a one-dimensional tensor over data.
func Vector(data ...int) *Indices {
	return &Indices{shape: []int{len(data)}, data: data}
}

func (x *Indices) Shape() []int { return append([]int(nil), x.shape...) }
func (x *Indices) Rank() int    { return len(x.shape) }
func (x *Indices) Data() []int  { return x.data }

// squeezeLast drops a trailing dimension of size one.
func (x *Indices) squeezeLast() *Indices {
	if len(x.shape) == 0 || x.shape[len(x.shape)-1] != 1 {
		return x
	}
	return &Indices{shape: x.shape[:len(x.shape)-1], data: x.data}
}

// unsqueezeFirst adds a leading dimension of size one.
func (x *Indices) unsqueezeFirst() *Indices {
	return &Indices{shape: append([]int{1}, x.shape...), data: x.data}
}

// column returns column j of a rank 2 tensor.
func (x *Indices) column(j int) ([]int, error) {
	if len(x.shape) != 2 {
		return nil, fmt.Errorf("%w: expected rank 2, got shape %v", ErrShape, x.shape)
	}
	rows, cols := x.shape[0], x.shape[1]
	if j >= cols {
		return nil, fmt.Errorf("%w: column %d out of shape %v", ErrShape, j, x.shape)
	}
	out := make([]int, rows)
	for i := range out {
		out[i] = x.data[i*cols+j]
	}
	return out, nil
}

// rows splits a rank 2 tensor into its rows.
func (x *Indices) rows() [][]int {
	rows, cols := x.shape[0], x.shape[1]
	out := make([][]int, rows)
	for i := range out {
		out[i] = x.data[i*cols : (i+1)*cols]
	}
	return out
}
