package embedding

import "fmt"

// Input is the batch data of one feature: either a ragged bag of indices (values plus offsets)
// or a dense tensor of indices.
type Input struct {
	Values  *Indices
	Offsets *Indices
}

// BagInput builds the ragged form. Only the first column of a rank 2 offsets tensor is used.
func BagInput(values, offsets *Indices) Input {
	return Input{Values: values, Offsets: offsets}
}

// DenseInput builds the dense form. A rank 1 tensor of shape (B,) is B examples of one index
// each, giving a (B, dim) output; to pool B indices into a single bag pass shape (1, B).
func DenseInput(indices *Indices) Input {
	return Input{Values: indices}
}

func (in Input) IsBag() bool { return in.Offsets != nil }

// bags converts the input into one list of indices per example.
func (in Input) bags() ([][]int, error) {
	if in.Values == nil {
		return nil, fmt.Errorf("%w: missing values", ErrShape)
	}
	if in.IsBag() {
		return raggedBags(in.Values, in.Offsets)
	}
	return denseBags(in.Values)
}

func raggedBags(values, offsets *Indices) ([][]int, error) {
	values = values.squeezeLast()
	if values.Rank() == 0 {
		values = &Indices{shape: []int{1}, data: values.data}
	}
	if values.Rank() != 1 {
		return nil, fmt.Errorf("%w: bag values must be one-dimensional, got shape %v", ErrShape, values.shape)
	}

	var starts []int
	switch offsets.Rank() {
	case 1:
		starts = offsets.data
	case 2:
		var err error
		if starts, err = offsets.column(0); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: bag offsets must have rank 1 or 2, got shape %v", ErrShape, offsets.shape)
	}

	n := len(values.data)
	if len(starts) > 0 && starts[0] != 0 {
		return nil, fmt.Errorf("%w: first offset must be 0, got %d", ErrShape, starts[0])
	}
	bags := make([][]int, len(starts))
	for i, start := range starts {
		end := n
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		if start > end || end > n {
			return nil, fmt.Errorf("%w: bag %d spans [%d, %d) over %d values", ErrShape, i, start, end, n)
		}
		bags[i] = values.data[start:end]
	}
	return bags, nil
}

func denseBags(x *Indices) ([][]int, error) {
	switch x.Rank() {
	case 0:
		x = x.unsqueezeFirst()
		fallthrough
	case 1:
		bags := make([][]int, len(x.data))
		for i := range x.data {
			bags[i] = x.data[i : i+1]
		}
		return bags, nil
	case 2:
		return x.rows(), nil
	}
	return nil, fmt.Errorf("%w: dense input must have rank at most 2, got shape %v", ErrShape, x.shape)
}

// InputSize is the shape of an Input, used for static shape inference.
type InputSize struct {
	Values  []int
	Offsets []int
}

func DenseSize(shape ...int) InputSize {
	return InputSize{Values: shape}
}

func BagSize(values, offsets []int) InputSize {
	return InputSize{Values: values, Offsets: offsets}
}

func (s InputSize) batchSize() (int, error) {
	if s.Offsets != nil {
		if len(s.Offsets) == 0 {
			return 0, fmt.Errorf("%w: scalar bag offsets", ErrShape)
		}
		return s.Offsets[0], nil
	}
	if len(s.Values) == 0 {
		return 1, nil
	}
	return s.Values[0], nil
}
