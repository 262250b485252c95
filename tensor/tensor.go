package tensor

import "fmt"

// Tensor is a simple n-D array backed by a flat []float64 in row-major order.
type Tensor struct {
	Data  []float64
	Shape []int
}

// New allocates a zeroed Tensor of given shape (product of dims = len(Data)).
func New(shape ...int) *Tensor {
	total := 1
	for _, d := range shape {
		if d < 0 {
			panic(fmt.Sprintf("New: negative dimension in shape %v", shape))
		}
		total *= d
	}
	return &Tensor{
		Data:  make([]float64, total),
		Shape: append([]int(nil), shape...),
	}
}

// NewWithData creates a tensor of the given shape over a copy of data.
// The length of data must equal the product of the dims.
func NewWithData(data []float64, shape ...int) (*Tensor, error) {
	if len(shape) == 0 {
		shape = []int{len(data)}
	}
	total := 1
	for _, d := range shape {
		total *= d
	}
	if total != len(data) {
		return nil, fmt.Errorf("shape %v needs %d values, got %d", shape, total, len(data))
	}
	return &Tensor{
		Data:  append([]float64(nil), data...),
		Shape: append([]int(nil), shape...),
	}, nil
}

// Clone returns a deep copy of t.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{
		Data:  append([]float64(nil), t.Data...),
		Shape: append([]int(nil), t.Shape...),
	}
}

// Dims returns the number of rows and columns of a 2-D tensor.
func (t *Tensor) Dims() (rows, cols int) {
	if len(t.Shape) != 2 {
		panic(fmt.Sprintf("Dims: expected 2-D tensor, got shape %v", t.Shape))
	}
	return t.Shape[0], t.Shape[1]
}

// Row returns the i-th slice along the leading dimension. The returned slice
// aliases t.Data, so writes through it modify the tensor.
func (t *Tensor) Row(i int) []float64 {
	if len(t.Shape) == 0 {
		panic("Row: tensor has no dimensions")
	}
	if i < 0 || i >= t.Shape[0] {
		panic(fmt.Sprintf("Row: index %d out of bounds for shape %v", i, t.Shape))
	}
	stride := len(t.Data) / t.Shape[0]
	return t.Data[i*stride : (i+1)*stride : (i+1)*stride]
}

// At returns the element at the given indices.
// For a 2D tensor [a, b], At(i, j) returns the element at position [i][j].
func (t *Tensor) At(indices ...int) float64 {
	return t.Data[t.offset("At", indices)]
}

// Set sets the element at the given indices to the given value.
func (t *Tensor) Set(value float64, indices ...int) {
	t.Data[t.offset("Set", indices)] = value
}

func (t *Tensor) offset(op string, indices []int) int {
	if len(indices) != len(t.Shape) {
		panic(fmt.Sprintf("%s: expected %d indices, got %d", op, len(t.Shape), len(indices)))
	}

	idx := 0
	stride := 1
	for i := len(indices) - 1; i >= 0; i-- {
		if indices[i] < 0 || indices[i] >= t.Shape[i] {
			panic(fmt.Sprintf("%s: index %d out of bounds for dimension %d (shape: %v)", op, indices[i], i, t.Shape))
		}
		idx += indices[i] * stride
		stride *= t.Shape[i]
	}
	return idx
}
