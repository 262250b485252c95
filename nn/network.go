// Package nn implements a fully-connected feedforward network with sigmoid
// activations, trained online (one sample per update) by backpropagation of
// the squared error.
//
// A Network keeps the activations and error signals of its most recent call
// in buffers it owns, so a single Network must not be used from more than one
// goroutine at a time.
package nn

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"

	"digitnet/nn/initializer"
	"digitnet/tensor"
)

// Network holds the parameters and per-layer scratch state of the model.
// Layer 0 is the input layer and has no weights, biases or error signal.
type Network struct {
	sizes []int

	// weights[l] has shape [sizes[l-1], sizes[l]]; weights[l].At(i, j)
	// connects neuron i of layer l-1 to neuron j of layer l.
	weights []*tensor.Tensor
	biases  [][]float64

	activations  [][]float64
	errorSignals [][]float64
}

// New creates a network with the given layer sizes, weights drawn by the
// Xavier initializer from src and all biases set to zero. A nil src uses the
// package-level source of golang.org/x/exp/rand.
func New(sizes []int, src rand.Source) (*Network, error) {
	if err := checkSizes(sizes); err != nil {
		return nil, err
	}
	net := allocate(sizes)
	net.weights = initializer.Xavier(net.sizes, src)
	return net, nil
}

// NewZero creates a network with the given layer sizes and every weight and
// bias set to zero, for callers that fill in the parameters themselves.
func NewZero(sizes []int) (*Network, error) {
	if err := checkSizes(sizes); err != nil {
		return nil, err
	}
	return allocate(sizes), nil
}

func checkSizes(sizes []int) error {
	if len(sizes) < 2 {
		return fmt.Errorf("%w: need at least 2 layers, got %d", ErrConfig, len(sizes))
	}
	for l, s := range sizes {
		if s <= 0 {
			return fmt.Errorf("%w: layer %d has size %d", ErrConfig, l, s)
		}
	}
	if !withinLimit(sizes) {
		return fmt.Errorf("%w: layer sizes %v exceed %d parameters", ErrConfig, sizes, maxParams)
	}
	return nil
}

// allocate builds a zeroed network of the given (already validated) sizes.
func allocate(sizes []int) *Network {
	n := len(sizes)
	net := &Network{
		sizes:        append([]int(nil), sizes...),
		weights:      make([]*tensor.Tensor, n),
		biases:       make([][]float64, n),
		activations:  make([][]float64, n),
		errorSignals: make([][]float64, n),
	}
	for l := 0; l < n; l++ {
		net.activations[l] = make([]float64, sizes[l])
		if l == 0 {
			continue
		}
		net.weights[l] = tensor.New(sizes[l-1], sizes[l])
		net.biases[l] = make([]float64, sizes[l])
		net.errorSignals[l] = make([]float64, sizes[l])
	}
	return net
}

// Sigmoid is the logistic function 1 / (1 + e^-z).
func Sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// Calculate runs a forward pass and returns a copy of the output layer.
func (n *Network) Calculate(input []float64) ([]float64, error) {
	if len(input) != n.InputSize() {
		return nil, &DimensionError{What: "input", Want: n.InputSize(), Got: len(input)}
	}
	out := n.forward(input)
	return append([]float64(nil), out...), nil
}

func (n *Network) forward(input []float64) []float64 {
	copy(n.activations[0], input)
	for l := 1; l < len(n.sizes); l++ {
		prev := n.activations[l-1]
		cur := n.activations[l]
		copy(cur, n.biases[l])
		// Walk the weight matrix row by row so the inner loop is contiguous.
		for i, a := range prev {
			if a == 0 {
				continue
			}
			floats.AddScaled(cur, a, n.weights[l].Row(i))
		}
		for j, z := range cur {
			cur[j] = Sigmoid(z)
		}
	}
	return n.activations[len(n.sizes)-1]
}

// Train performs one step of online gradient descent on a single sample and
// returns the squared error 0.5*Σ(output-target)² of the forward pass that
// preceded the update. Neither input nor target is retained.
func (n *Network) Train(input, target []float64, learningRate float64) (float64, error) {
	if len(input) != n.InputSize() {
		return 0, &DimensionError{What: "input", Want: n.InputSize(), Got: len(input)}
	}
	if len(target) != n.OutputSize() {
		return 0, &DimensionError{What: "target", Want: n.OutputSize(), Got: len(target)}
	}

	output := n.forward(input)
	d := floats.Distance(output, target, 2)
	loss := 0.5 * d * d

	n.backpropagate(target)
	n.update(learningRate)
	return loss, nil
}

// backpropagate fills errorSignals from the current activations. The output
// term is the sigmoid derivative times the residual of the squared error; a
// different loss would need a different output term.
func (n *Network) backpropagate(target []float64) {
	last := len(n.sizes) - 1
	out := n.activations[last]
	for j, o := range out {
		n.errorSignals[last][j] = (o - target[j]) * o * (1 - o)
	}

	for l := last - 1; l >= 1; l-- {
		next := n.errorSignals[l+1]
		for j, a := range n.activations[l] {
			sum := floats.Dot(n.weights[l+1].Row(j), next)
			n.errorSignals[l][j] = a * (1 - a) * sum
		}
	}
}

func (n *Network) update(learningRate float64) {
	for l := 1; l < len(n.sizes); l++ {
		delta := n.errorSignals[l]
		floats.AddScaled(n.biases[l], -learningRate, delta)
		for i, a := range n.activations[l-1] {
			if a == 0 {
				continue
			}
			floats.AddScaled(n.weights[l].Row(i), -learningRate*a, delta)
		}
	}
}

// LayerSizes returns a copy of the layer sizes, input layer first.
func (n *Network) LayerSizes() []int {
	return append([]int(nil), n.sizes...)
}

// InputSize is the width of layer 0.
func (n *Network) InputSize() int { return n.sizes[0] }

// OutputSize is the width of the last layer.
func (n *Network) OutputSize() int { return n.sizes[len(n.sizes)-1] }

// Weights returns a copy of the weight matrix feeding layer l, one row per
// neuron of layer l-1.
func (n *Network) Weights(l int) [][]float64 {
	n.checkLayer(l)
	rows, _ := n.weights[l].Dims()
	out := make([][]float64, rows)
	for i := range out {
		out[i] = append([]float64(nil), n.weights[l].Row(i)...)
	}
	return out
}

// Biases returns a copy of the biases of layer l.
func (n *Network) Biases(l int) []float64 {
	n.checkLayer(l)
	return append([]float64(nil), n.biases[l]...)
}

// SetWeight sets the weight from neuron i of layer l-1 to neuron j of layer l.
func (n *Network) SetWeight(l, i, j int, v float64) {
	n.checkLayer(l)
	n.weights[l].Set(v, i, j)
}

// SetBias sets the bias of neuron j of layer l.
func (n *Network) SetBias(l, j int, v float64) {
	n.checkLayer(l)
	n.biases[l][j] = v
}

func (n *Network) checkLayer(l int) {
	if l < 1 || l >= len(n.sizes) {
		panic(fmt.Sprintf("nn: layer %d has no parameters (network has %d layers)", l, len(n.sizes)))
	}
}
