// Package initializer produces randomized starting weights for fully-connected networks.
package initializer

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"digitnet/tensor"
)

// Spread is the multiple of the Xavier bound used as the sampling range.
// Weights are drawn from [-Spread*a, Spread*a].
const Spread = 4.0

// Bound returns sqrt(6 / (fanIn + fanOut)).
func Bound(fanIn, fanOut int) float64 {
	return math.Sqrt(6.0 / float64(fanIn+fanOut))
}

// Xavier builds one weight tensor per layer. Entry l (l >= 1) has shape
// [sizes[l-1], sizes[l]]; entry 0 is nil since the input layer has no
// incoming weights.
//
// A nil src draws from the package-level source of golang.org/x/exp/rand.
func Xavier(sizes []int, src rand.Source) []*tensor.Tensor {
	weights := make([]*tensor.Tensor, len(sizes))
	for l := 1; l < len(sizes); l++ {
		a := Bound(sizes[l-1], sizes[l])
		weights[l] = tensor.New(sizes[l-1], sizes[l])
		Fill(weights[l], -Spread*a, Spread*a, src)
	}
	return weights
}

// Fill overwrites every element of t with an independent draw from the
// uniform distribution on [lower, upper].
func Fill(t *tensor.Tensor, lower, upper float64, src rand.Source) {
	if lower > upper {
		lower, upper = upper, lower
	}
	dist := distuv.Uniform{
		Min: lower,
		Max: upper,
		Src: src,
	}
	for i := range t.Data {
		t.Data[i] = dist.Rand()
	}
}
