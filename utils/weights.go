package utils

import (
	"encoding/json"
	"fmt"
	"os"

	"digitnet/nn"
	"digitnet/tensor"
)

// WeightsVersion is written into every exported weights file.
const WeightsVersion = "1.0"

// WeightData represents serializable weight data for a layer
type WeightData struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// ModelWeights represents all weights in a model
type ModelWeights struct {
	Version string                 `json:"version"`
	Sizes   []int                  `json:"sizes"`
	Layers  map[string]LayerWeight `json:"layers"`
}

// LayerWeight contains weights and bias for a layer
type LayerWeight struct {
	Weight *WeightData `json:"weight,omitempty"`
	Bias   *WeightData `json:"bias,omitempty"`
}

// SaveWeights saves model weights to a JSON file
func SaveWeights(filepath string, weights *ModelWeights) error {
	data, err := json.MarshalIndent(weights, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}
	return os.WriteFile(filepath, data, 0644)
}

// LoadWeights loads model weights from a JSON file
func LoadWeights(filepath string) (*ModelWeights, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read weights file: %w", err)
	}
	var weights ModelWeights
	if err := json.Unmarshal(data, &weights); err != nil {
		return nil, fmt.Errorf("failed to unmarshal weights: %w", err)
	}
	return &weights, nil
}

// TensorToWeightData converts a tensor to serializable weight data
func TensorToWeightData(name string, t *tensor.Tensor) *WeightData {
	return &WeightData{
		Name:  name,
		Shape: append([]int{}, t.Shape...),
		Data:  append([]float64{}, t.Data...), // copy
	}
}

// WeightDataToTensor converts weight data back to a tensor
func WeightDataToTensor(wd *WeightData) (*tensor.Tensor, error) {
	t, err := tensor.NewWithData(wd.Data, wd.Shape...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", wd.Name, err)
	}
	return t, nil
}

func layerName(l int) string { return fmt.Sprintf("layer%d", l) }

// ExportNetwork copies the parameters of net into the JSON weight layout.
// Layer l (1-based) holds a [sizes[l-1], sizes[l]] weight tensor and a
// [sizes[l]] bias tensor.
func ExportNetwork(net *nn.Network) *ModelWeights {
	sizes := net.LayerSizes()
	mw := &ModelWeights{
		Version: WeightsVersion,
		Sizes:   sizes,
		Layers:  make(map[string]LayerWeight, len(sizes)-1),
	}
	for l := 1; l < len(sizes); l++ {
		w := tensor.New(sizes[l-1], sizes[l])
		for i, row := range net.Weights(l) {
			copy(w.Row(i), row)
		}
		b := tensor.New(sizes[l])
		copy(b.Data, net.Biases(l))

		name := layerName(l)
		mw.Layers[name] = LayerWeight{
			Weight: TensorToWeightData(name+"_weight", w),
			Bias:   TensorToWeightData(name+"_bias", b),
		}
	}
	return mw
}

// ImportNetwork rebuilds a network from exported weights. Missing layers or
// shapes that disagree with Sizes are reported as nn.ErrFormat.
func ImportNetwork(mw *ModelWeights) (*nn.Network, error) {
	net, err := nn.NewZero(mw.Sizes)
	if err != nil {
		return nil, err
	}
	for l := 1; l < len(mw.Sizes); l++ {
		name := layerName(l)
		lw, ok := mw.Layers[name]
		if !ok || lw.Weight == nil || lw.Bias == nil {
			return nil, fmt.Errorf("%w: %s is missing its weight or bias", nn.ErrFormat, name)
		}

		w, err := WeightDataToTensor(lw.Weight)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", nn.ErrFormat, err)
		}
		if len(w.Shape) != 2 || w.Shape[0] != mw.Sizes[l-1] || w.Shape[1] != mw.Sizes[l] {
			return nil, fmt.Errorf("%w: %s weight has shape %v, want [%d %d]",
				nn.ErrFormat, name, w.Shape, mw.Sizes[l-1], mw.Sizes[l])
		}
		b, err := WeightDataToTensor(lw.Bias)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", nn.ErrFormat, err)
		}
		if len(b.Shape) != 1 || b.Shape[0] != mw.Sizes[l] {
			return nil, fmt.Errorf("%w: %s bias has shape %v, want [%d]", nn.ErrFormat, name, b.Shape, mw.Sizes[l])
		}

		for i := 0; i < mw.Sizes[l-1]; i++ {
			for j := 0; j < mw.Sizes[l]; j++ {
				net.SetWeight(l, i, j, w.At(i, j))
			}
		}
		for j, v := range b.Data {
			net.SetBias(l, j, v)
		}
	}
	return net, nil
}
