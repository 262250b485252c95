package utils

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/exp/rand"

	"digitnet/nn"
	"digitnet/tensor"
)

func TestTensorToWeightData(t *testing.T) {
	ten := tensor.New(2, 3)
	for i := range ten.Data {
		ten.Data[i] = float64(i) * 0.5
	}

	wd := TensorToWeightData("test_weight", ten)

	if wd.Name != "test_weight" {
		t.Errorf("Name = %s, want test_weight", wd.Name)
	}
	if len(wd.Shape) != 2 || wd.Shape[0] != 2 || wd.Shape[1] != 3 {
		t.Errorf("Shape = %v, want [2, 3]", wd.Shape)
	}
	if len(wd.Data) != 6 {
		t.Errorf("Data length = %d, want 6", len(wd.Data))
	}
	for i, v := range wd.Data {
		expected := float64(i) * 0.5
		if v != expected {
			t.Errorf("Data[%d] = %f, want %f", i, v, expected)
		}
	}

	// The weight data is a copy.
	ten.Data[0] = 99
	if wd.Data[0] != 0 {
		t.Errorf("weight data aliases the tensor")
	}
}

func TestWeightDataToTensor(t *testing.T) {
	wd := &WeightData{
		Name:  "test",
		Shape: []int{3, 4},
		Data:  make([]float64, 12),
	}
	for i := range wd.Data {
		wd.Data[i] = float64(i)
	}

	ten, err := WeightDataToTensor(wd)
	if err != nil {
		t.Fatalf("WeightDataToTensor failed: %v", err)
	}

	if len(ten.Shape) != 2 || ten.Shape[0] != 3 || ten.Shape[1] != 4 {
		t.Errorf("Shape = %v, want [3, 4]", ten.Shape)
	}
	for i, v := range ten.Data {
		if v != float64(i) {
			t.Errorf("Data[%d] = %f, want %f", i, v, float64(i))
		}
	}

	wd.Data = wd.Data[:11]
	if _, err := WeightDataToTensor(wd); err == nil {
		t.Error("Expected error for data shorter than shape")
	}
}

func TestExportImportNetwork(t *testing.T) {
	net, err := nn.New([]int{784, 16, 10}, rand.NewSource(42))
	if err != nil {
		t.Fatalf("nn.New failed: %v", err)
	}
	net.SetBias(1, 3, 0.25)

	weightsFile := filepath.Join(t.TempDir(), "weights.json")
	if err := SaveWeights(weightsFile, ExportNetwork(net)); err != nil {
		t.Fatalf("SaveWeights failed: %v", err)
	}

	loaded, err := LoadWeights(weightsFile)
	if err != nil {
		t.Fatalf("LoadWeights failed: %v", err)
	}
	if loaded.Version != WeightsVersion {
		t.Errorf("Version = %s, want %s", loaded.Version, WeightsVersion)
	}
	if len(loaded.Layers) != 2 {
		t.Errorf("Layers count = %d, want 2", len(loaded.Layers))
	}
	layer1 := loaded.Layers["layer1"]
	if layer1.Weight == nil {
		t.Fatal("layer1 weight is nil")
	}
	if len(layer1.Weight.Shape) != 2 || layer1.Weight.Shape[0] != 784 || layer1.Weight.Shape[1] != 16 {
		t.Errorf("layer1 weight shape = %v, want [784, 16]", layer1.Weight.Shape)
	}

	restored, err := ImportNetwork(loaded)
	if err != nil {
		t.Fatalf("ImportNetwork failed: %v", err)
	}

	input := make([]float64, 784)
	for i := range input {
		input[i] = float64(i%255) / 255
	}
	want, err := net.Calculate(input)
	if err != nil {
		t.Fatal(err)
	}
	got, err := restored.Calculate(input)
	if err != nil {
		t.Fatal(err)
	}
	for i := range want {
		if want[i] != got[i] {
			t.Errorf("output[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestImportNetworkShapeMismatch(t *testing.T) {
	net, err := nn.New([]int{3, 2}, rand.NewSource(1))
	if err != nil {
		t.Fatal(err)
	}

	mw := ExportNetwork(net)
	mw.Sizes = []int{2, 3}
	if _, err := ImportNetwork(mw); !errors.Is(err, nn.ErrFormat) {
		t.Errorf("err = %v, want nn.ErrFormat", err)
	}

	mw = ExportNetwork(net)
	delete(mw.Layers, "layer1")
	if _, err := ImportNetwork(mw); !errors.Is(err, nn.ErrFormat) {
		t.Errorf("err = %v, want nn.ErrFormat", err)
	}

	mw = ExportNetwork(net)
	mw.Sizes = []int{1 << 20, 1 << 20}
	if _, err := ImportNetwork(mw); !errors.Is(err, nn.ErrConfig) {
		t.Errorf("err = %v, want nn.ErrConfig", err)
	}

	mw = ExportNetwork(net)
	mw.Sizes = []int{3}
	if _, err := ImportNetwork(mw); !errors.Is(err, nn.ErrConfig) {
		t.Errorf("err = %v, want nn.ErrConfig", err)
	}
}

func TestLoadWeightsNotFound(t *testing.T) {
	_, err := LoadWeights("/nonexistent/path/weights.json")
	if err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestLoadWeightsInvalidJSON(t *testing.T) {
	badFile := filepath.Join(t.TempDir(), "bad.json")
	err := os.WriteFile(badFile, []byte("not valid json"), 0644)
	if err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	_, err = LoadWeights(badFile)
	if err == nil {
		t.Error("Expected error for invalid JSON")
	}
}
