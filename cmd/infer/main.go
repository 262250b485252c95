// digitnet-infer: classifies one digit with a saved network
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"gonum.org/v1/gonum/floats"

	"digitnet/mnist"
	"digitnet/nn"
	"digitnet/utils"
)

var (
	networkFile = flag.String("network", "network.txt", "Saved network file")
	weightsFile = flag.String("weights", "", "Weights JSON file (overrides -network)")
	inputFile   = flag.String("input", "", "Input JSON file holding a pixel vector in [0,1]")
	images      = flag.String("images", "data/t10k-images-idx3-ubyte", "IDX image file used when no -input is given")
	labels      = flag.String("labels", "data/t10k-labels-idx1-ubyte", "IDX label file matching -images")
	index       = flag.Int("index", 0, "Sample index within -images")
	verbose     = flag.Bool("verbose", true, "Verbose output")
	topK        = flag.Int("topk", 3, "Top predictions to show")
)

func main() {
	flag.Parse()
	utils.Verbose = *verbose

	net, err := loadNetwork()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading network: %v\n", err)
		os.Exit(1)
	}
	if *verbose {
		fmt.Printf("Network layers: %v\n", net.LayerSizes())
	}

	inputData, label, err := loadInput()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading input: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Input dim: %d\n", len(inputData))

	start := time.Now()
	output, err := net.Calculate(inputData)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *verbose {
		fmt.Printf("Time: %.4fs\n", time.Since(start).Seconds())
	}

	showResults(output, *topK)
	if label >= 0 {
		fmt.Printf("\nActual label: %d\n", label)
	}
}

func loadNetwork() (*nn.Network, error) {
	if *weightsFile != "" {
		weights, err := utils.LoadWeights(*weightsFile)
		if err != nil {
			return nil, err
		}
		return utils.ImportNetwork(weights)
	}
	return nn.Load(*networkFile)
}

// loadInput returns the pixel vector to classify and its label, -1 when the
// label is unknown.
func loadInput() ([]float64, int, error) {
	if *inputFile != "" {
		data, err := os.ReadFile(*inputFile)
		if err != nil {
			return nil, -1, err
		}
		var inputData []float64
		if err := json.Unmarshal(data, &inputData); err != nil {
			return nil, -1, fmt.Errorf("decoding %s: %w", *inputFile, err)
		}
		return inputData, -1, nil
	}

	corpus, err := mnist.Load(*images, *labels)
	if err != nil {
		return nil, -1, err
	}
	if *index < 0 || *index >= corpus.Len() {
		return nil, -1, fmt.Errorf("index %d outside corpus of %d samples", *index, corpus.Len())
	}
	pixels, label := corpus.Sample(*index)
	return pixels, label, nil
}

func showResults(predictions []float64, k int) {
	indices := topKIndices(predictions, k)

	fmt.Printf("\nTop %d predictions:\n", len(indices))
	for i, idx := range indices {
		fmt.Printf("  %d. Class %d: %.4f\n", i+1, idx, predictions[idx])
	}
}

// topKIndices returns the indices of the k largest values, largest first.
func topKIndices(vals []float64, k int) []int {
	k = max(0, min(k, len(vals)))
	sorted := append([]float64(nil), vals...)
	indices := make([]int, len(vals))
	floats.Argsort(sorted, indices)

	top := make([]int, k)
	for i := range top {
		top[i] = indices[len(indices)-1-i]
	}
	return top
}
