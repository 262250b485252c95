// digitnet-train: trains a digit classifier on an IDX (or CSV) corpus,
// reports its accuracy on the test corpus and saves it.
//
// Usage:
//
//	digitnet-train -data=data -epochs=1 -lr=0.3 -output=network.txt "784 70 35 10"
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/exp/rand"

	"digitnet/mnist"
	"digitnet/nn"
	"digitnet/trainer"
	"digitnet/utils"
)

const defaultArch = "784 70 35 10"

var (
	dataDir      = flag.String("data", "data", "Directory holding the IDX corpus files (plain or .gz)")
	trainCSV     = flag.String("train-csv", "", "Training corpus as label-first CSV instead of IDX")
	testCSV      = flag.String("test-csv", "", "Test corpus as label-first CSV instead of IDX")
	epochs       = flag.Int("epochs", 1, "Number of training epochs")
	learningRate = flag.Float64("lr", 0.3, "Learning rate")
	seed         = flag.Uint64("seed", 42, "Random seed for weight initialization")
	limit        = flag.Int("limit", 0, "Use only the first N training samples (0 = all)")
	loadFile     = flag.String("load", "", "Continue training a saved network instead of a fresh one")
	outputFile   = flag.String("output", "network.txt", "Output network file")
	jsonFile     = flag.String("json", "", "Also export the weights as JSON")
	verbose      = flag.Bool("verbose", true, "Verbose output")
)

func main() {
	flag.Parse()
	utils.Verbose = *verbose

	archStr := defaultArch
	if flag.NArg() > 0 {
		archStr = flag.Arg(0)
	}
	arch, err := utils.ParseArchitecture(archStr)
	if err != nil {
		fatalf("Error parsing architecture: %v", err)
	}

	stats := &utils.TimingStats{}
	totalStart := time.Now()

	// Load data
	start := time.Now()
	train, err := loadCorpus(*trainCSV, "train", arch[0])
	if err != nil {
		fatalf("Error loading training data: %v", err)
	}
	train = train.Head(*limit)
	test, err := loadCorpus(*testCSV, "t10k", arch[0])
	if err != nil {
		fatalf("Error loading test data: %v", err)
	}
	stats.DataLoadingTime = time.Since(start)

	cfg := &utils.Config{
		Architecture: arch,
		Epochs:       *epochs,
		LearningRate: *learningRate,
		InputWidth:   train.Width(),
	}
	if err := utils.ValidateConfig(cfg); err != nil {
		fatalf("Invalid configuration: %v", err)
	}

	fmt.Printf("\nConfiguration:\n")
	fmt.Printf("  Architecture:  %v\n", arch)
	fmt.Printf("  Epochs:        %d\n", *epochs)
	fmt.Printf("  Learning Rate: %.4f\n", *learningRate)
	fmt.Printf("  Train samples: %d\n", train.Len())
	fmt.Printf("  Test samples:  %d\n", test.Len())
	fmt.Println()

	// Build model
	start = time.Now()
	net, err := buildNetwork(arch)
	if err != nil {
		fatalf("Error building network: %v", err)
	}
	stats.ModelInitTime = time.Since(start)

	// Train
	fmt.Println("Starting training...")
	start = time.Now()
	history, err := trainer.TrainEpochs(net, train, trainer.Config{
		Epochs:       *epochs,
		LearningRate: *learningRate,
		Progress:     progressWriter(),
	})
	if err != nil {
		fatalf("Error training: %v", err)
	}
	stats.TrainingTime = time.Since(start)
	fmt.Printf("\nTraining complete! Final mean loss: %.6f\n", history.Last().MeanLoss)

	// Evaluate
	start = time.Now()
	report, err := trainer.Evaluate(net, test, progressWriter())
	if err != nil {
		fatalf("Error evaluating: %v", err)
	}
	stats.EvaluationTime = time.Since(start)
	if _, err := report.WriteTo(os.Stdout); err != nil {
		fatalf("Error writing report: %v", err)
	}

	// Save
	start = time.Now()
	if *outputFile != "" {
		fmt.Printf("\nSaving network to %s...\n", *outputFile)
		if err := net.Save(*outputFile); err != nil {
			fatalf("Error saving: %v", err)
		}
	}
	if *jsonFile != "" {
		fmt.Printf("Exporting weights to %s...\n", *jsonFile)
		if err := utils.SaveWeights(*jsonFile, utils.ExportNetwork(net)); err != nil {
			fatalf("Error exporting weights: %v", err)
		}
	}
	stats.SavingTime = time.Since(start)

	stats.TotalTime = time.Since(totalStart)
	utils.PrintTimingStats(stats, *epochs*train.Len())
}

func buildNetwork(arch []int) (*nn.Network, error) {
	if *loadFile == "" {
		return nn.New(arch, rand.NewSource(*seed))
	}
	fmt.Printf("Restoring network from %s...\n", *loadFile)
	net, err := nn.Load(*loadFile)
	if err != nil {
		return nil, err
	}
	sizes := net.LayerSizes()
	if len(sizes) != len(arch) {
		return nil, fmt.Errorf("%w: saved network has layers %v, requested %v", nn.ErrConfig, sizes, arch)
	}
	for i := range sizes {
		if sizes[i] != arch[i] {
			return nil, fmt.Errorf("%w: saved network has layers %v, requested %v", nn.ErrConfig, sizes, arch)
		}
	}
	return net, nil
}

// loadCorpus reads csvPath when set, otherwise the IDX pair named
// <prefix>-images-idx3-ubyte / <prefix>-labels-idx1-ubyte in the data
// directory, preferring gzipped copies.
func loadCorpus(csvPath, prefix string, width int) (*mnist.Corpus, error) {
	if csvPath != "" {
		f, err := os.Open(csvPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return mnist.ReadCSV(f, width)
	}
	images := corpusFile(prefix + "-images-idx3-ubyte")
	labels := corpusFile(prefix + "-labels-idx1-ubyte")
	if *verbose {
		fmt.Printf("Loading %s and %s...\n", images, labels)
	}
	return mnist.Load(images, labels)
}

func corpusFile(name string) string {
	path := filepath.Join(*dataDir, name)
	if _, err := os.Stat(path + ".gz"); err == nil {
		return path + ".gz"
	}
	return path
}

func progressWriter() io.Writer {
	if *verbose {
		return os.Stdout
	}
	return nil
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
