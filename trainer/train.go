// Package trainer drives epoch-based online training of a classifier network
// and measures it against a labeled corpus.
package trainer

import (
	"fmt"
	"io"
	"time"

	"gonum.org/v1/gonum/stat"

	"digitnet/nn"
)

// DefaultProgressEvery is how many training samples pass between progress
// lines when Config.ProgressEvery is unset.
const DefaultProgressEvery = 3000

// Dataset is a fully materialized labeled corpus.
type Dataset interface {
	Len() int
	Sample(i int) ([]float64, int)
}

// Learner is a network that can take one online training step.
type Learner interface {
	OutputSize() int
	Train(input, target []float64, learningRate float64) (float64, error)
}

// Classifier is a network that can score an input.
type Classifier interface {
	OutputSize() int
	Calculate(input []float64) ([]float64, error)
}

// Config controls a TrainEpochs run.
type Config struct {
	Epochs        int
	LearningRate  float64
	ProgressEvery int
	Progress      io.Writer // nil disables progress output
}

// EpochStats summarizes one pass over the training data.
type EpochStats struct {
	Epoch    int
	MeanLoss float64
	Duration time.Duration
}

// History holds the stats of every completed epoch, in order.
type History struct {
	Epochs []EpochStats
}

// Last returns the stats of the final epoch, or the zero value if nothing ran.
func (h *History) Last() EpochStats {
	if len(h.Epochs) == 0 {
		return EpochStats{}
	}
	return h.Epochs[len(h.Epochs)-1]
}

// TrainEpochs runs cfg.Epochs passes over data in corpus order. Each sample is
// trained against a one-hot target with 1 at its label. A label outside
// [0, OutputSize) stops training with nn.ErrDimension; samples before it have
// already been applied.
func TrainEpochs(net Learner, data Dataset, cfg Config) (*History, error) {
	if cfg.Epochs < 0 {
		return nil, fmt.Errorf("%w: epochs must not be negative, got %d", nn.ErrConfig, cfg.Epochs)
	}
	every := cfg.ProgressEvery
	if every <= 0 {
		every = DefaultProgressEvery
	}

	classes := net.OutputSize()
	target := make([]float64, classes)
	losses := make([]float64, data.Len())
	history := &History{Epochs: make([]EpochStats, 0, cfg.Epochs)}

	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		progressf(cfg.Progress, "Epoch %d of %d\n", epoch, cfg.Epochs)
		start := time.Now()

		for i := 0; i < data.Len(); i++ {
			input, label := data.Sample(i)
			if err := oneHot(target, label); err != nil {
				return history, fmt.Errorf("epoch %d, sample %d: %w", epoch, i, err)
			}
			loss, err := net.Train(input, target, cfg.LearningRate)
			if err != nil {
				return history, fmt.Errorf("epoch %d, sample %d: %w", epoch, i, err)
			}
			losses[i] = loss

			if (i+1)%every == 0 {
				progressf(cfg.Progress, "%d images processed\n", i+1)
			}
		}

		stats := EpochStats{Epoch: epoch, Duration: time.Since(start)}
		if len(losses) > 0 {
			stats.MeanLoss = stat.Mean(losses, nil)
		}
		history.Epochs = append(history.Epochs, stats)
		progressf(cfg.Progress, "Epoch %d of %d complete: mean loss %.6f (%s)\n",
			epoch, cfg.Epochs, stats.MeanLoss, stats.Duration.Round(time.Millisecond))
	}
	return history, nil
}

// oneHot resets target and sets the label position to 1.
func oneHot(target []float64, label int) error {
	if label < 0 || label >= len(target) {
		return fmt.Errorf("%w: label %d outside the %d output classes", nn.ErrDimension, label, len(target))
	}
	for i := range target {
		target[i] = 0
	}
	target[label] = 1
	return nil
}

func progressf(w io.Writer, format string, args ...any) {
	if w != nil {
		fmt.Fprintf(w, format, args...)
	}
}
