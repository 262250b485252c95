package trainer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"digitnet/nn"
)

type samples struct {
	inputs [][]float64
	labels []int
}

func (s samples) Len() int { return len(s.labels) }

func (s samples) Sample(i int) ([]float64, int) { return s.inputs[i], s.labels[i] }

// constant always scores class 0 highest.
type constant struct{ classes int }

func (c constant) OutputSize() int { return c.classes }

func (c constant) Calculate(input []float64) ([]float64, error) {
	out := make([]float64, c.classes)
	out[0] = 1
	return out, nil
}

// recorder keeps every target it is trained on.
type recorder struct {
	classes int
	targets [][]float64
}

func (r *recorder) OutputSize() int { return r.classes }

func (r *recorder) Train(input, target []float64, learningRate float64) (float64, error) {
	r.targets = append(r.targets, append([]float64(nil), target...))
	return 0.5, nil
}

func TestEvaluateConstantClassifier(t *testing.T) {
	data := samples{
		inputs: [][]float64{{0}, {0}, {0}},
		labels: []int{0, 0, 1},
	}
	report, err := Evaluate(constant{classes: 2}, data, nil)
	require.NoError(t, err)

	assert.InDelta(t, 2.0/3.0, report.Accuracy(), 1e-12)
	assert.Equal(t, 2, report.Count(0, 0))
	assert.Equal(t, 1, report.Count(1, 0))
	assert.Equal(t, 0, report.Count(1, 1))
	assert.Equal(t, 2, report.Frequency(0))
	assert.Equal(t, 1, report.Frequency(1))
	assert.Equal(t, 0.0, report.ErrorRate(0))
	assert.Equal(t, 1.0, report.ErrorRate(1))
	assert.Equal(t, 3, report.Total())
	assert.Equal(t, 2, report.Correct())
}

func TestEvaluateEmpty(t *testing.T) {
	report, err := Evaluate(constant{classes: 10}, samples{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, report.Accuracy())
	for c := 0; c < 10; c++ {
		assert.Equal(t, 0.0, report.ErrorRate(c))
	}
}

func TestEvaluateRejectsLabelOutOfRange(t *testing.T) {
	data := samples{inputs: [][]float64{{0}}, labels: []int{2}}
	_, err := Evaluate(constant{classes: 2}, data, nil)
	assert.ErrorIs(t, err, nn.ErrDimension)
}

func TestEvaluatePropagatesDimensionErrors(t *testing.T) {
	net, err := nn.New([]int{3, 2}, rand.NewSource(1))
	require.NoError(t, err)
	data := samples{inputs: [][]float64{{1, 2}}, labels: []int{0}}
	_, err = Evaluate(net, data, nil)
	assert.ErrorIs(t, err, nn.ErrDimension)
}

func TestEvaluateProgress(t *testing.T) {
	data := samples{}
	for i := 0; i < 2500; i++ {
		data.inputs = append(data.inputs, []float64{0})
		data.labels = append(data.labels, i%3)
	}
	var out bytes.Buffer
	_, err := Evaluate(constant{classes: 3}, data, &out)
	require.NoError(t, err)
	assert.Equal(t, "1000 images tested\n2000 images tested\n", out.String())
}

func TestTrainEpochsBuildsOneHotTargets(t *testing.T) {
	data := samples{
		inputs: [][]float64{{0}, {1}, {2}},
		labels: []int{2, 0, 1},
	}
	net := &recorder{classes: 3}
	history, err := TrainEpochs(net, data, Config{Epochs: 2, LearningRate: 0.1})
	require.NoError(t, err)

	want := [][]float64{{0, 0, 1}, {1, 0, 0}, {0, 1, 0}}
	assert.Equal(t, append(want, want...), net.targets)

	require.Len(t, history.Epochs, 2)
	assert.Equal(t, 2, history.Last().Epoch)
	assert.InDelta(t, 0.5, history.Last().MeanLoss, 1e-12)
}

func TestTrainEpochsRejectsLabelOutOfRange(t *testing.T) {
	data := samples{inputs: [][]float64{{0}, {0}}, labels: []int{1, 10}}
	net := &recorder{classes: 10}
	_, err := TrainEpochs(net, data, Config{Epochs: 1, LearningRate: 0.1})
	assert.ErrorIs(t, err, nn.ErrDimension)
	assert.Len(t, net.targets, 1)
}

func TestTrainEpochsRejectsNegativeEpochs(t *testing.T) {
	data := samples{inputs: [][]float64{{0}}, labels: []int{0}}
	net := &recorder{classes: 2}
	_, err := TrainEpochs(net, data, Config{Epochs: -1, LearningRate: 0.1})
	assert.ErrorIs(t, err, nn.ErrConfig)
	assert.Empty(t, net.targets)

	history, err := TrainEpochs(net, data, Config{Epochs: 0, LearningRate: 0.1})
	require.NoError(t, err)
	assert.Empty(t, history.Epochs)
}

func TestTrainEpochsProgress(t *testing.T) {
	data := samples{}
	for i := 0; i < 7; i++ {
		data.inputs = append(data.inputs, []float64{0})
		data.labels = append(data.labels, 0)
	}
	var out bytes.Buffer
	_, err := TrainEpochs(&recorder{classes: 1}, data, Config{
		Epochs:        1,
		LearningRate:  0.1,
		ProgressEvery: 3,
		Progress:      &out,
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Epoch 1 of 1", lines[0])
	assert.Equal(t, "3 images processed", lines[1])
	assert.Equal(t, "6 images processed", lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "Epoch 1 of 1 complete: mean loss 0.500000"), lines[3])
}

// A small network learns to separate two well-apart patterns.
func TestTrainThenEvaluate(t *testing.T) {
	data := samples{
		inputs: [][]float64{
			{1, 1, 0, 0},
			{0, 0, 1, 1},
			{0.9, 1, 0.1, 0},
			{0, 0.1, 1, 0.9},
		},
		labels: []int{0, 1, 0, 1},
	}
	net, err := nn.New([]int{4, 3, 2}, rand.NewSource(7))
	require.NoError(t, err)

	history, err := TrainEpochs(net, data, Config{Epochs: 2000, LearningRate: 0.5})
	require.NoError(t, err)
	require.Len(t, history.Epochs, 2000)
	assert.Less(t, history.Last().MeanLoss, history.Epochs[0].MeanLoss)

	report, err := Evaluate(net, data, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, report.Accuracy())
}

func TestReportWriteTo(t *testing.T) {
	data := samples{
		inputs: [][]float64{{0}, {0}, {0}},
		labels: []int{0, 0, 1},
	}
	report, err := Evaluate(constant{classes: 2}, data, nil)
	require.NoError(t, err)

	var out bytes.Buffer
	n, err := report.WriteTo(&out)
	require.NoError(t, err)
	assert.Equal(t, int64(out.Len()), n)

	text := out.String()
	assert.Contains(t, text, "Percentage of right 66.67%\n")
	assert.Contains(t, text, "Number 0 statistic\n2 times network guessed 0\n0 times network guessed 1\n")
	assert.Contains(t, text, "Wrongly guessed 0 of 2 times (0.00%)\n")
	assert.Contains(t, text, "Number 1 statistic\n1 times network guessed 0\n0 times network guessed 1\n")
	assert.Contains(t, text, "Wrongly guessed 1 of 1 times (100.00%)\n")
	assert.Contains(t, text, "Confusion matrix")
}
