package trainer

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"digitnet/nn"
)

// DefaultEvalProgressEvery is how many test samples pass between progress lines.
const DefaultEvalProgressEvery = 1000

// Evaluate classifies every sample of data and tallies the predictions. The
// predicted class is the index of the largest output, the first one on ties.
func Evaluate(net Classifier, data Dataset, progress io.Writer) (*Report, error) {
	k := net.OutputSize()
	if k <= 0 {
		return nil, fmt.Errorf("%w: classifier has %d outputs", nn.ErrDimension, k)
	}
	report := &Report{
		classes:   k,
		confusion: mat.NewDense(k, k, nil),
	}

	for i := 0; i < data.Len(); i++ {
		input, label := data.Sample(i)
		if label < 0 || label >= k {
			return nil, fmt.Errorf("sample %d: %w: label %d outside the %d output classes", i, nn.ErrDimension, label, k)
		}

		output, err := net.Calculate(input)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		if len(output) != k {
			return nil, fmt.Errorf("sample %d: %w", i, &nn.DimensionError{What: "output", Want: k, Got: len(output)})
		}

		guess := floats.MaxIdx(output)
		report.record(label, guess)

		if (i+1)%DefaultEvalProgressEvery == 0 {
			progressf(progress, "%d images tested\n", i+1)
		}
	}
	return report, nil
}
