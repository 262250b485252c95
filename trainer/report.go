package trainer

import (
	"bytes"
	"fmt"
	"io"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const separator = "----------------------------------------"

// Report holds evaluation counts. Rows of the confusion matrix are the actual
// classes and columns the predicted ones.
type Report struct {
	classes   int
	correct   int
	total     int
	confusion *mat.Dense
}

func (r *Report) record(actual, predicted int) {
	r.confusion.Set(actual, predicted, r.confusion.At(actual, predicted)+1)
	if actual == predicted {
		r.correct++
	}
	r.total++
}

// Classes returns the number of output classes.
func (r *Report) Classes() int { return r.classes }

// Correct returns how many samples were classified correctly.
func (r *Report) Correct() int { return r.correct }

// Total returns how many samples were evaluated.
func (r *Report) Total() int { return r.total }

// Accuracy returns the fraction of correct predictions, 0 for an empty run.
func (r *Report) Accuracy() float64 {
	if r.total == 0 {
		return 0
	}
	return float64(r.correct) / float64(r.total)
}

// Count returns how many samples of class actual were predicted as predicted.
func (r *Report) Count(actual, predicted int) int {
	return int(r.confusion.At(actual, predicted))
}

// Frequency returns how many samples of the class were seen.
func (r *Report) Frequency(class int) int {
	return int(floats.Sum(r.confusion.RawRowView(class)))
}

// Wrong returns how many samples of the class were misclassified.
func (r *Report) Wrong(class int) int {
	return r.Frequency(class) - r.Count(class, class)
}

// ErrorRate returns the misclassified fraction of the class, 0 if the class
// never occurred.
func (r *Report) ErrorRate(class int) float64 {
	freq := r.Frequency(class)
	if freq == 0 {
		return 0
	}
	return float64(r.Wrong(class)) / float64(freq)
}

// Confusion returns a copy of the confusion matrix.
func (r *Report) Confusion() *mat.Dense {
	return mat.DenseCopyOf(r.confusion)
}

// WriteTo prints the accuracy, a statistic block per class and the confusion
// matrix.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Percentage of right %.2f%%\n", 100*r.Accuracy())
	for expected := 0; expected < r.classes; expected++ {
		fmt.Fprintln(&buf, separator)
		fmt.Fprintf(&buf, "Number %d statistic\n", expected)
		for guess := 0; guess < r.classes; guess++ {
			fmt.Fprintf(&buf, "%d times network guessed %d\n", r.Count(expected, guess), guess)
		}
		fmt.Fprintf(&buf, "Wrongly guessed %d of %d times (%.2f%%)\n",
			r.Wrong(expected), r.Frequency(expected), 100*r.ErrorRate(expected))
	}
	fmt.Fprintln(&buf, separator)

	fmt.Fprintln(&buf, "Confusion matrix (rows actual, columns predicted):")
	fmt.Fprintf(&buf, "%v\n", mat.Formatted(r.confusion, mat.Squeeze()))

	return buf.WriteTo(w)
}
