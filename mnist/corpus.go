package mnist

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"digitnet/tensor"
)

// Corpus is a fully loaded set of labeled samples.
type Corpus struct {
	Rows, Cols int
	Images     *tensor.Tensor // [count, Rows*Cols]
	Labels     []int
}

// Len returns the number of samples.
func (c *Corpus) Len() int { return len(c.Labels) }

// Width is the length of each sample vector.
func (c *Corpus) Width() int { return c.Rows * c.Cols }

// Sample returns the pixel vector and label of sample i. The vector aliases
// the corpus storage and must not be modified.
func (c *Corpus) Sample(i int) ([]float64, int) {
	return c.Images.Row(i), c.Labels[i]
}

// Head returns a corpus view of the first n samples (all of them if n <= 0
// or n >= Len).
func (c *Corpus) Head(n int) *Corpus {
	if n <= 0 || n >= c.Len() {
		return c
	}
	w := c.Width()
	return &Corpus{
		Rows:   c.Rows,
		Cols:   c.Cols,
		Images: &tensor.Tensor{Data: c.Images.Data[:n*w], Shape: []int{n, w}},
		Labels: c.Labels[:n],
	}
}

// Load reads a paired image and label file, e.g.
// train-images-idx3-ubyte(.gz) and train-labels-idx1-ubyte(.gz).
func Load(imagesPath, labelsPath string) (*Corpus, error) {
	images, err := loadImages(imagesPath)
	if err != nil {
		return nil, err
	}
	labels, err := loadLabels(labelsPath)
	if err != nil {
		return nil, err
	}
	return NewCorpus(images, labels)
}

// NewCorpus pairs decoded images with their labels.
func NewCorpus(images *Images, labels []int) (*Corpus, error) {
	if images.Len() != len(labels) {
		return nil, fmt.Errorf("%w: %d images but %d labels", ErrFormat, images.Len(), len(labels))
	}
	return &Corpus{
		Rows:   images.Rows,
		Cols:   images.Cols,
		Images: images.Pixels,
		Labels: labels,
	}, nil
}

func loadImages(path string) (*Images, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	images, err := ReadImages(bufio.NewReader(rc))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return images, nil
}

func loadLabels(path string) ([]int, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	labels, err := ReadLabels(bufio.NewReader(rc))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return labels, nil
}

// ReadCSV reads the CSV variant of the corpus: one record per line, the label
// first followed by width pixel values in 0..255. Pixels are divided by 255.
// The corpus is reported as a single row of width pixels.
func ReadCSV(r io.Reader, width int) (*Corpus, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = width + 1
	cr.ReuseRecord = true

	var data []float64
	var labels []int
	for line := 1; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, fmt.Errorf("%w: %w", ErrFormat, err)
			}
			return nil, fmt.Errorf("%w: %w", ErrIO, err)
		}

		label, err := strconv.Atoi(record[0])
		if err != nil || label < 0 {
			return nil, errInvalidLine{line: line, field: 0, value: record[0]}
		}
		for i, s := range record[1:] {
			x, err := strconv.ParseFloat(s, 64)
			if err != nil || x < 0 || x > 255 {
				return nil, errInvalidLine{line: line, field: i + 1, value: s}
			}
			data = append(data, x/255)
		}
		labels = append(labels, label)
	}

	return &Corpus{
		Rows:   1,
		Cols:   width,
		Images: &tensor.Tensor{Data: data, Shape: []int{len(labels), width}},
		Labels: labels,
	}, nil
}

type errInvalidLine struct {
	line  int
	field int
	value string
}

func (e errInvalidLine) Error() string {
	return fmt.Sprintf("mnist: at line %d, field %d: invalid value %q", e.line, e.field, e.value)
}

func (e errInvalidLine) Is(target error) bool {
	return target == ErrFormat
}
