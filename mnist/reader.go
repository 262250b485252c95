// Package mnist reads handwritten-digit corpora in the IDX binary format
// (and the label-first CSV variant) into normalized sample vectors.
package mnist

import (
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"digitnet/tensor"
)

var (
	ErrFormat = errors.New("mnist: malformed corpus")
	ErrIO     = errors.New("mnist: i/o failure")
)

// preallocLimit caps how many values are reserved up front from a declared
// record count, so a corrupt header cannot force a huge allocation.
const preallocLimit = 1 << 24

// Images is a decoded image file. Pixels holds one row of Rows*Cols values in
// [0, 1] per record.
type Images struct {
	Magic  uint32
	Rows   int
	Cols   int
	Pixels *tensor.Tensor
}

// Len returns the number of records.
func (im *Images) Len() int { return im.Pixels.Shape[0] }

// ReadImages decodes an image stream: big-endian uint32 magic, count, rows and
// cols, followed by count*rows*cols unsigned bytes. Each byte is divided by
// 255 and the records are kept flattened row-major. The magic number is not
// checked.
func ReadImages(r io.Reader) (*Images, error) {
	var hdr [4]uint32
	if err := readHeader(r, hdr[:], "image"); err != nil {
		return nil, err
	}
	count, rows, cols := int(hdr[1]), int(hdr[2]), int(hdr[3])
	pixels := uint64(hdr[2]) * uint64(hdr[3])
	if pixels == 0 && count > 0 {
		return nil, fmt.Errorf("%w: image header declares %dx%d pixels", ErrFormat, rows, cols)
	}
	if pixels > preallocLimit {
		return nil, fmt.Errorf("%w: image header declares %dx%d pixels per image", ErrFormat, rows, cols)
	}
	width := int(pixels)

	reserve := preallocLimit
	if width > 0 && count <= preallocLimit/width {
		reserve = count * width
	}
	data := make([]float64, 0, reserve)
	record := make([]byte, width)
	for i := 0; i < count; i++ {
		if err := readFull(r, record, fmt.Sprintf("image %d of %d", i, count)); err != nil {
			return nil, err
		}
		for _, b := range record {
			data = append(data, float64(b)/255)
		}
	}

	return &Images{
		Magic:  hdr[0],
		Rows:   rows,
		Cols:   cols,
		Pixels: &tensor.Tensor{Data: data, Shape: []int{count, width}},
	}, nil
}

// ReadLabels decodes a label stream: big-endian uint32 magic and count,
// followed by one unsigned byte per record.
func ReadLabels(r io.Reader) ([]int, error) {
	var hdr [2]uint32
	if err := readHeader(r, hdr[:], "label"); err != nil {
		return nil, err
	}
	count := int(hdr[1])

	labels := make([]int, 0, min(count, preallocLimit))
	buf := make([]byte, 4096)
	for remaining := count; remaining > 0; {
		chunk := buf[:min(remaining, len(buf))]
		if err := readFull(r, chunk, fmt.Sprintf("labels %d..%d of %d", count-remaining, count-remaining+len(chunk), count)); err != nil {
			return nil, err
		}
		for _, b := range chunk {
			labels = append(labels, int(b))
		}
		remaining -= len(chunk)
	}
	return labels, nil
}

func readHeader(r io.Reader, fields []uint32, kind string) error {
	if err := binary.Read(r, binary.BigEndian, fields); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: %s header shorter than %d bytes", ErrFormat, kind, 4*len(fields))
		}
		return fmt.Errorf("%w: reading %s header: %w", ErrIO, kind, err)
	}
	return nil
}

func readFull(r io.Reader, buf []byte, what string) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: stream ends before %s", ErrFormat, what)
		}
		return fmt.Errorf("%w: reading %s: %w", ErrIO, what, err)
	}
	return nil
}

// Open opens a corpus file for reading, transparently decompressing it when
// the name ends in ".gz".
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s is not gzip: %w", ErrFormat, path, err)
	}
	return &gzipFile{Reader: zr, f: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g *gzipFile) Close() error {
	zerr := g.Reader.Close()
	if err := g.f.Close(); err != nil {
		return err
	}
	return zerr
}
