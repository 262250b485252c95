package nn

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const (
	sizeHeader       = "# Network size "
	layerSizesHeader = "# Network layer sizes "
	weightsHeader    = "# Weights layer "
	biasesHeader     = "# Biases layer "

	// maxLineSize bounds a single weight row; 16 MiB is ~700k values.
	maxLineSize = 16 << 20
	// maxParams bounds the allocation a file header can request.
	maxParams = 1 << 28
)

// Save writes the network to path in the text format, truncating any existing
// file. If writing fails part way the file may be left truncated; callers that
// need atomic replacement should save to a temporary path and rename.
func (n *Network) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	if _, err := n.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %w", ErrIO, path, err)
	}
	return nil
}

// WriteTo writes the network in the text format:
//
//	# Network size <N>
//	# Network layer sizes <s0> ... <sN-1>
//	# Weights layer 1
//	<s0 lines of s1 values>
//	# Biases layer 1
//	<1 line of s1 values>
//	...
//
// Values use the shortest representation that parses back to the same
// float64, so a save/load/save cycle is byte identical.
func (n *Network) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: bufio.NewWriter(w)}

	fmt.Fprintf(cw, "%s%d\n", sizeHeader, len(n.sizes))
	cw.WriteString(layerSizesHeader)
	for l, s := range n.sizes {
		if l > 0 {
			cw.WriteString(" ")
		}
		cw.WriteString(strconv.Itoa(s))
	}
	cw.WriteString("\n")

	for l := 1; l < len(n.sizes); l++ {
		fmt.Fprintf(cw, "%s%d\n", weightsHeader, l)
		for i := 0; i < n.sizes[l-1]; i++ {
			writeRow(cw, n.weights[l].Row(i))
		}
		fmt.Fprintf(cw, "%s%d\n", biasesHeader, l)
		writeRow(cw, n.biases[l])
	}

	if cw.err == nil {
		cw.err = cw.w.Flush()
	}
	if cw.err != nil {
		return cw.n, fmt.Errorf("%w: writing network: %w", ErrIO, cw.err)
	}
	return cw.n, nil
}

func writeRow(cw *countingWriter, row []float64) {
	buf := make([]byte, 0, 24*len(row)+1)
	for j, v := range row {
		if j > 0 {
			buf = append(buf, ' ')
		}
		buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
	}
	buf = append(buf, '\n')
	cw.Write(buf)
}

// countingWriter remembers the first write error so WriteTo can check once.
type countingWriter struct {
	w   *bufio.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	m, err := c.w.Write(p)
	c.n += int64(m)
	c.err = err
	return m, err
}

func (c *countingWriter) WriteString(s string) (int, error) {
	return c.Write([]byte(s))
}

// Load reads a network previously written by Save.
func Load(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer f.Close()
	return ReadFrom(f)
}

// ReadFrom parses a network in the text format written by WriteTo. Any
// deviation from the expected headers or shapes yields an error matching
// ErrFormat and no network.
func ReadFrom(r io.Reader) (*Network, error) {
	p := &parser{state: expectSize}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		p.line++
		if err := p.step(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		if err == bufio.ErrTooLong {
			return nil, &FormatError{Line: p.line + 1, Msg: "line too long"}
		}
		return nil, fmt.Errorf("%w: reading network: %w", ErrIO, err)
	}
	if p.state != done {
		return nil, &FormatError{Line: p.line, Msg: "unexpected end of file, " + p.expecting()}
	}
	return p.net, nil
}

type parseState int

const (
	expectSize parseState = iota
	expectLayerSizes
	expectWeightsHeader
	expectWeightRow
	expectBiasesHeader
	expectBiasRow
	done
)

// parser consumes one line per step. layer and row track the position inside
// the parameter section.
type parser struct {
	state parseState
	line  int
	size  int
	net   *Network
	layer int
	row   int
}

func (p *parser) step(text string) error {
	switch p.state {
	case expectSize:
		rest, err := p.header(text, sizeHeader)
		if err != nil {
			return err
		}
		n, err := strconv.Atoi(strings.TrimSuffix(rest, " "))
		if err != nil {
			return p.errorf("bad network size %q", rest)
		}
		if n < 2 {
			return p.errorf("network size %d, need at least 2 layers", n)
		}
		p.size = n
		p.state = expectLayerSizes

	case expectLayerSizes:
		rest, err := p.header(text, layerSizesHeader)
		if err != nil {
			return err
		}
		// Sizes are separated by single spaces; one trailing space is allowed.
		fields := strings.Split(strings.TrimSuffix(rest, " "), " ")
		if len(fields) != p.size {
			return p.errorf("declared %d layers but listed %d sizes", p.size, len(fields))
		}
		sizes := make([]int, len(fields))
		for l, f := range fields {
			s, err := strconv.Atoi(f)
			if err != nil || s <= 0 {
				return p.errorf("bad size %q for layer %d", f, l)
			}
			sizes[l] = s
		}
		if !withinLimit(sizes) {
			return p.errorf("layer sizes %v exceed %d parameters", sizes, maxParams)
		}
		p.net = allocate(sizes)
		p.layer = 1
		p.state = expectWeightsHeader

	case expectWeightsHeader:
		if text != weightsHeader+strconv.Itoa(p.layer) {
			return p.errorf("bad header %q, %s", text, p.expecting())
		}
		p.row = 0
		p.state = expectWeightRow

	case expectWeightRow:
		if err := p.values(text, p.net.weights[p.layer].Row(p.row)); err != nil {
			return err
		}
		p.row++
		if p.row == p.net.sizes[p.layer-1] {
			p.state = expectBiasesHeader
		}

	case expectBiasesHeader:
		if text != biasesHeader+strconv.Itoa(p.layer) {
			return p.errorf("bad header %q, %s", text, p.expecting())
		}
		p.state = expectBiasRow

	case expectBiasRow:
		if err := p.values(text, p.net.biases[p.layer]); err != nil {
			return err
		}
		p.layer++
		if p.layer == len(p.net.sizes) {
			p.state = done
		} else {
			p.state = expectWeightsHeader
		}

	case done:
		if strings.TrimSpace(text) != "" {
			return p.errorf("unexpected content after last layer")
		}
	}
	return nil
}

func withinLimit(sizes []int) bool {
	total := 0
	for l := 1; l < len(sizes); l++ {
		if sizes[l-1] > maxParams || sizes[l] > maxParams {
			return false
		}
		total += sizes[l-1]*sizes[l] + sizes[l]
		if total > maxParams {
			return false
		}
	}
	return true
}

func (p *parser) header(text, prefix string) (string, error) {
	if !strings.HasPrefix(text, prefix) {
		return "", p.errorf("bad header %q, %s", text, p.expecting())
	}
	return text[len(prefix):], nil
}

// values parses exactly len(dst) floats from text into dst.
func (p *parser) values(text string, dst []float64) error {
	fields := strings.Fields(text)
	if len(fields) != len(dst) {
		return p.errorf("expected %d values, found %d", len(dst), len(fields))
	}
	for j, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return p.errorf("bad value %q", f)
		}
		dst[j] = v
	}
	return nil
}

func (p *parser) expecting() string {
	switch p.state {
	case expectSize:
		return "expected " + strconv.Quote(strings.TrimSpace(sizeHeader))
	case expectLayerSizes:
		return "expected " + strconv.Quote(strings.TrimSpace(layerSizesHeader))
	case expectWeightsHeader:
		return "expected " + strconv.Quote(weightsHeader+strconv.Itoa(p.layer))
	case expectWeightRow:
		return fmt.Sprintf("expected weight row %d of layer %d", p.row, p.layer)
	case expectBiasesHeader:
		return "expected " + strconv.Quote(biasesHeader+strconv.Itoa(p.layer))
	case expectBiasRow:
		return fmt.Sprintf("expected biases of layer %d", p.layer)
	}
	return "expected end of file"
}

func (p *parser) errorf(format string, args ...any) error {
	return &FormatError{Line: p.line, Msg: fmt.Sprintf(format, args...)}
}
