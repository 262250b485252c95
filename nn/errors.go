package nn

import (
	"errors"
	"fmt"
)

// Error kinds reported by the engine. Concrete errors wrap one of these, so
// callers should test with errors.Is.
var (
	ErrConfig    = errors.New("nn: invalid layer configuration")
	ErrDimension = errors.New("nn: dimension mismatch")
	ErrFormat    = errors.New("nn: malformed network file")
	ErrIO        = errors.New("nn: i/o failure")
)

// DimensionError reports a vector whose length does not match the layer it
// is presented to.
type DimensionError struct {
	What string // "input" or "target"
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("nn: expected %s size %d, but found %d", e.What, e.Want, e.Got)
}

func (e *DimensionError) Is(target error) bool {
	return target == ErrDimension
}

// FormatError reports the first line of a persisted network that could not be
// parsed.
type FormatError struct {
	Line int
	Msg  string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("nn: network file line %d: %s", e.Line, e.Msg)
}

func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}
