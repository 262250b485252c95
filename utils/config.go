package utils

import (
	"fmt"
	"strconv"
	"strings"

	"digitnet/nn"
)

// Config holds training configuration
type Config struct {
	Architecture []int
	Epochs       int
	LearningRate float64
	// InputWidth is the pixel count of the corpus samples; 0 skips the check.
	InputWidth int
}

// ParseArchitecture parses architecture string into slice of integers
func ParseArchitecture(archStr string) ([]int, error) {
	archParts := strings.Fields(archStr)
	arch := make([]int, len(archParts))
	for i, s := range archParts {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("%w: layer size %q is not an integer", nn.ErrConfig, s)
		}
		arch[i] = n
	}
	return arch, nil
}

// ValidateConfig validates training configuration
func ValidateConfig(config *Config) error {
	if len(config.Architecture) < 2 {
		return fmt.Errorf("%w: architecture must have at least 2 layers (input and output)", nn.ErrConfig)
	}

	for i, n := range config.Architecture {
		if n <= 0 {
			return fmt.Errorf("%w: layer %d has size %d, must be positive", nn.ErrConfig, i, n)
		}
	}

	if config.Epochs <= 0 {
		return fmt.Errorf("%w: epochs must be positive", nn.ErrConfig)
	}

	if config.LearningRate <= 0 {
		return fmt.Errorf("%w: learning rate must be positive", nn.ErrConfig)
	}

	if config.InputWidth > 0 && config.Architecture[0] != config.InputWidth {
		return fmt.Errorf("%w: input layer has %d neurons but samples have %d pixels",
			nn.ErrConfig, config.Architecture[0], config.InputWidth)
	}

	return nil
}
