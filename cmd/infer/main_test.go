package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopKIndices(t *testing.T) {
	vals := []float64{0.1, 0.7, 0.05, 0.9}
	assert.Equal(t, []int{3, 1}, topKIndices(vals, 2))
	assert.Equal(t, []int{3, 1, 0, 2}, topKIndices(vals, 10))
	assert.Empty(t, topKIndices(vals, 0))
	assert.Empty(t, topKIndices(vals, -1))
}
