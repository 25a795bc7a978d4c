package floatutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArgmaxFirstMaximum(t *testing.T) {
	max, index := Argmax([]float64{1, 3, -2, 3, 0})
	assert.Equal(t, 3.0, max)
	assert.Equal(t, 1, index)

	max, index = Argmax([]float64{-5})
	assert.Equal(t, -5.0, max)
	assert.Equal(t, 0, index)
}

func TestMaxRows(t *testing.T) {
	maxes := MaxRows([]float64{1, 2, 3, 6, 5, 4}, 3)
	assert.Equal(t, []float64{3, 6}, maxes)

	assert.Panics(t, func() { MaxRows([]float64{1, 2, 3}, 2) })
}
