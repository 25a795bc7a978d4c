// Package floatutils provides utilities for working with floats
package floatutils

// Argmax returns the maximum value in a slice of float64 and the index
// at which it first occurs. Ties are broken in favour of the lowest
// index so that the result is deterministic for a fixed slice.
//
// Argmax panics if values is empty.
func Argmax(values []float64) (max float64, index int) {
	max, index = values[0], 0

	for i, value := range values[1:] {
		if value > max {
			max = value
			index = i + 1
		}
	}
	return
}

// MaxRows returns the maximum of each consecutive row of length cols
// in the flattened row-major matrix values.
func MaxRows(values []float64, cols int) []float64 {
	if cols <= 0 || len(values)%cols != 0 {
		panic("maxrows: values cannot be split into rows of length cols")
	}

	rows := len(values) / cols
	maxes := make([]float64, rows)
	for i := 0; i < rows; i++ {
		maxes[i], _ = Argmax(values[i*cols : (i+1)*cols])
	}
	return maxes
}
