package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	G "gorgonia.org/gorgonia"
)

// ClipGradNorm rescales the gradients of model in place so that their
// global L2 norm is at most maxNorm. The norm before clipping is
// returned.
func ClipGradNorm(model []G.ValueGrad, maxNorm float64) (float64, error) {
	grads := make([][]float64, len(model))
	var sumSquares float64
	for i, node := range model {
		_, g, err := valueGrad(node)
		if err != nil {
			return 0, fmt.Errorf("clipgradnorm: %v", err)
		}
		grads[i] = g
		sumSquares += floats.Dot(g, g)
	}

	norm := math.Sqrt(sumSquares)
	coef := maxNorm / (norm + 1e-6)
	if coef < 1 {
		for _, g := range grads {
			floats.Scale(coef, g)
		}
	}
	return norm, nil
}
