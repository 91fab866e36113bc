package solver

import (
	"math"
)

// fdStepFactor scales the finite-difference step with the cube root of the
// machine epsilon, the usual balance between truncation and rounding error
// for central differences.
var fdStepFactor = math.Cbrt(2.220446049250313e-16)

// numericalGradient approximates the gradient of f at x by central
// differences, falling back to one-sided differences where a centered step
// would leave the bound box.
func numericalGradient(f func([]float64) float64, x []float64, bounds []Bound) []float64 {
	n := len(x)
	grad := make([]float64, n)
	point := make([]float64, n)
	copy(point, x)
	fx := f(x)

	for i := 0; i < n; i++ {
		h := fdStepFactor * math.Max(1.0, math.Abs(x[i]))

		lo, hi := math.Inf(-1), math.Inf(1)
		if len(bounds) != 0 {
			lo, hi = bounds[i].Lower, bounds[i].Upper
		}

		forward := x[i]+h <= hi
		backward := x[i]-h >= lo

		switch {
		case forward && backward:
			point[i] = x[i] + h
			fPlus := f(point)
			point[i] = x[i] - h
			fMinus := f(point)
			grad[i] = (fPlus - fMinus) / (2 * h)
		case forward:
			point[i] = x[i] + h
			grad[i] = (f(point) - fx) / h
		case backward:
			point[i] = x[i] - h
			grad[i] = (fx - f(point)) / h
		default:
			// The interval is narrower than the step; the variable is
			// effectively fixed.
			grad[i] = 0
		}
		point[i] = x[i]
	}
	return grad
}
