// Package solver implements a bounded, constrained nonlinear minimizer: an
// augmented Lagrangian outer loop around a bound-projected quasi-Newton inner
// minimizer. It supports box bounds, equality constraints, and inequality
// constraints of the form g(x) >= 0, with derivatives supplied analytically
// or approximated by bound-aware central finite differences.
package solver

import (
	"errors"
	"fmt"

	"github.com/mixmodel/spend-allocator/pkg/constants"
)

// ConstraintKind distinguishes equality from inequality constraints.
type ConstraintKind int

const (
	// Equality requires F(x) == 0 at the solution.
	Equality ConstraintKind = iota

	// Inequality requires F(x) >= 0 at the solution.
	Inequality
)

// String returns a readable name for the constraint kind.
func (k ConstraintKind) String() string {
	switch k {
	case Equality:
		return "equality"
	case Inequality:
		return "inequality"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Constraint couples a constraint function with its kind. Grad is optional;
// when nil the solver falls back to finite differences.
type Constraint struct {
	Kind ConstraintKind
	F    func(x []float64) float64
	Grad func(x []float64) []float64
}

// Bound is an inclusive interval for one variable.
type Bound struct {
	Lower float64
	Upper float64
}

// Problem describes a minimization: an objective with optional analytic
// gradient, optional per-variable bounds, and optional constraints.
type Problem struct {
	Objective   func(x []float64) float64
	Gradient    func(x []float64) []float64
	Bounds      []Bound
	Constraints []Constraint
}

// Options controls solver termination.
type Options struct {
	// Tolerance is the relative objective-change tolerance for convergence.
	Tolerance float64

	// ConstraintTolerance is the largest constraint violation accepted as
	// feasible.
	ConstraintTolerance float64

	// MaxIterations caps the total number of inner minimization iterations.
	MaxIterations int
}

// withDefaults fills unset options with the package defaults.
func (o Options) withDefaults() Options {
	if o.Tolerance <= 0 {
		o.Tolerance = constants.DefaultTolerance
	}
	if o.ConstraintTolerance <= 0 {
		o.ConstraintTolerance = constants.DefaultConstraintTolerance
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = constants.DefaultMaxIterations
	}
	return o
}

// Result holds the solution of a successful minimization.
type Result struct {
	// X is the minimizing point.
	X []float64 `json:"x"`

	// F is the objective value at X.
	F float64 `json:"f"`

	// Iterations is the total number of inner iterations performed.
	Iterations int `json:"iterations"`

	// Message describes how convergence was reached.
	Message string `json:"message"`
}

// ErrNotConverged reports that the minimizer stopped without reaching a
// feasible minimum. Use errors.Is to match it.
var ErrNotConverged = errors.New("optimization did not converge")

// NotConvergedError carries the solver diagnostic for a failed minimization.
type NotConvergedError struct {
	Reason     string
	Iterations int
}

// Error formats the failure with its diagnostic reason.
func (e *NotConvergedError) Error() string {
	return fmt.Sprintf("optimization did not converge after %d iterations: %s", e.Iterations, e.Reason)
}

// Unwrap lets errors.Is match ErrNotConverged.
func (e *NotConvergedError) Unwrap() error {
	return ErrNotConverged
}

// validate checks the structural soundness of a problem against the initial
// point before any evaluation happens.
func (p Problem) validate(x0 []float64) error {
	if p.Objective == nil {
		return fmt.Errorf("objective function is required")
	}
	if len(x0) == 0 {
		return fmt.Errorf("initial point is required")
	}
	if len(p.Bounds) != 0 && len(p.Bounds) != len(x0) {
		return fmt.Errorf("got %d bounds for %d variables", len(p.Bounds), len(x0))
	}
	for i, b := range p.Bounds {
		if b.Lower > b.Upper {
			return fmt.Errorf("invalid bound interval [%v, %v] for variable %d", b.Lower, b.Upper, i)
		}
	}
	for i, c := range p.Constraints {
		if c.F == nil {
			return fmt.Errorf("constraint %d has no function", i)
		}
		if c.Kind != Equality && c.Kind != Inequality {
			return fmt.Errorf("constraint %d has invalid kind %d", i, int(c.Kind))
		}
	}
	return nil
}
