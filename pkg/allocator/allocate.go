package allocator

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/mixmodel/spend-allocator/pkg/mathutil"
	"github.com/mixmodel/spend-allocator/pkg/solver"
)

// Bounds is the inclusive spend interval allowed for one channel.
type Bounds struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Request describes one allocation run.
type Request struct {
	// TotalBudget is the amount to distribute across all channels. It must
	// be finite and not negative.
	TotalBudget float64

	// Bounds optionally restricts per-channel spend. Channels absent from a
	// non-nil mapping receive the default interval (0, TotalBudget); a nil
	// mapping applies the default to every channel and raises an advisory.
	Bounds map[string]Bounds

	// Constraints optionally replaces the default equality constraint that
	// pins total spend to the budget. A non-nil slice is passed to the
	// solver verbatim, with no feasibility checking; nil installs the
	// default and raises an advisory.
	Constraints []solver.Constraint
}

// AdvisoryCode identifies a non-fatal condition noticed during allocation.
type AdvisoryCode string

const (
	// AdvisoryDefaultBounds reports that no bounds were supplied and the
	// default interval (0, TotalBudget) was applied to every channel.
	AdvisoryDefaultBounds AdvisoryCode = "default_bounds"

	// AdvisoryDefaultConstraint reports that no custom constraints were
	// supplied and the default budget equality was applied.
	AdvisoryDefaultConstraint AdvisoryCode = "default_constraint"

	// AdvisoryUnknownChannel reports a bounds key that names no configured
	// channel.
	AdvisoryUnknownChannel AdvisoryCode = "unknown_channel"
)

// Advisory is a non-fatal notice attached to a successful allocation.
type Advisory struct {
	Code    AdvisoryCode `json:"code"`
	Message string       `json:"message"`
}

// Result holds a completed allocation.
type Result struct {
	// Channels lists the channel names in optimizer order; Allocation and
	// Contributions are keyed by these names.
	Channels []string `json:"channels"`

	// Allocation maps each channel to its optimal spend.
	Allocation map[string]float64 `json:"allocation"`

	// TotalResponse is the modeled response of the allocation, recomputed
	// at the returned spend levels.
	TotalResponse float64 `json:"totalResponse"`

	// Contributions maps each channel to its share of the response.
	Contributions map[string]float64 `json:"contributions"`

	// Advisories lists non-fatal conditions noticed during the run.
	Advisories []Advisory `json:"advisories,omitempty"`

	// Iterations is the number of solver iterations spent.
	Iterations int `json:"iterations"`
}

// Allocate distributes the requested budget across the configured channels.
// Configuration problems in the request fail before any objective
// evaluation; a minimization that does not converge fails with the solver
// diagnostic and no partial result.
func (b *BudgetOptimizer) Allocate(req Request) (*Result, error) {
	if !mathutil.IsFinite(req.TotalBudget) || req.TotalBudget < 0 {
		return nil, configError("total budget must be finite and not negative, got %v", req.TotalBudget)
	}

	bounds, advisories, err := b.resolveBounds(req)
	if err != nil {
		return nil, err
	}
	constraints, constraintAdvisories, err := b.resolveConstraints(req)
	if err != nil {
		return nil, err
	}
	advisories = append(advisories, constraintAdvisories...)

	n := len(b.channels)
	initial := make([]float64, n)
	for i := range initial {
		initial[i] = req.TotalBudget / float64(n)
	}

	b.logger.Debug("starting allocation",
		zap.Float64("totalBudget", req.TotalBudget),
		zap.Int("channels", n),
		zap.String("op", "allocator.Allocate"),
	)

	res, err := solver.Minimize(solver.Problem{
		Objective: func(x []float64) float64 {
			return -b.response(x)
		},
		Bounds:      bounds,
		Constraints: constraints,
	}, initial, b.solver)
	if err != nil {
		var ncErr *solver.NotConvergedError
		if errors.As(err, &ncErr) {
			b.logger.Debug("allocation did not converge",
				zap.String("reason", ncErr.Reason),
				zap.Int("iterations", ncErr.Iterations),
				zap.String("op", "allocator.Allocate"),
			)
			return nil, &OptimizationError{Message: ncErr.Reason, Iterations: ncErr.Iterations}
		}
		return nil, configError("%v", err)
	}

	channels := make([]string, n)
	allocation := make(map[string]float64, n)
	for i, ch := range b.channels {
		channels[i] = ch.name
		allocation[ch.name] = res.X[i]
	}

	result := &Result{
		Channels:      channels,
		Allocation:    allocation,
		TotalResponse: b.response(res.X),
		Contributions: b.contributions(res.X),
		Advisories:    advisories,
		Iterations:    res.Iterations,
	}

	b.logger.Debug("allocation complete",
		zap.Float64("totalResponse", result.TotalResponse),
		zap.Int("iterations", result.Iterations),
		zap.String("op", "allocator.Allocate"),
	)
	return result, nil
}

// resolveBounds maps the per-channel bound intervals onto solver bounds in
// channel order. Supplied intervals are used verbatim after a structural
// check; missing channels get the default interval (0, TotalBudget).
func (b *BudgetOptimizer) resolveBounds(req Request) ([]solver.Bound, []Advisory, error) {
	n := len(b.channels)
	bounds := make([]solver.Bound, n)
	var advisories []Advisory

	if req.Bounds == nil {
		for i := range bounds {
			bounds[i] = solver.Bound{Lower: 0, Upper: req.TotalBudget}
		}
		advisories = append(advisories, Advisory{
			Code:    AdvisoryDefaultBounds,
			Message: fmt.Sprintf("no budget bounds provided, using default bounds (0, %g) for every channel", req.TotalBudget),
		})
		return bounds, advisories, nil
	}

	known := make(map[string]bool, n)
	for i, ch := range b.channels {
		known[ch.name] = true
		interval, ok := req.Bounds[ch.name]
		if !ok {
			bounds[i] = solver.Bound{Lower: 0, Upper: req.TotalBudget}
			continue
		}
		if !mathutil.IsFinite(interval.Min) || !mathutil.IsFinite(interval.Max) {
			return nil, nil, configError("bounds for channel %q must be finite, got (%v, %v)", ch.name, interval.Min, interval.Max)
		}
		if interval.Min < 0 || interval.Min > interval.Max {
			return nil, nil, configError("bounds for channel %q must satisfy 0 <= min <= max, got (%v, %v)", ch.name, interval.Min, interval.Max)
		}
		bounds[i] = solver.Bound{Lower: interval.Min, Upper: interval.Max}
	}

	var unknown []string
	for name := range req.Bounds {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		advisories = append(advisories, Advisory{
			Code:    AdvisoryUnknownChannel,
			Message: fmt.Sprintf("bounds provided for unknown channel %q are ignored", name),
		})
	}
	return bounds, advisories, nil
}

// resolveConstraints passes caller constraints to the solver verbatim or
// installs the default equality pinning total spend to the budget.
func (b *BudgetOptimizer) resolveConstraints(req Request) ([]solver.Constraint, []Advisory, error) {
	if req.Constraints == nil {
		total := req.TotalBudget
		n := len(b.channels)
		defaultEquality := solver.Constraint{
			Kind: solver.Equality,
			F: func(x []float64) float64 {
				return floats.Sum(x) - total
			},
			Grad: func(x []float64) []float64 {
				grad := make([]float64, n)
				for i := range grad {
					grad[i] = 1
				}
				return grad
			},
		}
		advisory := Advisory{
			Code:    AdvisoryDefaultConstraint,
			Message: "no custom constraints provided, using default constraint sum(budgets) = total budget",
		}
		return []solver.Constraint{defaultEquality}, []Advisory{advisory}, nil
	}

	for i, c := range req.Constraints {
		if c.F == nil {
			return nil, nil, configError("custom constraint %d has no function", i)
		}
		if c.Kind != solver.Equality && c.Kind != solver.Inequality {
			return nil, nil, configError("custom constraint %d has invalid kind %d", i, int(c.Kind))
		}
	}
	return req.Constraints, nil, nil
}
