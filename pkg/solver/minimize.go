package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/mixmodel/spend-allocator/pkg/mathutil"
)

// Algorithm parameters. The outer loop follows the classic safeguarded
// augmented Lagrangian scheme: multipliers are refined at approximate inner
// minimizers, and the penalty grows only when a round fails to shrink the
// constraint violation enough.
const (
	armijoSlope        = 1e-4
	backtrackFactor    = 0.5
	maxBacktracks      = 40
	maxInnerPerRound   = 100
	maxOuterRounds     = 60
	initialPenalty     = 1.0
	penaltyGrowth      = 10.0
	maxPenalty         = 1e10
	violationShrink    = 0.25
	maxStallRounds     = 3
	initialPGTolerance = 1e-4
	finalPGTolerance   = 1e-6
)

// innerExit records how an inner minimization round ended.
type innerExit int

const (
	exitGradient innerExit = iota
	exitStagnation
	exitLineSearch
	exitIterationCap
)

type state struct {
	problem    Problem
	opts       Options
	n          int
	x          []float64
	mult       []float64 // one multiplier per constraint
	mu         float64
	iterations int
}

// Minimize finds a feasible minimizer of the problem starting from x0. The
// initial point is projected into the bounds before any evaluation. On
// failure the returned error is a *NotConvergedError carrying the solver
// diagnostic; no partial result accompanies it.
func Minimize(p Problem, x0 []float64, opts Options) (Result, error) {
	if err := p.validate(x0); err != nil {
		return Result{}, err
	}
	opts = opts.withDefaults()

	st := &state{
		problem: p,
		opts:    opts,
		n:       len(x0),
		x:       append([]float64(nil), x0...),
		mult:    make([]float64, len(p.Constraints)),
		mu:      initialPenalty,
	}
	st.project(st.x)

	prevViolation := math.Inf(1)
	stallRounds := 0
	pgTol := initialPGTolerance

	for round := 0; round < maxOuterRounds; round++ {
		exit := st.innerMinimize(pgTol)
		v := st.violation(st.x)

		stationary := exit == exitStagnation || exit == exitLineSearch ||
			(exit == exitGradient && pgTol <= finalPGTolerance)
		if v <= opts.ConstraintTolerance && stationary {
			return Result{
				X:          append([]float64(nil), st.x...),
				F:          p.Objective(st.x),
				Iterations: st.iterations,
				Message:    "optimization converged within tolerance",
			}, nil
		}

		if st.iterations >= opts.MaxIterations {
			return Result{}, &NotConvergedError{
				Reason:     fmt.Sprintf("iteration limit %d reached with constraint violation %.3g", opts.MaxIterations, v),
				Iterations: st.iterations,
			}
		}
		if exit == exitIterationCap {
			// The round ran out before reaching an approximate minimizer;
			// resume it rather than update multipliers at a poor point.
			continue
		}

		st.updateMultipliers(st.x)
		if v > violationShrink*prevViolation {
			if st.mu < maxPenalty {
				st.mu = math.Min(st.mu*penaltyGrowth, maxPenalty)
			} else {
				stallRounds++
				if stallRounds >= maxStallRounds {
					return Result{}, &NotConvergedError{
						Reason: fmt.Sprintf("constraint violation %.3g not reduced below tolerance %.3g; constraints may be infeasible",
							v, opts.ConstraintTolerance),
						Iterations: st.iterations,
					}
				}
			}
		} else {
			stallRounds = 0
		}
		prevViolation = v
		pgTol = math.Max(pgTol/10, finalPGTolerance)
	}

	return Result{}, &NotConvergedError{
		Reason:     fmt.Sprintf("outer iteration limit reached with constraint violation %.3g", st.violation(st.x)),
		Iterations: st.iterations,
	}
}

// project clamps a point into the bound box in place.
func (s *state) project(x []float64) {
	for i, b := range s.problem.Bounds {
		x[i] = mathutil.Clamp(x[i], b.Lower, b.Upper)
	}
}

// lagrangian evaluates the augmented Lagrangian at x: the objective plus the
// multiplier and penalty terms for every constraint. Inequality constraints
// use the Rockafellar form, which is continuously differentiable across the
// active boundary.
func (s *state) lagrangian(x []float64) float64 {
	val := s.problem.Objective(x)
	for i, c := range s.problem.Constraints {
		cv := c.F(x)
		switch c.Kind {
		case Equality:
			val += s.mult[i]*cv + 0.5*s.mu*cv*cv
		case Inequality:
			t := math.Max(0, s.mult[i]-s.mu*cv)
			val += (t*t - s.mult[i]*s.mult[i]) / (2 * s.mu)
		}
	}
	return val
}

// lagrangianGradient evaluates the gradient of the augmented Lagrangian.
// Without an analytic objective gradient the whole augmented Lagrangian is
// differenced at once; otherwise analytic constraint gradients are combined
// where available and differenced where not.
func (s *state) lagrangianGradient(x []float64) []float64 {
	if s.problem.Gradient == nil {
		return numericalGradient(s.lagrangian, x, s.problem.Bounds)
	}
	grad := append([]float64(nil), s.problem.Gradient(x)...)
	for i, c := range s.problem.Constraints {
		cv := c.F(x)
		var w float64
		switch c.Kind {
		case Equality:
			w = s.mult[i] + s.mu*cv
		case Inequality:
			t := s.mult[i] - s.mu*cv
			if t <= 0 {
				continue
			}
			w = -t
		}
		cg := c.Grad
		if cg != nil {
			floats.AddScaled(grad, w, cg(x))
		} else {
			floats.AddScaled(grad, w, numericalGradient(c.F, x, s.problem.Bounds))
		}
	}
	return grad
}

// violation returns the largest constraint violation at x.
func (s *state) violation(x []float64) float64 {
	var v float64
	for _, c := range s.problem.Constraints {
		cv := c.F(x)
		switch c.Kind {
		case Equality:
			v = math.Max(v, math.Abs(cv))
		case Inequality:
			v = math.Max(v, -cv)
		}
	}
	return math.Max(v, 0)
}

// updateMultipliers applies the first-order multiplier estimates at the
// current approximate minimizer.
func (s *state) updateMultipliers(x []float64) {
	for i, c := range s.problem.Constraints {
		cv := c.F(x)
		switch c.Kind {
		case Equality:
			s.mult[i] += s.mu * cv
		case Inequality:
			s.mult[i] = math.Max(0, s.mult[i]-s.mu*cv)
		}
	}
}

// projectedGradientNorm measures stationarity inside the bound box: at an
// active bound only the component pointing back into the box counts.
func (s *state) projectedGradientNorm(x, grad []float64) float64 {
	var norm float64
	for i, g := range grad {
		if len(s.problem.Bounds) != 0 {
			b := s.problem.Bounds[i]
			if x[i] <= b.Lower && g > 0 {
				continue
			}
			if x[i] >= b.Upper && g < 0 {
				continue
			}
		}
		norm = math.Max(norm, math.Abs(g))
	}
	return norm
}

// innerMinimize approximately minimizes the current augmented Lagrangian
// within the bounds using a damped BFGS model, bound projection, and an
// Armijo backtracking line search.
func (s *state) innerMinimize(pgTol float64) innerExit {
	hess := identity(s.n)
	fx := s.lagrangian(s.x)
	grad := s.lagrangianGradient(s.x)
	stagnant := 0

	for inner := 0; inner < maxInnerPerRound; inner++ {
		if s.iterations >= s.opts.MaxIterations {
			return exitIterationCap
		}
		if s.projectedGradientNorm(s.x, grad) <= pgTol {
			return exitGradient
		}

		dir := s.newtonDirection(hess, grad)
		trial, fTrial, moved := s.lineSearch(dir, grad, fx)
		if !moved {
			return exitLineSearch
		}
		s.iterations++

		newGrad := s.lagrangianGradient(trial)
		updateHessian(hess, s.x, trial, grad, newGrad)

		if math.Abs(fx-fTrial) <= s.opts.Tolerance*math.Max(1, math.Abs(fTrial)) {
			stagnant++
		} else {
			stagnant = 0
		}

		copy(s.x, trial)
		fx = fTrial
		grad = newGrad

		if stagnant >= 2 {
			return exitStagnation
		}
	}
	return exitIterationCap
}

// newtonDirection solves the BFGS model on the free variables. Variables
// pinned at a bound by the gradient sign are excluded; if the model is not
// positive definite or not a descent direction, projected steepest descent
// is used instead.
func (s *state) newtonDirection(hess *mat.SymDense, grad []float64) []float64 {
	free := make([]int, 0, s.n)
	for i := 0; i < s.n; i++ {
		if len(s.problem.Bounds) != 0 {
			b := s.problem.Bounds[i]
			if s.x[i] <= b.Lower && grad[i] > 0 {
				continue
			}
			if s.x[i] >= b.Upper && grad[i] < 0 {
				continue
			}
		}
		free = append(free, i)
	}

	dir := make([]float64, s.n)
	if len(free) == 0 {
		return dir
	}

	sub := mat.NewSymDense(len(free), nil)
	for a, i := range free {
		for b := a; b < len(free); b++ {
			sub.SetSym(a, b, hess.At(i, free[b]))
		}
	}
	rhs := mat.NewVecDense(len(free), nil)
	for a, i := range free {
		rhs.SetVec(a, -grad[i])
	}

	var chol mat.Cholesky
	if chol.Factorize(sub) {
		sol := mat.NewVecDense(len(free), nil)
		if err := chol.SolveVecTo(sol, rhs); err == nil {
			var slope float64
			for a, i := range free {
				dir[i] = sol.AtVec(a)
				slope += dir[i] * grad[i]
			}
			if slope < 0 {
				return dir
			}
			for _, i := range free {
				dir[i] = 0
			}
		}
	}

	for _, i := range free {
		dir[i] = -grad[i]
	}
	return dir
}

// lineSearch backtracks along dir, projecting each trial point into the
// bounds, until a sufficient decrease relative to the projected step is
// found. It reports whether any move was possible at all.
func (s *state) lineSearch(dir, grad []float64, fx float64) ([]float64, float64, bool) {
	trial := make([]float64, s.n)
	step := 1.0
	for bt := 0; bt < maxBacktracks; bt++ {
		moved := false
		var decrease float64
		for i := range trial {
			trial[i] = s.x[i] + step*dir[i]
		}
		s.project(trial)
		for i := range trial {
			delta := trial[i] - s.x[i]
			if delta != 0 {
				moved = true
			}
			decrease += grad[i] * delta
		}
		if !moved {
			return nil, 0, false
		}

		if decrease < 0 {
			fTrial := s.lagrangian(trial)
			if mathutil.IsFinite(fTrial) && fTrial <= fx+armijoSlope*decrease {
				return trial, fTrial, true
			}
		}
		step *= backtrackFactor
	}
	return nil, 0, false
}

// updateHessian applies the damped BFGS update to the Hessian model,
// skipping steps whose curvature information is unusable.
func updateHessian(hess *mat.SymDense, xOld, xNew, gOld, gNew []float64) {
	n := len(xOld)
	stepVec := make([]float64, n)
	gradDiff := make([]float64, n)
	for i := range stepVec {
		stepVec[i] = xNew[i] - xOld[i]
		gradDiff[i] = gNew[i] - gOld[i]
	}

	ys := floats.Dot(gradDiff, stepVec)
	if ys <= 1e-10*floats.Norm(stepVec, 2)*floats.Norm(gradDiff, 2) {
		return
	}

	sVec := mat.NewVecDense(n, stepVec)
	yVec := mat.NewVecDense(n, gradDiff)
	bs := mat.NewVecDense(n, nil)
	bs.MulVec(hess, sVec)
	sBs := mat.Dot(sVec, bs)
	if sBs > 0 {
		hess.SymRankOne(hess, -1/sBs, bs)
	}
	hess.SymRankOne(hess, 1/ys, yVec)
}

// identity builds the initial Hessian model.
func identity(n int) *mat.SymDense {
	m := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		m.SetSym(i, i, 1)
	}
	return m
}
