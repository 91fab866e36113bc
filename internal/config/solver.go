package config

import (
	"strings"

	"github.com/mixmodel/spend-allocator/pkg/constants"
	"github.com/mixmodel/spend-allocator/pkg/solver"
	"github.com/mixmodel/spend-allocator/pkg/transform"
)

// PipelineConfig describes the response pipeline shared by every channel.
type PipelineConfig struct {
	NumDays int    `yaml:"numDays,omitempty"`
	MaxLag  *int   `yaml:"maxLag,omitempty"`
	Order   string `yaml:"order,omitempty"` // adstock_first, saturation_first
}

// SolverConfig overrides the solver's stopping criteria.
type SolverConfig struct {
	Tolerance           float64 `yaml:"tolerance,omitempty"`
	ConstraintTolerance float64 `yaml:"constraintTolerance,omitempty"`
	MaxIterations       int     `yaml:"maxIterations,omitempty"`
}

// Normalize ensures defaults are applied before validation.
func (p *PipelineConfig) Normalize() {
	if p == nil {
		return
	}
	if p.NumDays == 0 {
		p.NumDays = constants.DefaultNumDays
	}
	if p.MaxLag == nil {
		maxLag := constants.DefaultMaxLag
		p.MaxLag = &maxLag
	}
	p.Order = strings.ToLower(strings.TrimSpace(p.Order))
}

// lagWindow returns the configured lag window, or the default when unset.
func (p *PipelineConfig) lagWindow() int {
	if p.MaxLag == nil {
		return constants.DefaultMaxLag
	}
	return *p.MaxLag
}

// Build converts the pipeline section into its resolved form.
func (p *PipelineConfig) Build() (transform.Pipeline, error) {
	order, err := transform.ParseOrder(strings.ToLower(strings.TrimSpace(p.Order)))
	if err != nil {
		return transform.Pipeline{}, err
	}

	numDays := p.NumDays
	if numDays == 0 {
		numDays = constants.DefaultNumDays
	}

	pipeline := transform.Pipeline{
		NumDays: numDays,
		MaxLag:  p.lagWindow(),
		Order:   order,
	}
	if err := pipeline.Validate(); err != nil {
		return transform.Pipeline{}, err
	}
	return pipeline, nil
}

// Normalize ensures defaults are applied before validation.
func (s *SolverConfig) Normalize() {
	if s == nil {
		return
	}
	if s.Tolerance <= 0 {
		s.Tolerance = constants.DefaultTolerance
	}
	if s.ConstraintTolerance <= 0 {
		s.ConstraintTolerance = constants.DefaultConstraintTolerance
	}
	if s.MaxIterations <= 0 {
		s.MaxIterations = constants.DefaultMaxIterations
	}
}

// Options converts the solver section into solver options. Zero values fall
// through to the solver's own defaults.
func (s *SolverConfig) Options() solver.Options {
	return solver.Options{
		Tolerance:           s.Tolerance,
		ConstraintTolerance: s.ConstraintTolerance,
		MaxIterations:       s.MaxIterations,
	}
}
