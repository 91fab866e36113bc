// Package configprocessor provides shared configuration processing utilities.
package configprocessor

import (
	"github.com/mixmodel/spend-allocator/pkg/validation"
)

// ChannelInfo represents channel configuration information
type ChannelInfo struct {
	Name string

	// Decay is the geometric carry-over rate, zero for other carry-over
	// families.
	Decay float64

	HasBounds bool
	MinSpend  float64
	MaxSpend  float64
}

// PlanInfo represents allocation plan configuration information
type PlanInfo struct {
	TotalBudget float64
	NumDays     int
	MaxLag      int
	Channels    []ChannelInfo
}

// Processor handles configuration processing and validation
type Processor struct{}

// NewProcessor creates a new configuration processor
func NewProcessor() *Processor {
	return &Processor{}
}

// ValidateConfiguration validates an allocation plan and returns warnings
func (p *Processor) ValidateConfiguration(plan PlanInfo) []string {
	// Convert to validation types
	checks := make([]validation.ChannelCheck, 0, len(plan.Channels))
	for _, channel := range plan.Channels {
		checks = append(checks, validation.ChannelCheck{
			Name:      channel.Name,
			Decay:     channel.Decay,
			HasBounds: channel.HasBounds,
			Min:       channel.MinSpend,
			Max:       channel.MaxSpend,
		})
	}

	validator := validation.PlanValidator{
		TotalBudget: plan.TotalBudget,
		NumDays:     plan.NumDays,
		MaxLag:      plan.MaxLag,
		Channels:    checks,
	}

	return validator.ValidateAll()
}
