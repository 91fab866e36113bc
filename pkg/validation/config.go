// Package validation provides configuration validation utilities.
package validation

import (
	"fmt"
	"math"

	"github.com/mixmodel/spend-allocator/pkg/constants"
)

// carryoverMassThreshold is the share of geometric carry-over mass allowed to
// fall beyond the lag window before a warning is raised.
const carryoverMassThreshold = 0.10

// ValidateCarryover checks whether the lag window is long enough for the
// configured geometric decay rate. A zero decay means the channel does not
// use geometric carry-over and is skipped.
func ValidateCarryover(channelName string, decay float64, maxLag int) string {
	if decay <= 0 || decay >= 1 {
		return ""
	}

	// For a geometric series the mass beyond lag L is decay^(L+1) of the total.
	truncated := math.Pow(decay, float64(maxLag+1))
	if truncated > carryoverMassThreshold {
		return fmt.Sprintf("Channel '%s' decay %.2f leaves %.0f%% of its carry-over beyond the %d-period window - consider a longer max_lag",
			channelName, decay, truncated*constants.PercentageMultiplier, maxLag)
	}

	return ""
}

// ValidateChannelBounds checks a channel's spend bounds against the total budget
func ValidateChannelBounds(channelName string, min, max, totalBudget float64) []string {
	var warnings []string

	if min == max {
		warnings = append(warnings, fmt.Sprintf("Channel '%s' spend is fixed at %g by its bounds",
			channelName, min))
	}

	if max > totalBudget {
		warnings = append(warnings, fmt.Sprintf("Channel '%s' upper bound %g exceeds the total budget %g",
			channelName, max, totalBudget))
	}

	return warnings
}

// PlanValidator performs comprehensive spend plan validation
type PlanValidator struct {
	TotalBudget float64
	NumDays     int
	MaxLag      int
	Channels    []ChannelCheck
}

// ChannelCheck describes one channel for plan-level checks.
type ChannelCheck struct {
	Name      string
	Decay     float64 // 0 when the channel does not use geometric carry-over
	HasBounds bool
	Min       float64
	Max       float64
}

// ValidateAll validates the entire spend plan and returns warnings
func (pv *PlanValidator) ValidateAll() []string {
	var warnings []string

	if pv.TotalBudget == 0 {
		warnings = append(warnings, "Total budget is zero - every channel will be allocated nothing")
	}

	if pv.NumDays > 0 && pv.MaxLag >= pv.NumDays {
		warnings = append(warnings, fmt.Sprintf("Carry-over window (%d periods) is at least as long as the planning horizon (%d periods) - most response accrues after the plan ends",
			pv.MaxLag, pv.NumDays))
	}

	// Check each channel's carry-over window and bounds
	for _, channel := range pv.Channels {
		if warning := ValidateCarryover(channel.Name, channel.Decay, pv.MaxLag); warning != "" {
			warnings = append(warnings, warning)
		}
		if channel.HasBounds {
			boundWarnings := ValidateChannelBounds(channel.Name, channel.Min, channel.Max, pv.TotalBudget)
			warnings = append(warnings, boundWarnings...)
		}
	}

	// Check aggregate feasibility against the budget equality. Channels
	// without explicit bounds default to (0, total budget).
	var sumMin, sumMax float64
	for _, channel := range pv.Channels {
		if channel.HasBounds {
			sumMin += channel.Min
			sumMax += channel.Max
		} else {
			sumMax += pv.TotalBudget
		}
	}
	if len(pv.Channels) > 0 {
		if sumMin > pv.TotalBudget+constants.BudgetTolerance {
			warnings = append(warnings, fmt.Sprintf("Lower bounds sum to %g, exceeding the total budget %g - no feasible allocation exists",
				sumMin, pv.TotalBudget))
		}
		if sumMax < pv.TotalBudget-constants.BudgetTolerance {
			warnings = append(warnings, fmt.Sprintf("Upper bounds sum to %g, below the total budget %g - the budget cannot be fully spent",
				sumMax, pv.TotalBudget))
		}
	}

	return warnings
}
