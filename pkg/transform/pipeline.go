package transform

import (
	"fmt"
)

// Order selects which transform stage runs first when a channel's series is
// evaluated.
type Order int

const (
	// AdstockFirst applies carry-over before saturation. This is the
	// conventional ordering and the default.
	AdstockFirst Order = iota

	// SaturationFirst applies saturation before carry-over.
	SaturationFirst
)

// Order names accepted in configuration
const (
	// OrderNameAdstockFirst selects the AdstockFirst ordering
	OrderNameAdstockFirst = "adstock_first"

	// OrderNameSaturationFirst selects the SaturationFirst ordering
	OrderNameSaturationFirst = "saturation_first"
)

// String returns the configuration name of the ordering.
func (o Order) String() string {
	switch o {
	case AdstockFirst:
		return OrderNameAdstockFirst
	case SaturationFirst:
		return OrderNameSaturationFirst
	}
	return fmt.Sprintf("order(%d)", int(o))
}

// ParseOrder maps a configuration string onto an Order. The empty string
// selects the default AdstockFirst ordering.
func ParseOrder(name string) (Order, error) {
	switch name {
	case "", OrderNameAdstockFirst:
		return AdstockFirst, nil
	case OrderNameSaturationFirst:
		return SaturationFirst, nil
	}
	return AdstockFirst, fmt.Errorf("unknown transform order %q", name)
}

// Pipeline fixes the evaluation horizon and stage ordering shared by every
// channel of an allocation problem.
type Pipeline struct {
	NumDays int
	MaxLag  int
	Order   Order
}

// Validate checks the horizon and lag window of the pipeline.
func (p Pipeline) Validate() error {
	if p.NumDays < 1 {
		return fmt.Errorf("num_days must be at least 1, got %d", p.NumDays)
	}
	if p.MaxLag < 0 {
		return fmt.Errorf("max_lag must not be negative, got %d", p.MaxLag)
	}
	if p.Order != AdstockFirst && p.Order != SaturationFirst {
		return fmt.Errorf("invalid transform order %d", int(p.Order))
	}
	return nil
}

// SeriesLength returns the padded series length NumDays + MaxLag.
func (p Pipeline) SeriesLength() int {
	return p.NumDays + p.MaxLag
}

// ConstantSeries builds the padded spend series for one channel: the spend
// level in each of the NumDays periods followed by MaxLag zero periods that
// let the carried effect of late spend play out.
func (p Pipeline) ConstantSeries(spend float64) []float64 {
	series := make([]float64, p.SeriesLength())
	for i := 0; i < p.NumDays; i++ {
		series[i] = spend
	}
	return series
}

// Run evaluates one channel at a constant spend level: the padded series is
// pushed through the carry-over filter and the saturation curve in the
// configured order, and the transformed series is returned.
func (p Pipeline) Run(spend float64, weights []float64, sat Saturation) []float64 {
	series := p.ConstantSeries(spend)
	if p.Order == SaturationFirst {
		series = Saturate(sat, series)
		return Convolve(series, weights)
	}
	series = Convolve(series, weights)
	return Saturate(sat, series)
}
