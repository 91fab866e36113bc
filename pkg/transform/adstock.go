// Package transform implements the channel spend response model: carry-over
// (adstock) filters and saturation curves composed into a two-stage pipeline.
package transform

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/mixmodel/spend-allocator/pkg/mathutil"
)

// Adstock family names accepted in configuration
const (
	// AdstockGeometric is the geometric-decay carry-over family
	AdstockGeometric = "geometric"

	// AdstockWeibullPDF is the Weibull density-weighted carry-over family
	AdstockWeibullPDF = "weibull_pdf"

	// AdstockWeibullCDF is the Weibull CDF-increment carry-over family
	AdstockWeibullCDF = "weibull_cdf"
)

// Adstock models the delayed carry-over of spend effect across periods. A
// variant is resolved from configuration once and afterwards only produces
// its normalized lag-weight window.
type Adstock interface {
	// Kind returns the family name the variant was registered under.
	Kind() string

	// Validate checks the parameter domain of the variant.
	Validate() error

	// Weights returns the normalized weight window for lags 0 through maxLag.
	// The window always sums to one.
	Weights(maxLag int) ([]float64, error)
}

// Geometric decays the carried effect by a constant factor per period: the
// weight at lag k is Decay^k before normalization.
type Geometric struct {
	Decay float64
}

// Kind returns the family name for geometric adstock.
func (g Geometric) Kind() string { return AdstockGeometric }

// Validate checks that the decay rate lies strictly between 0 and 1.
func (g Geometric) Validate() error {
	if !(g.Decay > 0 && g.Decay < 1) {
		return fmt.Errorf("geometric adstock requires 0 < decay < 1, got %v", g.Decay)
	}
	return nil
}

// Weights returns the normalized geometric window Decay^k for k = 0..maxLag.
func (g Geometric) Weights(maxLag int) ([]float64, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	raw := make([]float64, maxLag+1)
	for k := range raw {
		raw[k] = math.Pow(g.Decay, float64(k))
	}
	return normalizeWindow(raw, maxLag)
}

// WeibullPDF weights lag k by the Weibull density evaluated at k+1, which
// allows delayed-peak carry-over shapes that geometric decay cannot express.
type WeibullPDF struct {
	Shape float64
	Scale float64
}

// Kind returns the family name for Weibull PDF adstock.
func (w WeibullPDF) Kind() string { return AdstockWeibullPDF }

// Validate checks that shape and scale are positive and finite.
func (w WeibullPDF) Validate() error {
	return validateWeibull(w.Kind(), w.Shape, w.Scale)
}

// Weights returns the normalized density window pdf(k+1) for k = 0..maxLag.
func (w WeibullPDF) Weights(maxLag int) ([]float64, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	dist := distuv.Weibull{K: w.Shape, Lambda: w.Scale}
	raw := make([]float64, maxLag+1)
	for k := range raw {
		raw[k] = dist.Prob(float64(k + 1))
	}
	return normalizeWindow(raw, maxLag)
}

// WeibullCDF weights lag k by the Weibull probability mass falling in the
// interval (k, k+1], i.e. CDF(k+1) - CDF(k).
type WeibullCDF struct {
	Shape float64
	Scale float64
}

// Kind returns the family name for Weibull CDF adstock.
func (w WeibullCDF) Kind() string { return AdstockWeibullCDF }

// Validate checks that shape and scale are positive and finite.
func (w WeibullCDF) Validate() error {
	return validateWeibull(w.Kind(), w.Shape, w.Scale)
}

// Weights returns the normalized CDF-increment window for k = 0..maxLag.
func (w WeibullCDF) Weights(maxLag int) ([]float64, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	dist := distuv.Weibull{K: w.Shape, Lambda: w.Scale}
	raw := make([]float64, maxLag+1)
	for k := range raw {
		raw[k] = dist.CDF(float64(k+1)) - dist.CDF(float64(k))
	}
	return normalizeWindow(raw, maxLag)
}

func validateWeibull(kind string, shape, scale float64) error {
	if !(shape > 0) || !mathutil.IsFinite(shape) {
		return fmt.Errorf("%s adstock requires shape > 0, got %v", kind, shape)
	}
	if !(scale > 0) || !mathutil.IsFinite(scale) {
		return fmt.Errorf("%s adstock requires scale > 0, got %v", kind, scale)
	}
	return nil
}

// normalizeWindow scales a raw weight window to unit mass. A window whose
// total mass is zero, negative, or non-finite cannot describe a carry-over
// distribution and is rejected here, before any objective evaluation.
func normalizeWindow(raw []float64, maxLag int) ([]float64, error) {
	if maxLag < 0 {
		return nil, fmt.Errorf("lag window length must not be negative, got %d", maxLag)
	}
	total := floats.Sum(raw)
	if !(total > 0) || !mathutil.IsFinite(total) {
		return nil, fmt.Errorf("degenerate lag window with weight mass %v", total)
	}
	floats.Scale(1/total, raw)
	return raw, nil
}

// Convolve applies a lag-weight window to a spend series as a causal filter:
// periods before the start of the series carry zero spend and the output has
// the same length as the input.
func Convolve(series, weights []float64) []float64 {
	out := make([]float64, len(series))
	for t := range series {
		var acc float64
		for k, w := range weights {
			if k > t {
				break
			}
			acc += w * series[t-k]
		}
		out[t] = acc
	}
	return out
}

// ParseAdstock resolves a family name and its parameter table into a
// validated adstock variant. Resolution happens once at configuration time;
// the returned variant carries no further name dispatch.
func ParseAdstock(kind string, params map[string]float64) (Adstock, error) {
	var adstock Adstock
	switch kind {
	case AdstockGeometric:
		decay, err := requireParam(kind, params, "decay")
		if err != nil {
			return nil, err
		}
		adstock = Geometric{Decay: decay}
	case AdstockWeibullPDF, AdstockWeibullCDF:
		shape, err := requireParam(kind, params, "shape")
		if err != nil {
			return nil, err
		}
		scale, err := requireParam(kind, params, "scale")
		if err != nil {
			return nil, err
		}
		if kind == AdstockWeibullPDF {
			adstock = WeibullPDF{Shape: shape, Scale: scale}
		} else {
			adstock = WeibullCDF{Shape: shape, Scale: scale}
		}
	default:
		return nil, fmt.Errorf("unknown adstock type %q", kind)
	}
	if err := adstock.Validate(); err != nil {
		return nil, err
	}
	return adstock, nil
}

func requireParam(kind string, params map[string]float64, key string) (float64, error) {
	val, ok := params[key]
	if !ok {
		return 0, fmt.Errorf("%s requires parameter %q", kind, key)
	}
	return val, nil
}
