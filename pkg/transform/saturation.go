package transform

import (
	"fmt"
	"math"

	"github.com/mixmodel/spend-allocator/pkg/mathutil"
)

// Saturation family names accepted in configuration
const (
	// SaturationLogistic is the logistic diminishing-returns family
	SaturationLogistic = "logistic"

	// SaturationMichaelisMenten is the Michaelis-Menten diminishing-returns family
	SaturationMichaelisMenten = "michaelis_menten"

	// SaturationHill is the Hill-function diminishing-returns family
	SaturationHill = "hill"

	// SaturationTanh is the hyperbolic-tangent diminishing-returns family
	SaturationTanh = "tanh"
)

// Saturation models within-period diminishing returns. Every variant passes
// through the origin, increases strictly, and stays finite on any budget
// interval.
type Saturation interface {
	// Kind returns the family name the variant was registered under.
	Kind() string

	// Validate checks the parameter domain of the variant.
	Validate() error

	// At evaluates the curve at a single spend level.
	At(x float64) float64
}

// Saturate applies a saturation curve elementwise to a spend series.
func Saturate(s Saturation, series []float64) []float64 {
	out := make([]float64, len(series))
	for i, v := range series {
		out[i] = s.At(v)
	}
	return out
}

// Logistic is the logistic saturation curve
// Beta * (1 - exp(-Lam*x)) / (1 + exp(-Lam*x)), saturating at Beta.
type Logistic struct {
	Lam  float64
	Beta float64
}

// Kind returns the family name for logistic saturation.
func (s Logistic) Kind() string { return SaturationLogistic }

// Validate checks that the rate and ceiling are positive and finite.
func (s Logistic) Validate() error {
	if !(s.Lam > 0) || !mathutil.IsFinite(s.Lam) {
		return fmt.Errorf("logistic saturation requires lam > 0, got %v", s.Lam)
	}
	if !(s.Beta > 0) || !mathutil.IsFinite(s.Beta) {
		return fmt.Errorf("logistic saturation requires beta > 0, got %v", s.Beta)
	}
	return nil
}

// At evaluates the logistic curve at a single spend level.
func (s Logistic) At(x float64) float64 {
	// Tanh form of (1-e^(-Lam*x))/(1+e^(-Lam*x)); stable for large Lam*x.
	return s.Beta * math.Tanh(s.Lam*x/2)
}

// MichaelisMenten is the curve Alpha * x / (Lam + x): Alpha is the maximum
// effect and Lam the spend level producing half of it.
type MichaelisMenten struct {
	Alpha float64
	Lam   float64
}

// Kind returns the family name for Michaelis-Menten saturation.
func (s MichaelisMenten) Kind() string { return SaturationMichaelisMenten }

// Validate checks that the maximum effect and half-saturation point are
// positive and finite.
func (s MichaelisMenten) Validate() error {
	if !(s.Alpha > 0) || !mathutil.IsFinite(s.Alpha) {
		return fmt.Errorf("michaelis_menten saturation requires alpha > 0, got %v", s.Alpha)
	}
	if !(s.Lam > 0) || !mathutil.IsFinite(s.Lam) {
		return fmt.Errorf("michaelis_menten saturation requires lam > 0, got %v", s.Lam)
	}
	return nil
}

// At evaluates the Michaelis-Menten curve at a single spend level.
func (s MichaelisMenten) At(x float64) float64 {
	return s.Alpha * x / (s.Lam + x)
}

// Hill is the curve Beta * x^Slope / (Kappa^Slope + x^Slope): half saturation
// at Kappa, steepness controlled by Slope, ceiling Beta.
type Hill struct {
	Kappa float64
	Slope float64
	Beta  float64
}

// Kind returns the family name for Hill saturation.
func (s Hill) Kind() string { return SaturationHill }

// Validate checks that all three parameters are positive and finite.
func (s Hill) Validate() error {
	if !(s.Kappa > 0) || !mathutil.IsFinite(s.Kappa) {
		return fmt.Errorf("hill saturation requires kappa > 0, got %v", s.Kappa)
	}
	if !(s.Slope > 0) || !mathutil.IsFinite(s.Slope) {
		return fmt.Errorf("hill saturation requires slope > 0, got %v", s.Slope)
	}
	if !(s.Beta > 0) || !mathutil.IsFinite(s.Beta) {
		return fmt.Errorf("hill saturation requires beta > 0, got %v", s.Beta)
	}
	return nil
}

// At evaluates the Hill curve at a single spend level.
func (s Hill) At(x float64) float64 {
	if x <= 0 {
		return 0
	}
	xs := math.Pow(x, s.Slope)
	return s.Beta * xs / (math.Pow(s.Kappa, s.Slope) + xs)
}

// Tanh is the curve B * tanh(x / (B*C)): B is the saturation ceiling and C
// shapes how quickly it is approached.
type Tanh struct {
	B float64
	C float64
}

// Kind returns the family name for tanh saturation.
func (s Tanh) Kind() string { return SaturationTanh }

// Validate checks that the ceiling and shape parameters are positive and
// finite.
func (s Tanh) Validate() error {
	if !(s.B > 0) || !mathutil.IsFinite(s.B) {
		return fmt.Errorf("tanh saturation requires b > 0, got %v", s.B)
	}
	if !(s.C > 0) || !mathutil.IsFinite(s.C) {
		return fmt.Errorf("tanh saturation requires c > 0, got %v", s.C)
	}
	return nil
}

// At evaluates the tanh curve at a single spend level.
func (s Tanh) At(x float64) float64 {
	return s.B * math.Tanh(x/(s.B*s.C))
}

// ParseSaturation resolves a family name and its parameter table into a
// validated saturation variant. Resolution happens once at configuration
// time; the returned variant carries no further name dispatch.
func ParseSaturation(kind string, params map[string]float64) (Saturation, error) {
	var sat Saturation
	switch kind {
	case SaturationLogistic:
		lam, err := requireParam(kind, params, "lam")
		if err != nil {
			return nil, err
		}
		beta, err := requireParam(kind, params, "beta")
		if err != nil {
			return nil, err
		}
		sat = Logistic{Lam: lam, Beta: beta}
	case SaturationMichaelisMenten:
		alpha, err := requireParam(kind, params, "alpha")
		if err != nil {
			return nil, err
		}
		lam, err := requireParam(kind, params, "lam")
		if err != nil {
			return nil, err
		}
		sat = MichaelisMenten{Alpha: alpha, Lam: lam}
	case SaturationHill:
		kappa, err := requireParam(kind, params, "kappa")
		if err != nil {
			return nil, err
		}
		slope, err := requireParam(kind, params, "slope")
		if err != nil {
			return nil, err
		}
		beta, err := requireParam(kind, params, "beta")
		if err != nil {
			return nil, err
		}
		sat = Hill{Kappa: kappa, Slope: slope, Beta: beta}
	case SaturationTanh:
		b, err := requireParam(kind, params, "b")
		if err != nil {
			return nil, err
		}
		c, err := requireParam(kind, params, "c")
		if err != nil {
			return nil, err
		}
		sat = Tanh{B: b, C: c}
	default:
		return nil, fmt.Errorf("unknown saturation type %q", kind)
	}
	if err := sat.Validate(); err != nil {
		return nil, err
	}
	return sat, nil
}
