package domain

import "math"

// Default grid bounds of the canonical plane. The renormalized space is
// nominally [0, 1]; the grid overshoots on both sides so that neighborhoods
// of centers near the unit-square boundary are still covered.
const (
	DefaultGridMin  = -0.51
	DefaultGridMax  = 2.01
	DefaultGridStep = 0.02
)

// GridSpec describes one axis of the square candidate grid: values
// Min, Min+Step, ... strictly below Max.
type GridSpec struct {
	Min  float64 `koanf:"min"`
	Max  float64 `koanf:"max"`
	Step float64 `koanf:"step"`
}

// DefaultGridSpec yields 126 values per axis, 15,876 centers.
var DefaultGridSpec = GridSpec{Min: DefaultGridMin, Max: DefaultGridMax, Step: DefaultGridStep}

// Validate checks that s describes a non-empty finite axis.
func (s GridSpec) Validate() error {
	for _, v := range [...]float64{s.Min, s.Max, s.Step} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ConfigErrorf("grid", "bounds and step must be finite")
		}
	}
	if s.Step <= 0 {
		return ConfigErrorf("grid.step", "must be positive, got %g", s.Step)
	}
	if s.Max <= s.Min {
		return ConfigErrorf("grid.max", "must exceed grid.min (%g <= %g)", s.Max, s.Min)
	}
	return nil
}

// Axis returns the coordinate values of one axis, rounded to 6 digits.
func (s GridSpec) Axis() []float64 {
	// The tolerance absorbs representation error in (Max-Min)/Step so that
	// an exact multiple does not gain a value at Max.
	n := int(math.Ceil((s.Max-s.Min)/s.Step - 1e-9))
	axis := make([]float64, n)
	for k := range axis {
		axis[k] = Round6(s.Min + float64(k)*s.Step)
	}
	return axis
}
