package domain

import (
	"math"
	"strings"
)

// Moment names a statistical moment of a drop-size distribution.
type Moment string

const (
	MomentMu    Moment = "mu"    // mean diameter
	MomentSigma Moment = "sigma" // standard deviation
	MomentGamma Moment = "gamma" // skewness
	MomentKappa Moment = "kappa" // kurtosis
	MomentEta   Moment = "eta"   // 5th central moment
)

// Moments lists every moment a renormalization table may describe.
var Moments = []Moment{MomentMu, MomentSigma, MomentGamma, MomentKappa, MomentEta}

// ParseMoment resolves a table or flag value into a Moment.
func ParseMoment(s string) (Moment, error) {
	m := Moment(strings.TrimSpace(s))
	for _, known := range Moments {
		if m == known {
			return m, nil
		}
	}
	return "", ConfigErrorf("moment", "unknown statistical moment %q", s)
}

// ParseTargetMoment resolves the moment to fit. Only sigma, kappa and eta are
// fittable; mu and gamma are the coordinates of the fit.
func ParseTargetMoment(s string) (Moment, error) {
	m, err := ParseMoment(s)
	if err != nil {
		return "", err
	}
	if !m.Fittable() {
		return "", ConfigErrorf("moment", "%q is a coordinate, not a fittable moment (want sigma, kappa or eta)", s)
	}
	return m, nil
}

// Fittable reports whether m can be the target of a fit.
func (m Moment) Fittable() bool {
	return m == MomentSigma || m == MomentKappa || m == MomentEta
}

// MomentRecord is one upstream record of physical moments. Columns the
// upstream table does not carry are NaN.
type MomentRecord struct {
	Mu    float64
	Sigma float64
	Gamma float64
	Kappa float64
	Eta   float64
}

// Value returns the record's value for moment m, or NaN for an unknown moment.
func (r MomentRecord) Value(m Moment) float64 {
	switch m {
	case MomentMu:
		return r.Mu
	case MomentSigma:
		return r.Sigma
	case MomentGamma:
		return r.Gamma
	case MomentKappa:
		return r.Kappa
	case MomentEta:
		return r.Eta
	default:
		return math.NaN()
	}
}

// Finite reports whether the coordinates and the target value are all finite.
func (r MomentRecord) Finite(target Moment) bool {
	for _, v := range [...]float64{r.Mu, r.Gamma, r.Value(target)} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Round6 rounds x to 6 fractional digits, halves to even.
func Round6(x float64) float64 {
	return math.RoundToEven(x*1e6) / 1e6
}
