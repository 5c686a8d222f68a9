package report

import (
	"encoding/csv"
	"errors"
	"io"
	"math"
	"slices"

	"github.com/couchcryptid/dsd-laf/internal/domain"
	"gonum.org/v1/gonum/floats"
)

// ErrNoCommonCenters is returned by Compare when the two fits share no grid
// center.
var ErrNoCommonCenters = errors.New("report: fits share no grid center")

// Comparison is the discrepancy between the fits of two sites over the grid
// centers both resolved.
type Comparison struct {
	SiteA     string
	SiteB     string
	SupportA  float64 // shared centers / centers of A
	SupportB  float64 // shared centers / centers of B
	L2RD      float64
	L2RDW     float64 // weights 1/(radiusA*radiusB)
	MedianRD  float64
	MedianRDW float64 // weights 1/(radiusA*radiusB)
	Couples   int
}

type centerKey struct{ muR, gammaR float64 }

// Compare joins a and b on (mu_r, gamma_r) and measures the discrepancy of
// their physical medians. Discrepancies are rounded to 4 digits and support
// fractions to 3.
func Compare(a, b []domain.FitRow) (Comparison, error) {
	byCenter := make(map[centerKey]domain.FitRow, len(b))
	for _, r := range b {
		byCenter[centerKey{r.MuR, r.GammaR}] = r
	}

	var diff, mean, weight, rd []float64
	c := Comparison{}
	for _, ra := range a {
		rb, ok := byCenter[centerKey{ra.MuR, ra.GammaR}]
		if !ok {
			continue
		}
		if c.Couples == 0 {
			c.SiteA, c.SiteB = ra.Site, rb.Site
		}
		c.Couples++
		d := math.Abs(ra.Physical.Median-rb.Physical.Median) / 2
		m := math.Abs(ra.Physical.Median+rb.Physical.Median) / 2
		diff = append(diff, d)
		mean = append(mean, m)
		weight = append(weight, 1/(ra.Radius*rb.Radius))
		rd = append(rd, d/m)
	}
	if c.Couples == 0 {
		return Comparison{}, ErrNoCommonCenters
	}

	num := floats.Dot(diff, diff)
	den := floats.Dot(mean, mean)
	d2 := make([]float64, len(diff))
	m2 := make([]float64, len(mean))
	floats.MulTo(d2, diff, diff)
	floats.MulTo(m2, mean, mean)
	numW := floats.Dot(d2, weight)
	denW := floats.Dot(m2, weight)

	c.SupportA = roundTo(float64(c.Couples)/float64(len(a)), 3)
	c.SupportB = roundTo(float64(c.Couples)/float64(len(b)), 3)
	c.L2RD = roundTo(math.Sqrt(num)/math.Sqrt(den), 4)
	c.L2RDW = roundTo(math.Sqrt(numW)/math.Sqrt(denW), 4)
	c.MedianRD = roundTo(median(rd), 4)
	c.MedianRDW = roundTo(weightedMedian(rd, weight), 4)
	return c, nil
}

// Reverse returns c with the support fractions exchanged; the sites keep
// their order.
func (c Comparison) Reverse() Comparison {
	c.SupportA, c.SupportB = c.SupportB, c.SupportA
	return c
}

// WriteComparisons writes rows comma-separated with a header.
func WriteComparisons(w io.Writer, rows ...Comparison) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"site_A", "site_B", "support_perc_A", "support_perc_B", "L2RD", "L2RD_w", "median_RD", "median_RD_w"}); err != nil {
		return err
	}
	for _, c := range rows {
		rec := []string{
			c.SiteA, c.SiteB,
			formatFloat(c.SupportA), formatFloat(c.SupportB),
			formatFloat(c.L2RD), formatFloat(c.L2RDW),
			formatFloat(c.MedianRD), formatFloat(c.MedianRDW),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// median averages the two middle values of an even-length sample.
func median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	s := slices.Clone(values)
	slices.Sort(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// weightedMedian returns the smallest value at which the cumulative weight
// reaches half the total. When it reaches exactly half, the value is
// averaged with the next one.
func weightedMedian(values, weights []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	slices.SortFunc(idx, func(a, b int) int {
		switch {
		case values[a] < values[b]:
			return -1
		case values[a] > values[b]:
			return 1
		}
		return 0
	})

	half := floats.Sum(weights) / 2
	cum := 0.0
	for k, i := range idx {
		cum += weights[i]
		if cum < half {
			continue
		}
		if cum == half && k+1 < len(idx) {
			return (values[i] + values[idx[k+1]]) / 2
		}
		return values[i]
	}
	return values[idx[len(idx)-1]]
}

// roundTo rounds half to even at the given number of fractional digits.
func roundTo(x float64, digits int) float64 {
	p := math.Pow10(digits)
	return math.RoundToEven(x*p) / p
}
