// Command validate checks a fit table against the invariants every fit must
// hold: ordered quantiles, unique centers on the grid, radii drawn from the
// radius sequence in resolution order, and medians that map back to their
// canonical values. Given the moment table as well, it recounts neighbors to
// confirm each center froze at the smallest sufficient radius.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -fits out/fits.txt \
//	  -radius-file data/radius.txt \
//	  -renorm-table data/renorm.csv -renorm-type flux_std \
//	  -moments data/moments.txt -occupancy 20
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"slices"

	"github.com/couchcryptid/dsd-laf/internal/adapter/tabular"
	"github.com/couchcryptid/dsd-laf/internal/domain"
)

// tolerance absorbs the 6-digit rounding of canonical quantiles.
const tolerance = 1e-6

// phase tracks pass/fail for a validation phase.
type phase struct {
	name    string
	errors  []string
	skipped bool
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

type options struct {
	fits        string
	radiusFile  string
	renormTable string
	renormType  string
	moments     string
	occupancy   int
	grid        domain.GridSpec
}

func main() {
	var o options
	flag.StringVar(&o.fits, "fits", "", "fit table to validate")
	flag.StringVar(&o.radiusFile, "radius-file", "", "radius sequence the fit ran with")
	flag.StringVar(&o.renormTable, "renorm-table", "", "renormalization table the fit ran with")
	flag.StringVar(&o.renormType, "renorm-type", "", "renormalization type the fit ran with")
	flag.StringVar(&o.moments, "moments", "", "moment table the fit ran with (enables the radius recount)")
	flag.IntVar(&o.occupancy, "occupancy", 20, "occupancy the fit ran with")
	flag.Float64Var(&o.grid.Min, "grid-min", domain.DefaultGridMin, "grid lower bound")
	flag.Float64Var(&o.grid.Max, "grid-max", domain.DefaultGridMax, "grid upper bound (exclusive)")
	flag.Float64Var(&o.grid.Step, "grid-step", domain.DefaultGridStep, "grid step")
	flag.Parse()

	if o.fits == "" {
		flag.Usage()
		os.Exit(1)
	}
	os.Exit(run(o))
}

func run(o options) int {
	fmt.Println("=== Fit Table Validation ===")
	fmt.Println()

	target, rows, err := tabular.ReadFitsFile(o.fits)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load fit table: %v\n", err)
		return 1
	}
	if err := o.grid.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	var radii []float64
	if o.radiusFile != "" {
		if radii, err = tabular.ReadRadiiFile(o.radiusFile); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load radius file: %v\n", err)
			return 1
		}
	}

	var rn *domain.Renormalization
	if o.renormTable != "" {
		t, err := tabular.ReadRenormTableFile(o.renormTable)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load renorm table: %v\n", err)
			return 1
		}
		r, err := domain.ResolveRenormalization(t, o.renormType, target)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
			return 1
		}
		rn = &r
	}

	var obs []domain.Observation
	if o.moments != "" && rn != nil {
		records, err := tabular.ReadMomentsFile(o.moments, target)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load moments: %v\n", err)
			return 1
		}
		obs, _ = rn.Forward(records)
	}

	phases := []*phase{
		validateQuantileOrder(rows),
		validateCenters(rows, o.grid),
		validateRadii(rows, radii),
		validateRenormalization(rows, rn),
		validateMinimalRadius(rows, obs, radii, o.occupancy),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		switch {
		case p.skipped:
			status = "\033[33mSKIP\033[0m"
		case !p.passed():
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d (%s)\n", len(rows), target)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// validateQuantileOrder checks p5 <= q1 <= median <= q3 <= p95 in both
// spaces.
func validateQuantileOrder(rows []domain.FitRow) *phase {
	p := &phase{name: "Quantile ordering"}
	for i, r := range rows {
		canon := []float64{r.P5R, r.Q1R, r.MedianR, r.Q3R, r.P95R}
		phys := []float64{r.Physical.P5, r.Physical.Q1, r.Physical.Median, r.Physical.Q3, r.Physical.P95}
		if !slices.IsSorted(canon) {
			p.errorf("row %d (%g, %g): canonical quantiles out of order %v", i+1, r.MuR, r.GammaR, canon)
		}
		if !slices.IsSorted(phys) {
			p.errorf("row %d (%g, %g): physical quantiles out of order %v", i+1, r.MuR, r.GammaR, phys)
		}
	}
	return p
}

// validateCenters checks every center lies on the grid and appears once.
func validateCenters(rows []domain.FitRow, grid domain.GridSpec) *phase {
	p := &phase{name: "Unique grid centers"}
	axis := grid.Axis()
	onAxis := func(v float64) bool {
		_, found := slices.BinarySearchFunc(axis, v, func(a, t float64) int {
			switch {
			case math.Abs(a-t) <= tolerance:
				return 0
			case a < t:
				return -1
			}
			return 1
		})
		return found
	}

	seen := make(map[[2]float64]int, len(rows))
	for i, r := range rows {
		key := [2]float64{r.MuR, r.GammaR}
		if first, dup := seen[key]; dup {
			p.errorf("row %d: center (%g, %g) already resolved at row %d", i+1, r.MuR, r.GammaR, first)
			continue
		}
		seen[key] = i + 1
		if !onAxis(r.MuR) || !onAxis(r.GammaR) {
			p.errorf("row %d: center (%g, %g) is not a grid point", i+1, r.MuR, r.GammaR)
		}
	}
	return p
}

// validateRadii checks radii come from the sequence and rows appear in
// resolution order.
func validateRadii(rows []domain.FitRow, radii []float64) *phase {
	p := &phase{name: "Radius sequence and resolution order"}
	if radii == nil {
		p.skipped = true
		return p
	}
	last := -1
	for i, r := range rows {
		pos := slices.Index(radii, r.Radius)
		if pos < 0 {
			p.errorf("row %d: radius %g is not in the sequence %v", i+1, r.Radius, radii)
			continue
		}
		if pos < last {
			p.errorf("row %d: radius %g appears after a later pass", i+1, r.Radius)
		}
		last = max(last, pos)
	}
	return p
}

// validateRenormalization checks physical values are the inverse mapping of
// the canonical ones.
func validateRenormalization(rows []domain.FitRow, rn *domain.Renormalization) *phase {
	p := &phase{name: "Renormalization round trip"}
	if rn == nil {
		p.skipped = true
		return p
	}
	for i, r := range rows {
		want := rn.Inverse(r.FitRecord)
		if math.Abs(want.Median-r.Physical.Median) > tolerance*math.Max(1, math.Abs(want.Median)) ||
			math.Abs(want.Mu-r.Physical.Mu) > tolerance*math.Max(1, math.Abs(want.Mu)) ||
			math.Abs(want.Gamma-r.Physical.Gamma) > tolerance*math.Max(1, math.Abs(want.Gamma)) {
			p.errorf("row %d (%g, %g): physical %+v, want %+v", i+1, r.MuR, r.GammaR, r.Physical, want)
		}
	}
	return p
}

// validateMinimalRadius recounts neighbors in the closed ball and checks each
// center reached occupancy at its radius and at no earlier one.
func validateMinimalRadius(rows []domain.FitRow, obs []domain.Observation, radii []float64, occupancy int) *phase {
	p := &phase{name: "Smallest sufficient radius"}
	if obs == nil || radii == nil {
		p.skipped = true
		return p
	}
	count := func(mu, gamma, r float64) int {
		n := 0
		for _, o := range obs {
			dx, dy := o.MuR-mu, o.GammaR-gamma
			if dx*dx+dy*dy <= r*r {
				n++
			}
		}
		return n
	}
	for i, row := range rows {
		for _, r := range radii {
			n := count(row.MuR, row.GammaR, r)
			if r == row.Radius {
				if n < occupancy {
					p.errorf("row %d (%g, %g): %d neighbors within %g, want at least %d", i+1, row.MuR, row.GammaR, n, r, occupancy)
				}
				break
			}
			if n >= occupancy {
				p.errorf("row %d (%g, %g): already had %d neighbors at earlier radius %g", i+1, row.MuR, row.GammaR, n, r)
				break
			}
		}
	}
	return p
}
