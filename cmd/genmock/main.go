// Command genmock writes a synthetic fit fixture set: a moment table, a
// renormalization table, a radius file and a site catalog, plus the fit table
// and JSON rows obtained by running the estimator over them. Generation is
// seeded and the assembly clock is frozen, so reruns produce identical files.
//
// Usage:
//
//	go run ./cmd/genmock -out-dir internal/pipeline/testdata/generated -n 500
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/dsd-laf/internal/adapter/tabular"
	"github.com/couchcryptid/dsd-laf/internal/domain"
	"github.com/couchcryptid/dsd-laf/internal/laf"
	"github.com/couchcryptid/dsd-laf/internal/spatial"
	"github.com/jonboulle/clockwork"
)

var fittedAt = time.Date(2024, time.May, 1, 6, 0, 0, 0, time.UTC)

const renormType = "flux_std"

var renormEntries = []domain.RenormEntry{
	{RenormType: renormType, Moment: domain.MomentMu, XMin: 0, XMax: 10},
	{RenormType: renormType, Moment: domain.MomentSigma, XMin: 0, XMax: 2},
	{RenormType: renormType, Moment: domain.MomentGamma, XMin: -1, XMax: 3},
	{RenormType: renormType, Moment: domain.MomentKappa, XMin: 1, XMax: 21},
	{RenormType: renormType, Moment: domain.MomentEta, XMin: -5, XMax: 15},
}

var sites = []domain.Site{
	{ID: "MAN", Instrument: "RD80", AreaInstrument: 0.005, TimeResolution: 60, CellLimits: "standard"},
	{ID: "PAY", Instrument: "2DVD", AreaInstrument: 0.01, TimeResolution: 60, CellLimits: "2dvd_classes.txt"},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out-dir", "", "directory for the generated fixtures")
	n := flag.Int("n", 500, "number of moment records")
	seed := flag.Uint64("seed", 1, "random seed")
	moment := flag.String("moment", "sigma", "target moment of the fit fixture")
	occupancy := flag.Int("occupancy", 10, "occupancy of the fit fixture")
	radii := flag.String("radii", "0.02,0.05,0.1", "comma-separated radius sequence")
	flag.Parse()

	if *outDir == "" || *n <= 0 {
		flag.Usage()
		return fmt.Errorf("missing required flag -out-dir or non-positive -n")
	}
	target, err := domain.ParseTargetMoment(*moment)
	if err != nil {
		return err
	}
	radiusSeq, err := tabular.ReadRadii(strings.NewReader(*radii))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	// Freeze the assembly clock for reproducible fitted_at stamps.
	domain.SetClock(clockwork.NewFakeClockAt(fittedAt))
	defer domain.SetClock(nil)

	records := generate(rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15)), *n)

	files := []struct {
		name  string
		write func(*os.File) error
	}{
		{"moments.txt", func(f *os.File) error { return writeMoments(f, records) }},
		{"renorm.csv", writeRenorm},
		{"radius.txt", func(f *os.File) error { _, err := fmt.Fprintln(f, *radii); return err }},
		{"catalog.csv", writeCatalog},
	}
	for _, fl := range files {
		if err := writeFile(filepath.Join(*outDir, fl.name), fl.write); err != nil {
			return fmt.Errorf("writing %s: %w", fl.name, err)
		}
	}
	log.Printf("wrote %d moment records to %s", len(records), *outDir)

	rows, exhausted, err := fit(records, target, radiusSeq, *occupancy)
	if err != nil {
		return fmt.Errorf("fitting fixture: %w", err)
	}
	if err := writeFile(filepath.Join(*outDir, "fits.txt"), func(f *os.File) error {
		return tabular.WriteFits(f, target, rows)
	}); err != nil {
		return fmt.Errorf("writing fit table: %w", err)
	}
	if err := writeJSON(filepath.Join(*outDir, "fits.json"), rows); err != nil {
		return fmt.Errorf("writing fit rows: %w", err)
	}

	printStats(rows, exhausted, radiusSeq)
	return nil
}

// generate draws records whose moments are correlated the way measured
// spectra are: spread grows with the mean diameter and kurtosis with skewness.
func generate(rng *rand.Rand, n int) []domain.MomentRecord {
	out := make([]domain.MomentRecord, n)
	for i := range out {
		mu := 3 + 4*rng.Float64()
		gamma := 1 + 0.5*rng.NormFloat64()
		out[i] = domain.MomentRecord{
			Mu:    round4(mu),
			Sigma: round4(0.4 + 0.1*mu + 0.05*rng.NormFloat64()),
			Gamma: round4(gamma),
			Kappa: round4(5 + 2*gamma + 0.5*rng.NormFloat64()),
			Eta:   round4(2*gamma + 0.3*rng.NormFloat64()),
		}
	}
	return out
}

func round4(x float64) float64 { return math.Round(x*1e4) / 1e4 }

// fit runs the estimator over the generated records for the first site.
func fit(records []domain.MomentRecord, target domain.Moment, radii []float64, occupancy int) ([]domain.FitRow, int, error) {
	rn, err := domain.ResolveRenormalization(domain.NewRenormTable(renormEntries), renormType, target)
	if err != nil {
		return nil, 0, err
	}
	obs, _ := rn.Forward(records)

	idx, err := spatial.Build(spatial.KindKDTree, laf.Points(obs))
	if err != nil {
		return nil, 0, err
	}
	est, err := laf.NewEstimator(obs, idx)
	if err != nil {
		return nil, 0, err
	}
	grid, err := laf.NewGrid(domain.DefaultGridSpec)
	if err != nil {
		return nil, 0, err
	}
	res, err := est.Fit(context.Background(), grid, laf.Params{Radii: radii, Occupancy: occupancy})
	if err != nil {
		return nil, 0, err
	}
	rows := domain.AssembleFitRows(res.Records, rn, sites[0].ID)
	for i := range rows {
		rows[i].Instrument = sites[0].Instrument
	}
	return rows, res.Exhausted, nil
}

func writeMoments(f *os.File, records []domain.MomentRecord) error {
	w := csv.NewWriter(f)
	w.Comma = ' '
	header := make([]string, len(domain.Moments))
	for i, m := range domain.Moments {
		header[i] = string(m)
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		rec := make([]string, len(header))
		for i, m := range domain.Moments {
			rec[i] = strconv.FormatFloat(r.Value(m), 'f', 4, 64)
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeRenorm(f *os.File) error {
	w := csv.NewWriter(f)
	if err := w.Write([]string{"renorm_type", "statistical_moment", "xmin", "xmax"}); err != nil {
		return err
	}
	for _, e := range renormEntries {
		rec := []string{e.RenormType, string(e.Moment), formatFloat(e.XMin), formatFloat(e.XMax)}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeCatalog(f *os.File) error {
	w := csv.NewWriter(f)
	if err := w.Write([]string{"ID2", "INSTRUMENT", "AREA_INSTRUMENT", "TIME_RESOLUTION", "CELLLIMITS"}); err != nil {
		return err
	}
	for _, s := range sites {
		rec := []string{s.ID, s.Instrument, formatFloat(s.AreaInstrument), formatFloat(s.TimeResolution), s.CellLimits}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(rows []domain.FitRow, exhausted int, radii []float64) {
	byRadius := map[float64]int{}
	for _, r := range rows {
		byRadius[r.Radius]++
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Resolved: %d\n", len(rows))
	fmt.Printf("Exhausted: %d\n", exhausted)
	sorted := slices.Clone(radii)
	slices.Sort(sorted)
	for _, r := range sorted {
		fmt.Printf("  radius %g: %d\n", r, byRadius[r])
	}
	if len(rows) > 0 {
		fmt.Printf("First row: mu_r=%g gamma_r=%g radius=%g median=%g\n",
			rows[0].MuR, rows[0].GammaR, rows[0].Radius, rows[0].Physical.Median)
	}
}
