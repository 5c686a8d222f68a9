package tabular

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/couchcryptid/dsd-laf/internal/domain"
)

// FitHeader returns the output table columns for moment m.
func FitHeader(m domain.Moment) []string {
	p := string(m)
	return []string{
		"mu_r", "gamma_r", "predicted_r", "predicted_5%", "predicted_q1", "predicted_q3", "predicted_95%", "radius",
		"mu", "gamma", p + "_median", p + "_5%", p + "_q1", p + "_q3", p + "_95%", "site",
	}
}

// WriteFits writes rows as a space-separated table with a header, in the
// order given.
func WriteFits(w io.Writer, m domain.Moment, rows []domain.FitRow) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(FitHeader(m), " ") + "\n"); err != nil {
		return fmt.Errorf("write fit header: %w", err)
	}
	fields := make([]string, 0, 16)
	for _, r := range rows {
		fields = append(fields[:0],
			formatFloat(r.MuR), formatFloat(r.GammaR),
			formatFloat(r.MedianR), formatFloat(r.P5R), formatFloat(r.Q1R), formatFloat(r.Q3R), formatFloat(r.P95R),
			formatFloat(r.Radius),
			formatFloat(r.Physical.Mu), formatFloat(r.Physical.Gamma),
			formatFloat(r.Physical.Median), formatFloat(r.Physical.P5), formatFloat(r.Physical.Q1),
			formatFloat(r.Physical.Q3), formatFloat(r.Physical.P95),
			r.Site,
		)
		if _, err := bw.WriteString(strings.Join(fields, " ") + "\n"); err != nil {
			return fmt.Errorf("write fit row: %w", err)
		}
	}
	return bw.Flush()
}

// ReadFits parses a fit table written by WriteFits and returns the fitted
// moment named by its header. Neighbor counts and fit times are not stored
// in the table and come back zero.
func ReadFits(r io.Reader) (domain.Moment, []domain.FitRow, error) {
	t, err := ReadTable(r)
	if err != nil {
		return "", nil, err
	}

	var m domain.Moment
	for _, name := range t.Header {
		if p, ok := strings.CutSuffix(name, "_median"); ok {
			if m, err = domain.ParseTargetMoment(p); err != nil {
				return "", nil, fmt.Errorf("fit table: %w", err)
			}
			break
		}
	}
	if m == "" {
		return "", nil, errors.New("fit table: no <moment>_median column")
	}
	header := FitHeader(m)
	if err := t.Require(header[:len(header)-1]...); err != nil {
		return "", nil, fmt.Errorf("fit table: %w", err)
	}

	rows := make([]domain.FitRow, 0, len(t.Rows))
	for i, raw := range t.Rows {
		v := make([]float64, len(header)-1)
		for j, col := range header[:len(header)-1] {
			if v[j], err = t.Float(raw, col); err != nil {
				return "", nil, fmt.Errorf("fit table row %d: %w", i+2, err)
			}
		}
		rows = append(rows, domain.FitRow{
			FitRecord: domain.FitRecord{
				MuR: v[0], GammaR: v[1],
				MedianR: v[2], P5R: v[3], Q1R: v[4], Q3R: v[5], P95R: v[6],
				Radius: v[7],
			},
			Physical: domain.PhysicalFit{
				Mu: v[8], Gamma: v[9],
				Median: v[10], P5: v[11], Q1: v[12], Q3: v[13], P95: v[14],
			},
			Moment: m,
			Site:   t.String(raw, "site"),
		})
	}
	return m, rows, nil
}

// ReadFitsFile opens path and parses it with ReadFits.
func ReadFitsFile(path string) (domain.Moment, []domain.FitRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()
	return ReadFits(f)
}

// FileSink writes the fit table of a run to a file, or to stdout when the
// path is empty or "-".
type FileSink struct {
	path   string
	stdout io.Writer
}

// NewFileSink creates a sink for path.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path, stdout: os.Stdout}
}

// Name identifies the sink in metrics.
func (s *FileSink) Name() string { return "table" }

// Publish writes all rows, replacing any existing file.
func (s *FileSink) Publish(_ context.Context, m domain.Moment, rows []domain.FitRow) error {
	if s.path == "" || s.path == "-" {
		return WriteFits(s.stdout, m, rows)
	}
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("create fit table: %w", err)
	}
	if err := WriteFits(f, m, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Close is a no-op.
func (s *FileSink) Close() error { return nil }
