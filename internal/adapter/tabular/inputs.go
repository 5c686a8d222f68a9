package tabular

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/couchcryptid/dsd-laf/internal/domain"
)

// ReadMoments parses an upstream moment table. The mu and gamma columns and
// every column in required must be present; other moment columns are
// optional and read as NaN when absent.
func ReadMoments(r io.Reader, required ...domain.Moment) ([]domain.MomentRecord, error) {
	t, err := ReadTable(r)
	if err != nil {
		return nil, err
	}
	names := []string{string(domain.MomentMu), string(domain.MomentGamma)}
	for _, m := range required {
		names = append(names, string(m))
	}
	if err := t.Require(names...); err != nil {
		return nil, fmt.Errorf("moment table: %w", err)
	}

	records := make([]domain.MomentRecord, 0, len(t.Rows))
	for i, row := range t.Rows {
		var rec domain.MomentRecord
		fields := []struct {
			dst *float64
			m   domain.Moment
		}{
			{&rec.Mu, domain.MomentMu},
			{&rec.Sigma, domain.MomentSigma},
			{&rec.Gamma, domain.MomentGamma},
			{&rec.Kappa, domain.MomentKappa},
			{&rec.Eta, domain.MomentEta},
		}
		for _, f := range fields {
			v, err := t.Float(row, string(f.m))
			if err != nil {
				return nil, fmt.Errorf("moment table row %d: %w", i+2, err)
			}
			*f.dst = v
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadRenormTable parses the renormalization table, columns renorm_type,
// statistical_moment, xmin and xmax. Rows for quantities other than the five
// moments (Dm, omega, ...) are ignored, but a name that differs from a moment
// only in case or spacing is rejected, as is a moment row with an empty
// bound.
func ReadRenormTable(r io.Reader) (*domain.RenormTable, error) {
	t, err := ReadTable(r)
	if err != nil {
		return nil, err
	}
	if err := t.Require("renorm_type", "statistical_moment", "xmin", "xmax"); err != nil {
		return nil, fmt.Errorf("renorm table: %w", err)
	}

	entries := make([]domain.RenormEntry, 0, len(t.Rows))
	for i, row := range t.Rows {
		name := t.String(row, "statistical_moment")
		m, err := domain.ParseMoment(name)
		if err != nil {
			if near, ok := momentVariant(name); ok {
				return nil, domain.ConfigErrorf("renorm_table", "row %d: statistical_moment %q, did you mean %q", i+2, name, near)
			}
			continue
		}
		var bounds [2]float64
		for j, col := range []string{"xmin", "xmax"} {
			if t.String(row, col) == "" {
				return nil, domain.ConfigErrorf("renorm_table", "row %d: empty %s for (%s, %s)", i+2, col, t.String(row, "renorm_type"), m)
			}
			if bounds[j], err = t.Float(row, col); err != nil {
				return nil, fmt.Errorf("renorm table row %d: %w", i+2, err)
			}
		}
		xmin, xmax := bounds[0], bounds[1]
		entries = append(entries, domain.RenormEntry{
			RenormType: t.String(row, "renorm_type"),
			Moment:     m,
			XMin:       xmin,
			XMax:       xmax,
		})
	}
	return domain.NewRenormTable(entries), nil
}

// ReadCatalog parses the site catalog keyed by the ID2 column.
func ReadCatalog(r io.Reader) (*domain.Catalog, error) {
	t, err := ReadTable(r)
	if err != nil {
		return nil, err
	}
	if err := t.Require("ID2"); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	sites := make([]domain.Site, 0, len(t.Rows))
	for i, row := range t.Rows {
		area, err := t.Float(row, "AREA_INSTRUMENT")
		if err != nil {
			return nil, fmt.Errorf("catalog row %d: %w", i+2, err)
		}
		tr, err := t.Float(row, "TIME_RESOLUTION")
		if err != nil {
			return nil, fmt.Errorf("catalog row %d: %w", i+2, err)
		}
		sites = append(sites, domain.Site{
			ID:             t.String(row, "ID2"),
			Instrument:     t.String(row, "INSTRUMENT"),
			AreaInstrument: area,
			TimeResolution: tr,
			CellLimits:     t.String(row, "CELLLIMITS"),
		})
	}
	return domain.NewCatalog(sites), nil
}

// ReadRadii parses a radius file. Radii are comma-separated on one line; when
// the file holds several non-empty lines the last one wins. Every radius must
// be a positive number. Order is kept as written.
func ReadRadii(r io.Reader) ([]float64, error) {
	var last string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			last = line
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read radius file: %w", err)
	}
	if last == "" {
		return nil, nil
	}

	parts := strings.Split(last, ",")
	radii := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, domain.ConfigErrorf("radius", "%q is not a number", p)
		}
		if !(v > 0) {
			return nil, domain.ConfigErrorf("radius", "must be positive, got %s", p)
		}
		radii = append(radii, v)
	}
	return radii, nil
}

// momentVariant reports the moment that name spells in another case.
func momentVariant(name string) (domain.Moment, bool) {
	for _, m := range domain.Moments {
		if strings.EqualFold(strings.TrimSpace(name), string(m)) {
			return m, true
		}
	}
	return "", false
}
