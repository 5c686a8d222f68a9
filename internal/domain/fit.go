package domain

import (
	"fmt"
	"time"
)

// Observation is one renormalized record: its position in the (mu_r, gamma_r)
// plane and the renormalized value of the target moment.
type Observation struct {
	MuR    float64
	GammaR float64
	ValueR float64
}

// CenterStatus is the lifecycle state of a grid center during one run.
type CenterStatus uint8

const (
	CenterActive CenterStatus = iota
	CenterResolved
	CenterExhausted
)

func (s CenterStatus) String() string {
	switch s {
	case CenterActive:
		return "active"
	case CenterResolved:
		return "resolved"
	case CenterExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("CenterStatus(%d)", uint8(s))
	}
}

// GridCenter is a query point of the canonical plane. Coordinates never
// change; Status only moves forward from CenterActive.
type GridCenter struct {
	MuR    float64
	GammaR float64
	Status CenterStatus
}

// FitRecord is the estimate produced for one resolved grid center, in the
// canonical space. Neighbors is the number of observations the quantiles
// were computed from.
type FitRecord struct {
	MuR       float64 `json:"mu_r"`
	GammaR    float64 `json:"gamma_r"`
	Radius    float64 `json:"radius"`
	MedianR   float64 `json:"predicted_r"`
	Q1R       float64 `json:"predicted_q1"`
	Q3R       float64 `json:"predicted_q3"`
	P5R       float64 `json:"predicted_5"`
	P95R      float64 `json:"predicted_95"`
	Neighbors int     `json:"neighbors"`
}

// PhysicalFit is the un-renormalized counterpart of a FitRecord.
type PhysicalFit struct {
	Mu     float64 `json:"mu"`
	Gamma  float64 `json:"gamma"`
	Median float64 `json:"median"`
	P5     float64 `json:"p5"`
	Q1     float64 `json:"q1"`
	Q3     float64 `json:"q3"`
	P95    float64 `json:"p95"`
}

// FitRow is one row of the final output table.
type FitRow struct {
	FitRecord
	Physical PhysicalFit `json:"physical"`
	Moment   Moment      `json:"moment"`
	Site     string      `json:"site"`
	FittedAt time.Time   `json:"fitted_at"`

	// Set by the pipeline when known.
	RunID      string `json:"run_id,omitempty"`
	Instrument string `json:"instrument,omitempty"`
}

// Key identifies the row within a run; (mu_r, gamma_r) is unique because a
// grid center resolves at most once.
func (r FitRow) Key() string {
	return fmt.Sprintf("%s|%.6f|%.6f", r.Site, r.MuR, r.GammaR)
}

// AssembleFitRows un-renormalizes the estimator output and tags each row with
// the site and the assembly time.
func AssembleFitRows(records []FitRecord, rn Renormalization, site string) []FitRow {
	now := clock.Now().UTC()
	rows := make([]FitRow, len(records))
	for i, rec := range records {
		rows[i] = FitRow{
			FitRecord: rec,
			Physical:  rn.Inverse(rec),
			Moment:    rn.Target,
			Site:      site,
			FittedAt:  now,
		}
	}
	return rows
}
