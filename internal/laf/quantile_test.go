package laf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   Summary
	}{
		{
			name:   "single value",
			values: []float64{0.7},
			want:   Summary{Median: 0.7, Q1: 0.7, Q3: 0.7, P5: 0.7, P95: 0.7},
		},
		{
			name:   "odd count unsorted",
			values: []float64{5, 1, 4, 2, 3},
			want:   Summary{Median: 3, Q1: 2, Q3: 4, P5: 1.2, P95: 4.8},
		},
		{
			name:   "even count",
			values: []float64{4, 1, 3, 2},
			want:   Summary{Median: 2.5, Q1: 1.75, Q3: 3.25, P5: 1.15, P95: 3.85},
		},
		{
			name:   "rounded to six digits",
			values: []float64{0, 1.0 / 3},
			want:   Summary{Median: 0.166667, Q1: 0.083333, Q3: 0.25, P5: 0.016667, P95: 0.316667},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.values)
			assert.InDelta(t, tt.want.Median, got.Median, 1e-12)
			assert.InDelta(t, tt.want.Q1, got.Q1, 1e-12)
			assert.InDelta(t, tt.want.Q3, got.Q3, 1e-12)
			assert.InDelta(t, tt.want.P5, got.P5, 1e-12)
			assert.InDelta(t, tt.want.P95, got.P95, 1e-12)
		})
	}
}

func TestSummarize_DoesNotReorderInput(t *testing.T) {
	values := []float64{3, 1, 2}
	Summarize(values)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestSummarize_EmptyPanics(t *testing.T) {
	assert.Panics(t, func() { Summarize(nil) })
}
