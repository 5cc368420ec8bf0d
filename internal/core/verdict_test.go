package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregator_URLVerdictBoundary(t *testing.T) {
	a := NewAggregator(0.5)

	tests := []struct {
		name  string
		score float64
		want  Verdict
	}{
		{"zero", 0.0, VerdictSafe},
		{"below threshold", 0.4999, VerdictSafe},
		{"exactly threshold", 0.5, VerdictSafe},
		{"just above threshold", 0.5000001, VerdictSuspicious},
		{"certain", 1.0, VerdictSuspicious},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.URLVerdict(tt.score))
		})
	}
}

func TestAggregator_DefaultThreshold(t *testing.T) {
	assert.Equal(t, DefaultThreshold, NewAggregator(0).Threshold())
	assert.Equal(t, DefaultThreshold, NewAggregator(1.5).Threshold())
	assert.Equal(t, 0.7, NewAggregator(0.7).Threshold())
}

func TestAggregator_EmailVerdict(t *testing.T) {
	a := NewAggregator(0.5)

	tests := []struct {
		name        string
		scores      []float64
		phraseHits  int
		wantVerdict Verdict
		wantScore   float64
		byURLs      bool
		byPhrases   bool
	}{
		{"no urls no phrases", nil, 0, VerdictSafe, 0.0, false, false},
		{"benign urls", []float64{0.1, 0.3}, 0, VerdictSafe, 0.3, false, false},
		{"one bad url", []float64{0.1, 0.9, 0.2}, 0, VerdictSuspicious, 0.9, true, false},
		{"phrases only keep score", nil, 2, VerdictSuspicious, 0.0, false, true},
		{"phrases with benign url", []float64{0.2}, 1, VerdictSuspicious, 0.2, false, true},
		{"tied maxima", []float64{0.8, 0.8}, 0, VerdictSuspicious, 0.8, true, false},
		{"threshold exactly", []float64{0.5}, 0, VerdictSafe, 0.5, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := a.EmailVerdict(tt.scores, tt.phraseHits)
			assert.Equal(t, tt.wantVerdict, d.Verdict)
			assert.Equal(t, tt.wantScore, d.WorstScore)
			assert.Equal(t, tt.byURLs, d.SuspiciousByURLs)
			assert.Equal(t, tt.byPhrases, d.SuspiciousByPhrases)
		})
	}
}
