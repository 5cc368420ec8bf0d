package core

// DefaultThreshold is the score above which an input is reported as suspicious
const DefaultThreshold = 0.5

// Aggregator turns one or more scores into a single verdict.
// Comparisons are strict: a score equal to the threshold is safe.
type Aggregator struct {
	threshold float64
}

// NewAggregator creates an aggregator; a non-positive threshold selects DefaultThreshold
func NewAggregator(threshold float64) *Aggregator {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Aggregator{threshold: threshold}
}

// Threshold returns the configured threshold
func (a *Aggregator) Threshold() float64 {
	return a.threshold
}

// Exceeds reports whether score is over the threshold
func (a *Aggregator) Exceeds(score float64) bool {
	return score > a.threshold
}

// URLVerdict maps a single URL score to a verdict
func (a *Aggregator) URLVerdict(score float64) Verdict {
	if a.Exceeds(score) {
		return VerdictSuspicious
	}
	return VerdictSafe
}

// EmailDecision is the aggregated outcome for an email
type EmailDecision struct {
	Verdict             Verdict
	WorstScore          float64
	SuspiciousByURLs    bool
	SuspiciousByPhrases bool
}

// EmailVerdict aggregates per-URL scores and phrase hits.
// Phrase hits can flip the verdict but never change the reported score.
func (a *Aggregator) EmailVerdict(urlScores []float64, phraseHits int) EmailDecision {
	worst := 0.0
	for _, s := range urlScores {
		if s > worst {
			worst = s
		}
	}

	d := EmailDecision{
		WorstScore:          worst,
		SuspiciousByURLs:    a.Exceeds(worst),
		SuspiciousByPhrases: phraseHits > 0,
	}
	if d.SuspiciousByURLs || d.SuspiciousByPhrases {
		d.Verdict = VerdictSuspicious
	} else {
		d.Verdict = VerdictSafe
	}
	return d
}
