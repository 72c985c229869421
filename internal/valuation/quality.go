// Package valuation implements fair-value estimation via an external
// reasoning model, confidence calibration from realized outcomes, data
// quality scoring, and edge evaluation against the live order book.
package valuation

import (
	"time"

	"github.com/alejandrodnm/polyagent/internal/domain"
)

var (
	coverageWeight  = mustDecimal("0.4")
	freshnessWeight = mustDecimal("0.3")
	confWeight      = mustDecimal("0.3")

	highThreshold   = mustDecimal("0.7")
	mediumThreshold = mustDecimal("0.4")
)

func mustDecimal(s string) domain.Decimal {
	d, err := domain.ParseDecimal(s)
	if err != nil {
		panic("valuation: bad decimal literal " + s)
	}
	return d
}

// QualityInputs carries every DataPoint gathered for a candidate (§4.3.1).
// Coverage is derived from the count of distinct sources among them (S),
// freshness from the fraction still under 24h old (R), confidence from the
// mean of each point's self-reported confidence (Ā).
type QualityInputs struct {
	Points []domain.DataPoint
	Now    time.Time
}

var fiveSources = domain.NewDecimal(5)

// ComputeDataQuality scores a candidate's supporting evidence as
// score = 0.4*min(S,5)/5 + 0.3*R + 0.3*Ā (§4.3.1) and buckets it into
// Low/Medium/High.
func ComputeDataQuality(in QualityInputs) (domain.DataQuality, domain.Decimal) {
	distinctSources := map[string]struct{}{}
	for _, p := range in.Points {
		distinctSources[p.Source] = struct{}{}
	}
	s := len(distinctSources)
	if s > 5 {
		s = 5
	}
	coverage := domain.NewDecimal(float64(s)).Div(fiveSources)

	freshness := domain.Zero
	if len(in.Points) > 0 {
		fresh := 0
		for _, p := range in.Points {
			if withinFreshness(p, in.Now) {
				fresh++
			}
		}
		freshness = domain.NewDecimal(float64(fresh) / float64(len(in.Points)))
	}

	confidence := domain.Zero
	if len(in.Points) > 0 {
		sum := domain.Zero
		for _, p := range in.Points {
			sum = sum.Add(p.Confidence)
		}
		confidence = sum.Div(domain.NewDecimal(float64(len(in.Points))))
	}

	score := coverage.Mul(coverageWeight).
		Add(freshness.Mul(freshnessWeight)).
		Add(confidence.Mul(confWeight))

	switch {
	case score.GreaterThanOrEqual(highThreshold):
		return domain.DataQualityHigh, score
	case score.GreaterThanOrEqual(mediumThreshold):
		return domain.DataQualityMedium, score
	default:
		return domain.DataQualityLow, score
	}
}

// withinFreshness reports whether a point's age is still inside a fixed
// 24h window. The sources' own FreshnessWindow values are not consulted
// here or by the DataAggregator, so this is the only staleness check
// applied to a candidate's evidence set.
func withinFreshness(p domain.DataPoint, now time.Time) bool {
	const defaultWindow = 24 * time.Hour
	return now.Sub(p.Timestamp) <= defaultWindow
}
