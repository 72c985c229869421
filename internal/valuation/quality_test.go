package valuation

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/stretchr/testify/assert"
)

func point(t *testing.T, source, confidence string, age time.Duration, now time.Time) domain.DataPoint {
	return domain.DataPoint{
		Source:     source,
		Timestamp:  now.Add(-age),
		Payload:    json.RawMessage(`{}`),
		Confidence: decT(t, confidence),
	}
}

func TestComputeDataQuality_HighWhenFreshAndConfident(t *testing.T) {
	now := time.Now()
	in := QualityInputs{
		Points: []domain.DataPoint{
			point(t, "crypto", "0.9", time.Minute, now),
			point(t, "news", "0.9", time.Minute, now),
			point(t, "sports", "0.8", time.Minute, now),
			point(t, "weather", "0.8", time.Minute, now),
			point(t, "onchain", "0.9", time.Minute, now),
		},
		Now: now,
	}
	quality, score := ComputeDataQuality(in)
	assert.Equal(t, domain.DataQualityHigh, quality)
	assert.True(t, score.GreaterThanOrEqual(decT(t, "0.7")))
}

func TestComputeDataQuality_LowWhenNoSourcesReturned(t *testing.T) {
	now := time.Now()
	in := QualityInputs{Now: now}
	quality, _ := ComputeDataQuality(in)
	assert.Equal(t, domain.DataQualityLow, quality)
}

func TestComputeDataQuality_NotHighWhenStale(t *testing.T) {
	now := time.Now()
	in := QualityInputs{
		Points: []domain.DataPoint{
			point(t, "crypto", "0.6", 48*time.Hour, now),
			point(t, "news", "0.6", 48*time.Hour, now),
		},
		Now: now,
	}
	quality, _ := ComputeDataQuality(in)
	assert.NotEqual(t, domain.DataQualityHigh, quality)
}
