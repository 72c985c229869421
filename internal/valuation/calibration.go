package valuation

import (
	"context"
	"time"

	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/alejandrodnm/polyagent/internal/ports"
)

const (
	// defaultDiscountDec is applied to every confidence score until the
	// calibration store has accumulated minCalibrationSamples resolved
	// predictions to trust an empirical figure instead (§4.6).
	minCalibrationSamples = 50
	minDiscount           = "0.30"
)

var (
	defaultDiscountDec = mustDecimal("0.85")
	minDiscountDec      = mustDecimal(minDiscount)
	oneDec              = domain.One
)

// CalibrationStore records reasoning-model confidence against realized
// outcomes and derives a discount factor from the empirical hit rate,
// grounded on the original confidence-calibration loop.
type CalibrationStore struct {
	ledger ports.Ledger
}

// NewCalibrationStore wraps a Ledger with the calibration bookkeeping logic.
func NewCalibrationStore(ledger ports.Ledger) *CalibrationStore {
	return &CalibrationStore{ledger: ledger}
}

// RecordPrediction persists a new open prediction ahead of resolution.
func (c *CalibrationStore) RecordPrediction(ctx context.Context, marketID string, confidence, fairValue, marketPrice domain.Decimal, at time.Time) error {
	return c.ledger.InsertCalibration(ctx, ports.CalibrationRecord{
		MarketID:           marketID,
		ClaudeConfidence:   confidence,
		FairValue:          fairValue,
		MarketPriceAtEntry: marketPrice,
		PredictedAt:        at,
	})
}

// RecordResolution marks the newest open prediction for a market resolved,
// recording the realized binary outcome (1 for Yes, 0 for No).
func (c *CalibrationStore) RecordResolution(ctx context.Context, marketID string, actualOutcome domain.Decimal) error {
	return c.ledger.ResolveCalibration(ctx, marketID, actualOutcome)
}

// ComputeDiscount derives the confidence discount from the last `lookback`
// resolved predictions. Below minCalibrationSamples it falls back to
// defaultDiscountDec rather than trusting a small, noisy sample; the computed
// discount is never allowed to fall below minDiscountDec, so a bad run
// shrinks position sizes instead of halting trading outright.
func (c *CalibrationStore) ComputeDiscount(ctx context.Context, lookback int) (domain.Decimal, error) {
	records, err := c.ledger.RecentResolvedCalibration(ctx, lookback)
	if err != nil {
		return domain.Zero, err
	}
	if len(records) < minCalibrationSamples {
		return defaultDiscountDec, nil
	}

	correct := 0
	confidenceSum := domain.Zero
	for _, r := range records {
		if r.ForecastCorrect != nil && *r.ForecastCorrect {
			correct++
		}
		confidenceSum = confidenceSum.Add(r.ClaudeConfidence)
	}
	accuracy := domain.NewDecimal(float64(correct) / float64(len(records)))
	avgConfidence := confidenceSum.Div(domain.NewDecimal(float64(len(records))))

	discount := defaultDiscountDec
	if avgConfidence.IsPositive() {
		discount = accuracy.Div(avgConfidence)
	}

	if discount.LessThan(minDiscountDec) {
		return minDiscountDec, nil
	}
	if discount.GreaterThan(oneDec) {
		return oneDec, nil
	}
	return discount, nil
}
