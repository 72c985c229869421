package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/alejandrodnm/polyagent/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := NewLedger(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func mustDec(t *testing.T, s string) domain.Decimal {
	t.Helper()
	d, err := domain.ParseDecimal(s)
	require.NoError(t, err)
	return d
}

func TestLedger_CycleRoundTrip(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	c := domain.Cycle{
		CycleNumber:        1,
		ScannedCount:       40,
		OpportunityCount:   3,
		TradeCount:         1,
		ApiCost:            mustDec(t, "0.12"),
		Bankroll:           mustDec(t, "100.50"),
		UnrealizedExposure: mustDec(t, "6.00"),
		State:              domain.StateAlive,
		Duration:           1500 * time.Millisecond,
		StartedAt:          time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, l.AppendCycle(ctx, c))

	got, err := l.LatestCycle(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, c.CycleNumber, got.CycleNumber)
	assert.True(t, got.ApiCost.Equal(c.ApiCost))
	assert.True(t, got.Bankroll.Equal(c.Bankroll))
	assert.Equal(t, domain.StateAlive, got.State)
}

func TestLedger_TradeLifecycle(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	tr := domain.Trade{
		Cycle:         1,
		MarketID:      "0xabc",
		Question:      "Will X happen?",
		Direction:     domain.SideYes,
		EntryPrice:    mustDec(t, "0.60"),
		Size:          mustDec(t, "10"),
		EdgeAtEntry:   mustDec(t, "0.15"),
		FairValue:     mustDec(t, "0.75"),
		Confidence:    mustDec(t, "0.85"),
		KellyRaw:      mustDec(t, "0.30"),
		KellyAdjusted: mustDec(t, "0.10"),
		Status:        domain.TradeOpen,
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
	}

	id, err := l.AppendTrade(ctx, tr)
	require.NoError(t, err)
	require.NotZero(t, id)

	open, err := l.OpenTrades(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "0xabc", open[0].MarketID)
	assert.Equal(t, domain.TradeOpen, open[0].Status)

	resolvedAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, l.UpdateTradeResolution(ctx, id, domain.TradeResolvedWin, mustDec(t, "4.00"), resolvedAt))

	open, err = l.OpenTrades(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)

	resolved, err := l.ResolvedTrades(ctx, 10)
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, domain.TradeResolvedWin, resolved[0].Status)
	require.NotNil(t, resolved[0].PnL)
	assert.True(t, resolved[0].PnL.Equal(mustDec(t, "4.00")))
}

func TestLedger_ApiCostAccumulation(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.InsertApiCost(ctx, domain.ApiCost{
			Provider:     "reasoning-model",
			Endpoint:     "complete",
			InputTokens:  100,
			OutputTokens: 50,
			CostUSD:      mustDec(t, "0.01"),
			Cycle:        1,
			IncurredAt:   time.Now().UTC(),
		}))
	}

	total, err := l.TotalApiCost(ctx)
	require.NoError(t, err)
	assert.True(t, total.Equal(mustDec(t, "0.03")))

	perCycle, err := l.ApiCostForCycle(ctx, 1)
	require.NoError(t, err)
	assert.True(t, perCycle.Equal(mustDec(t, "0.03")))
}

func TestLedger_ValuationCache_TTL(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	v := domain.ValuationResult{
		FairProbability: mustDec(t, "0.7"),
		Confidence:      mustDec(t, "0.8"),
		Reasoning:       "because",
		TimeSensitivity: domain.TimeSensitivityDays,
	}
	require.NoError(t, l.SetCachedValuation(ctx, "0xabc", v))

	got, ok, err := l.GetCachedValuation(ctx, "0xabc", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.FairProbability.Equal(v.FairProbability))

	_, ok, err = l.GetCachedValuation(ctx, "0xabc", -time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLedger_CalibrationResolution(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.InsertCalibration(ctx, ports.CalibrationRecord{
		MarketID:           "0xabc",
		ClaudeConfidence:   mustDec(t, "0.8"),
		FairValue:          mustDec(t, "0.7"),
		MarketPriceAtEntry: mustDec(t, "0.6"),
		PredictedAt:        time.Now().UTC(),
	}))

	require.NoError(t, l.ResolveCalibration(ctx, "0xabc", mustDec(t, "1")))

	records, err := l.RecentResolvedCalibration(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Resolved)
	require.NotNil(t, records[0].ForecastCorrect)
	assert.True(t, *records[0].ForecastCorrect)
}
