package risk

import (
	"testing"

	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(t *testing.T, s string) domain.Decimal {
	t.Helper()
	d, err := domain.ParseDecimal(s)
	require.NoError(t, err)
	return d
}

func defaultParams(t *testing.T) KellyParams {
	return KellyParams{
		KellyFraction:  dec(t, "0.5"),
		MaxPositionPct: dec(t, "0.06"),
		MinPositionUSD: dec(t, "1"),
	}
}

func TestCalculateKelly_HappyPath(t *testing.T) {
	res := CalculateKelly(dec(t, "0.62"), dec(t, "0.75"), dec(t, "100"), dec(t, "0.85"), domain.StateAlive, defaultParams(t))
	require.False(t, res.NoTrade)
	assert.True(t, res.KRaw.IsPositive())
	assert.True(t, res.Capped, "6%% cap of 100 should bind given this edge")
	assert.True(t, res.PositionUSD.Equal(dec(t, "6")))
}

func TestCalculateKelly_PriceGuard_TooLow(t *testing.T) {
	res := CalculateKelly(dec(t, "0.01"), dec(t, "0.75"), dec(t, "100"), dec(t, "0.85"), domain.StateAlive, defaultParams(t))
	assert.True(t, res.NoTrade)
}

func TestCalculateKelly_PriceGuard_TooHigh(t *testing.T) {
	res := CalculateKelly(dec(t, "0.99"), dec(t, "0.75"), dec(t, "100"), dec(t, "0.85"), domain.StateAlive, defaultParams(t))
	assert.True(t, res.NoTrade)
}

func TestCalculateKelly_NoEdge(t *testing.T) {
	res := CalculateKelly(dec(t, "0.60"), dec(t, "0.60"), dec(t, "100"), dec(t, "0.85"), domain.StateAlive, defaultParams(t))
	assert.True(t, res.NoTrade)
}

func TestCalculateKelly_DeadStateZerosPosition(t *testing.T) {
	res := CalculateKelly(dec(t, "0.62"), dec(t, "0.75"), dec(t, "100"), dec(t, "0.85"), domain.StateDead, defaultParams(t))
	assert.True(t, res.NoTrade)
}

func TestCalculateKelly_LowFuelShrinksSize(t *testing.T) {
	alive := CalculateKelly(dec(t, "0.40"), dec(t, "0.55"), dec(t, "100"), dec(t, "0.85"), domain.StateAlive, defaultParams(t))
	lowFuel := CalculateKelly(dec(t, "0.40"), dec(t, "0.55"), dec(t, "100"), dec(t, "0.85"), domain.StateLowFuel, defaultParams(t))
	require.False(t, alive.NoTrade)
	if !lowFuel.NoTrade {
		assert.True(t, lowFuel.KAdjusted.LessThan(alive.KAdjusted))
	}
}

func TestCalculateKelly_Deterministic(t *testing.T) {
	p := defaultParams(t)
	a := CalculateKelly(dec(t, "0.62"), dec(t, "0.75"), dec(t, "100"), dec(t, "0.85"), domain.StateAlive, p)
	b := CalculateKelly(dec(t, "0.62"), dec(t, "0.75"), dec(t, "100"), dec(t, "0.85"), domain.StateAlive, p)
	assert.True(t, a.PositionUSD.Equal(b.PositionUSD))
	assert.True(t, a.KRaw.Equal(b.KRaw))
}

func TestEdgeJustifiesCost(t *testing.T) {
	assert.True(t, EdgeJustifiesCost(dec(t, "5"), dec(t, "0.10"), dec(t, "0.05")))
	assert.False(t, EdgeJustifiesCost(dec(t, "1"), dec(t, "0.01"), dec(t, "0.05")))
}

func TestLiquidityAdjustedSize(t *testing.T) {
	assert.True(t, LiquidityAdjustedSize(dec(t, "6"), dec(t, "310")).Equal(dec(t, "6")))
	assert.True(t, LiquidityAdjustedSize(dec(t, "100"), dec(t, "310")).Equal(dec(t, "62")))
	assert.True(t, LiquidityAdjustedSize(dec(t, "100"), domain.Zero).Equal(domain.Zero))
}

func TestEvaluateExit_YesLoss(t *testing.T) {
	sig := EvaluateExit(domain.SideYes, dec(t, "0.60"), dec(t, "0.40"), dec(t, "0.20"))
	assert.True(t, sig.ShouldExit)
}

func TestEvaluateExit_YesWithinTolerance(t *testing.T) {
	sig := EvaluateExit(domain.SideYes, dec(t, "0.60"), dec(t, "0.55"), dec(t, "0.20"))
	assert.False(t, sig.ShouldExit)
}

func TestEvaluateExit_NoSide(t *testing.T) {
	// Entry 0.40 on No means effective entry 0.60; midpoint rising to 0.70
	// means the No effective price falls to 0.30 -> loss.
	sig := EvaluateExit(domain.SideNo, dec(t, "0.40"), dec(t, "0.70"), dec(t, "0.20"))
	assert.True(t, sig.ShouldExit)
}
