// Package risk implements fractional-Kelly position sizing, portfolio
// concentration limits, liquidity adjustment, and stop-loss exit evaluation.
// Every function here is pure — no suspension points, matching the teacher's
// internal/domain scoring functions (§5 "no computational function suspends").
package risk

import "github.com/alejandrodnm/polyagent/internal/domain"

// thresholds bounding the price guard (§4.4).
var (
	minMarketPrice = mustDecimal("0.02")
	maxMarketPrice = mustDecimal("0.98")
)

func mustDecimal(s string) domain.Decimal {
	d, err := domain.ParseDecimal(s)
	if err != nil {
		panic("risk: bad decimal literal " + s)
	}
	return d
}

// KellyResult is the sizing outcome for one candidate.
type KellyResult struct {
	KRaw        domain.Decimal
	KAdjusted   domain.Decimal
	PositionUSD domain.Decimal
	Capped      bool
	NoTrade     bool
}

func noTrade() KellyResult {
	return KellyResult{NoTrade: true}
}

// KellyParams bundles the config-driven knobs for CalculateKelly.
type KellyParams struct {
	KellyFraction  domain.Decimal
	MaxPositionPct domain.Decimal
	MinPositionUSD domain.Decimal
}

// CalculateKelly sizes one candidate using fractional Kelly with a
// self-preservation state multiplier (§4.4). Deterministic: identical inputs
// always produce an identical result.
func CalculateKelly(marketPrice, fairProb, bankroll, confidence domain.Decimal, state domain.AgentState, p KellyParams) KellyResult {
	if marketPrice.LessThan(minMarketPrice) || marketPrice.GreaterThan(maxMarketPrice) {
		return noTrade()
	}
	if fairProb.LessThanOrEqual(domain.Zero) || fairProb.GreaterThanOrEqual(domain.One) {
		return noTrade()
	}
	if bankroll.LessThanOrEqual(domain.Zero) {
		return noTrade()
	}

	b := domain.One.Div(marketPrice).Sub(domain.One)
	if !b.IsPositive() {
		return noTrade()
	}

	q := domain.One.Sub(fairProb)
	kRaw := fairProb.Mul(b).Sub(q).Div(b)
	if !kRaw.IsPositive() {
		return KellyResult{KRaw: kRaw, NoTrade: true}
	}

	m := state.KellyMultiplier()
	kAdj := kRaw.Mul(p.KellyFraction).Mul(confidence).Mul(m)

	rawPosition := kAdj.Mul(bankroll)
	cap := p.MaxPositionPct.Mul(bankroll)
	positionUSD := rawPosition
	capped := false
	if rawPosition.GreaterThan(cap) {
		positionUSD = cap
		capped = true
	}

	if positionUSD.LessThan(p.MinPositionUSD) {
		return KellyResult{KRaw: kRaw, KAdjusted: kAdj, NoTrade: true}
	}

	return KellyResult{
		KRaw:        kRaw,
		KAdjusted:   kAdj,
		PositionUSD: positionUSD,
		Capped:      capped,
	}
}

// EdgeJustifiesCost reports whether projected profit (position * edge)
// exceeds the API cost spent finding the opportunity (§4.4, §4.9).
func EdgeJustifiesCost(positionUSD, rawEdge, apiCostForCall domain.Decimal) bool {
	return positionUSD.Mul(rawEdge).GreaterThan(apiCostForCall)
}

// LiquidityAdjustedSize caps a requested position at 20% of the best-level
// depth available in dollar terms. Zero depth yields zero size.
func LiquidityAdjustedSize(requestedUSD, bestLevelDepthUSD domain.Decimal) domain.Decimal {
	if bestLevelDepthUSD.LessThanOrEqual(domain.Zero) {
		return domain.Zero
	}
	cap := bestLevelDepthUSD.Mul(mustDecimal("0.20"))
	if requestedUSD.LessThan(cap) {
		return requestedUSD
	}
	return cap
}

// ExitSignal is the outcome of evaluating a stop-loss.
type ExitSignal struct {
	ShouldExit bool
	PnLPct     domain.Decimal
}

// EvaluateExit computes pnl_pct for an open position and compares it against
// -maxLossPct (§4.4). Yes positions compare entry/midpoint directly; No
// positions compare the complementary prices since the entry price reflects
// the No token, not the Yes token.
func EvaluateExit(side domain.Side, entry, midpoint, maxLossPct domain.Decimal) ExitSignal {
	e, m := entry, midpoint
	if side == domain.SideNo {
		e = domain.One.Sub(entry)
		m = domain.One.Sub(midpoint)
	}
	if e.LessThanOrEqual(domain.Zero) {
		return ExitSignal{PnLPct: domain.Zero}
	}
	pnlPct := m.Sub(e).Div(e)
	return ExitSignal{
		ShouldExit: pnlPct.LessThan(maxLossPct.Neg()),
		PnLPct:     pnlPct,
	}
}
