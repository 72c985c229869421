package domain

import "time"

// EdgeResult is the outcome of comparing a ValuationResult against the
// current market price (Pipeline step 4).
type EdgeResult struct {
	RawEdge   Decimal
	Side      Side
	TradePrice Decimal // best_ask for Yes, 1-best_bid for No
	Threshold Decimal
	Qualifies bool
}

// Opportunity is a candidate carried through the pipeline once it clears
// valuation and edge evaluation: MarketCandidate + ValuationResult +
// EdgeResult + sized position.
type Opportunity struct {
	Market     Market
	Book       OrderBookSnapshot
	ScannedAt  time.Time
	Valuation  ValuationResult
	Edge       EdgeResult
	PositionUSD Decimal
	KellyRaw    Decimal
	KellyAdj    Decimal
	Capped      bool
}

// Category proxies the underlying market's category for constraint checks.
func (o Opportunity) Category() Category {
	return o.Market.Category
}
