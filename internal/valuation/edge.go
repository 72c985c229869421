package valuation

import "github.com/alejandrodnm/polyagent/internal/domain"

// EvaluateEdge compares a ValuationResult's fair probability against the
// live order book and decides which side (if either) clears the minimum
// edge threshold. raw_edge is a single scalar computed against market_prob,
// the book's midpoint implied probability, not against either side's trade
// price. Trade price is a separate concept: Yes trades execute at best_ask,
// No trades at 1 - best_bid.
func EvaluateEdge(fairProb domain.Decimal, book domain.OrderBookSnapshot, minEdge domain.Decimal) domain.EdgeResult {
	bestAsk := book.BestAsk()
	bestBid := book.BestBid()
	marketProb := book.ImpliedProbability()
	rawEdge := fairProb.Sub(marketProb).Abs()

	side := domain.SideYes
	tradePrice := bestAsk
	bookHasPrice := bestAsk.IsPositive()
	if fairProb.LessThan(marketProb) {
		side = domain.SideNo
		bookHasPrice = bestBid.IsPositive()
		tradePrice = domain.Zero
		if bookHasPrice {
			tradePrice = domain.One.Sub(bestBid)
		}
	}

	return domain.EdgeResult{
		RawEdge:    rawEdge,
		Side:       side,
		TradePrice: tradePrice,
		Threshold:  minEdge,
		Qualifies:  bookHasPrice && rawEdge.GreaterThanOrEqual(minEdge),
	}
}
