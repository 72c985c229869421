package domain

import "time"

// OrderBookSnapshot is a point-in-time view of one token's order book.
type OrderBookSnapshot struct {
	TokenID     string
	Bids        []BookEntry // sorted price descending
	Asks        []BookEntry // sorted price ascending
	ObservedAt  time.Time
}

// BookEntry is a single price level.
type BookEntry struct {
	Price Decimal
	Size  Decimal
}

// BestBid returns the highest bid price, zero if the book is empty.
func (ob OrderBookSnapshot) BestBid() Decimal {
	if len(ob.Bids) == 0 {
		return Zero
	}
	return ob.Bids[0].Price
}

// BestAsk returns the lowest ask price, zero if the book is empty.
func (ob OrderBookSnapshot) BestAsk() Decimal {
	if len(ob.Asks) == 0 {
		return Zero
	}
	return ob.Asks[0].Price
}

// Midpoint is (best_bid+best_ask)/2, zero if either side is empty.
func (ob OrderBookSnapshot) Midpoint() Decimal {
	bid, ask := ob.BestBid(), ob.BestAsk()
	if bid.IsZero() || ask.IsZero() {
		return Zero
	}
	return bid.Add(ask).Div(two)
}

// Spread is best_ask - best_bid, zero if either side is empty.
func (ob OrderBookSnapshot) Spread() Decimal {
	bid, ask := ob.BestBid(), ob.BestAsk()
	if bid.IsZero() || ask.IsZero() {
		return Zero
	}
	return ask.Sub(bid)
}

// ImpliedProbability is the market's implied probability of "Yes", which for
// a binary market equals the midpoint.
func (ob OrderBookSnapshot) ImpliedProbability() Decimal {
	return ob.Midpoint()
}

// BestAskDepth returns the size available at the single best ask level.
func (ob OrderBookSnapshot) BestAskDepth() Decimal {
	if len(ob.Asks) == 0 {
		return Zero
	}
	return ob.Asks[0].Size
}

// BestBidDepth returns the size available at the single best bid level.
func (ob OrderBookSnapshot) BestBidDepth() Decimal {
	if len(ob.Bids) == 0 {
		return Zero
	}
	return ob.Bids[0].Size
}

// TotalDepth sums size across both sides of the book.
func (ob OrderBookSnapshot) TotalDepth() Decimal {
	total := Zero
	for _, b := range ob.Bids {
		total = total.Add(b.Size)
	}
	for _, a := range ob.Asks {
		total = total.Add(a.Size)
	}
	return total
}
