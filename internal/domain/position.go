package domain

// Position is an in-memory open exposure. Positions exist only in the
// PortfolioManager's working set, which starts empty on every run; they are
// not rebuilt from the Ledger's open Trades on startup, and never queried
// directly off the Ledger during a cycle.
type Position struct {
	MarketID   string
	TokenID    string
	Category   Category
	Side       Side
	SizeUSD    Decimal
	EntryPrice Decimal
}
