package domain

import "time"

// Side is a trade direction on a binary market.
type Side int

const (
	SideYes Side = iota
	SideNo
)

func (s Side) String() string {
	if s == SideYes {
		return "Yes"
	}
	return "No"
}

// TradeStatus models the one-way trade lifecycle: Open -> {ResolvedWin,
// ResolvedLoss, Rejected}. Rejected trades are terminal and never retried
// automatically for the same decision.
type TradeStatus int

const (
	TradeOpen TradeStatus = iota
	TradeResolvedWin
	TradeResolvedLoss
	TradeRejected
)

func (s TradeStatus) String() string {
	switch s {
	case TradeResolvedWin:
		return "ResolvedWin"
	case TradeResolvedLoss:
		return "ResolvedLoss"
	case TradeRejected:
		return "Rejected"
	default:
		return "Open"
	}
}

// Resolved reports whether the status is terminal.
func (s TradeStatus) Resolved() bool {
	return s != TradeOpen
}

// Trade is the persisted record of a single position decision.
type Trade struct {
	ID            int64
	Cycle         int64
	MarketID      string
	Question      string
	Direction     Side
	EntryPrice    Decimal
	Size          Decimal // in shares
	EdgeAtEntry   Decimal
	FairValue     Decimal
	Confidence    Decimal
	KellyRaw      Decimal
	KellyAdjusted Decimal
	Status        TradeStatus
	PnL           *Decimal // nil until resolution
	CreatedAt     time.Time
	ResolvedAt    *time.Time
}
