package domain

import "time"

// Cycle is the persisted per-cycle summary row.
type Cycle struct {
	CycleNumber        int64
	ScannedCount       int
	OpportunityCount   int
	TradeCount         int
	ApiCost            Decimal
	Bankroll           Decimal
	UnrealizedExposure Decimal
	State              AgentState
	Duration           time.Duration
	StartedAt          time.Time
}

// ApiCost is the persisted record of one priced external API call.
type ApiCost struct {
	ID           int64
	Provider     string
	Endpoint     string
	InputTokens  int
	OutputTokens int
	CostUSD      Decimal
	Cycle        int64
	IncurredAt   time.Time
}
