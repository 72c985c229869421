package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/polyagent/internal/domain"
)

// CalibrationRecord is one prediction↔outcome row (§4.6).
type CalibrationRecord struct {
	ID                 int64
	MarketID           string
	ClaudeConfidence   domain.Decimal
	FairValue          domain.Decimal
	MarketPriceAtEntry domain.Decimal
	Resolved           bool
	ActualOutcome      *domain.Decimal // nil until resolved
	ForecastCorrect    *bool
	PredictedAt        time.Time
	ResolvedAt         *time.Time
}

// Ledger is the durable store backing cycles, trades, API costs, the
// valuation cache, and calibration history. All monetary columns are
// persisted as decimal strings (§4.8); writes are serialized by the
// implementation, reads are safe to run concurrently.
type Ledger interface {
	// Cycles
	AppendCycle(ctx context.Context, c domain.Cycle) error
	LatestCycle(ctx context.Context) (*domain.Cycle, error)
	AllCycles(ctx context.Context) ([]domain.Cycle, error)

	// Trades
	AppendTrade(ctx context.Context, t domain.Trade) (int64, error)
	UpdateTradeResolution(ctx context.Context, tradeID int64, status domain.TradeStatus, pnl domain.Decimal, resolvedAt time.Time) error
	OpenTrades(ctx context.Context) ([]domain.Trade, error)
	ResolvedTrades(ctx context.Context, limit int) ([]domain.Trade, error)
	TradesByMarket(ctx context.Context, marketID string) ([]domain.Trade, error)

	// API costs
	InsertApiCost(ctx context.Context, c domain.ApiCost) error
	TotalApiCost(ctx context.Context) (domain.Decimal, error)
	TodayApiCost(ctx context.Context) (domain.Decimal, error)
	ApiCostForCycle(ctx context.Context, cycle int64) (domain.Decimal, error)

	// Valuation cache, keyed by condition_id, TTL-checked on read.
	GetCachedValuation(ctx context.Context, conditionID string, ttl time.Duration) (*domain.ValuationResult, bool, error)
	SetCachedValuation(ctx context.Context, conditionID string, v domain.ValuationResult) error

	// Calibration
	InsertCalibration(ctx context.Context, r CalibrationRecord) error
	ResolveCalibration(ctx context.Context, marketID string, actualOutcome domain.Decimal) error
	RecentResolvedCalibration(ctx context.Context, lookback int) ([]CalibrationRecord, error)

	Close() error
}
