package ports

import (
	"context"

	"github.com/alejandrodnm/polyagent/internal/domain"
)

// ScanFilter bounds what MarketClient.DiscoverMarkets returns.
type ScanFilter struct {
	MaxMarkets        int
	MinVolume24h      domain.Decimal
	MaxResolutionDays int
	MaxSpreadPct      domain.Decimal
	Categories        []domain.Category
}

// PlaceOrderRequest is what the Pipeline hands to MarketClient after sizing.
type PlaceOrderRequest struct {
	MarketID string
	TokenID  string
	Side     domain.Side
	Price    domain.Decimal // limit price, already slippage-bounded
	Shares   domain.Decimal
}

// OrderStatus is the outcome of an order submission.
type OrderStatus int

const (
	OrderFilled OrderStatus = iota
	OrderRejected
)

// PlacedOrder is MarketClient's response to an order submission.
type PlacedOrder struct {
	Status     OrderStatus
	FilledSize domain.Decimal
	FillPrice  domain.Decimal
	Reason     string // set when Status == OrderRejected
}

// MarketResolution is what ResolutionEngine needs to settle a market.
type MarketResolution struct {
	Closed     bool
	Resolved   bool
	YesOutcome domain.Decimal // outcome_prices[0]
	NoOutcome  domain.Decimal // outcome_prices[1]
}

// MarketClient is the outbound adapter to the trading venue: discovery,
// order books, order placement, balance, and resolution polling. Paper and
// live execution both implement this; paper simulates fills locally.
type MarketClient interface {
	DiscoverMarkets(ctx context.Context, filter ScanFilter) ([]domain.Market, error)
	FetchOrderBooks(ctx context.Context, tokenIDs []string) (map[string]domain.OrderBookSnapshot, error)
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (PlacedOrder, error)
	Balance(ctx context.Context) (domain.Decimal, error)
	FetchResolution(ctx context.Context, conditionID string) (MarketResolution, bool, error)
}

// BalanceCrediter is an optional capability a MarketClient may implement to
// receive settlement proceeds. Paper execution implements it so winning
// trades feed back into the simulated bankroll; a live client settles
// on-chain instead and has no use for it.
type BalanceCrediter interface {
	Credit(amount domain.Decimal)
}
