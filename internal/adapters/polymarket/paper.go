package polymarket

import (
	"context"
	"fmt"
	"sync"

	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/alejandrodnm/polyagent/internal/ports"
)

// PaperClient is the only execution mode this repository implements end to
// end: market discovery, order books, and resolution polling are the real
// Gamma/CLOB adapters, but PlaceOrder and Balance are simulated locally
// under an exclusive lock, since paper trading is this process's only
// writer to its own balance.
type PaperClient struct {
	market *Client

	mu      sync.Mutex
	balance domain.Decimal
}

// NewPaperClient wraps market (the real Gamma/CLOB adapter) with a simulated
// balance seeded from initialBalance.
func NewPaperClient(market *Client, initialBalance domain.Decimal) *PaperClient {
	return &PaperClient{market: market, balance: initialBalance}
}

func (p *PaperClient) DiscoverMarkets(ctx context.Context, filter ports.ScanFilter) ([]domain.Market, error) {
	return p.market.DiscoverMarkets(ctx, filter)
}

func (p *PaperClient) FetchOrderBooks(ctx context.Context, tokenIDs []string) (map[string]domain.OrderBookSnapshot, error) {
	return p.market.FetchOrderBooks(ctx, tokenIDs)
}

func (p *PaperClient) FetchResolution(ctx context.Context, conditionID string) (ports.MarketResolution, bool, error) {
	return p.market.FetchResolution(ctx, conditionID)
}

// PlaceOrder simulates an immediate fill at the requested limit price,
// deducting price*shares from the simulated balance. Orders that would
// overdraw the simulated balance are rejected rather than partially filled.
func (p *PaperClient) PlaceOrder(ctx context.Context, req ports.PlaceOrderRequest) (ports.PlacedOrder, error) {
	cost := req.Price.Mul(req.Shares)

	p.mu.Lock()
	defer p.mu.Unlock()

	if cost.GreaterThan(p.balance) {
		return ports.PlacedOrder{
			Status: ports.OrderRejected,
			Reason: fmt.Sprintf("paper balance %s insufficient for cost %s", p.balance, cost),
		}, nil
	}

	p.balance = p.balance.Sub(cost)
	return ports.PlacedOrder{
		Status:     ports.OrderFilled,
		FilledSize: req.Shares,
		FillPrice:  req.Price,
	}, nil
}

// Balance returns the current simulated bankroll.
func (p *PaperClient) Balance(ctx context.Context) (domain.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance, nil
}

// Credit adds proceeds back to the simulated balance, called by the
// resolution engine when a position settles in the agent's favor.
func (p *PaperClient) Credit(amount domain.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balance = p.balance.Add(amount)
}

var _ ports.MarketClient = (*PaperClient)(nil)
