// Package resolution implements the settlement sweep (§4.7), grounded on
// original_source/polymarket-agent/src/execution/resolution.rs's
// check_and_settle/fetch_market_resolution/settle_trade flow, generalized
// from the Rust agent's single-loop polling into an Engine the Scheduler (or
// an independent ticker) invokes.
package resolution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/alejandrodnm/polyagent/internal/ports"
	"github.com/alejandrodnm/polyagent/internal/risk"
	"github.com/alejandrodnm/polyagent/internal/valuation"
)

// Engine polls unresolved markets for closure, computes realized P&L, and
// feeds the calibration loop. A market query failure is logged and the
// sweep continues — one bad market never blocks the rest (§4.7).
type Engine struct {
	market      ports.MarketClient
	ledger      ports.Ledger
	calibration *valuation.CalibrationStore
	portfolio   *risk.PortfolioManager
	alerts      ports.AlertChannel
}

// NewEngine wires a ResolutionEngine from its collaborators.
func NewEngine(market ports.MarketClient, ledger ports.Ledger, calibration *valuation.CalibrationStore, portfolio *risk.PortfolioManager, alerts ports.AlertChannel) *Engine {
	return &Engine{market: market, ledger: ledger, calibration: calibration, portfolio: portfolio, alerts: alerts}
}

// Sweep loads every open trade, deduplicates by market, queries resolution
// state once per unique market, and settles every open trade whose market
// has resolved.
func (e *Engine) Sweep(ctx context.Context) error {
	open, err := e.ledger.OpenTrades(ctx)
	if err != nil {
		return fmt.Errorf("resolution: load open trades: %w", err)
	}
	if len(open) == 0 {
		return nil
	}

	byMarket := make(map[string][]domain.Trade)
	for _, t := range open {
		byMarket[t.MarketID] = append(byMarket[t.MarketID], t)
	}

	for marketID, trades := range byMarket {
		resolution, found, err := e.market.FetchResolution(ctx, marketID)
		if err != nil {
			slog.Warn("resolution: fetch failed", "market_id", marketID, "err", err)
			continue
		}
		if !found || !resolution.Closed || !resolution.Resolved {
			continue
		}

		yesWon := resolution.YesOutcome.GreaterThan(mustDecimal("0.5"))
		for _, t := range trades {
			e.settle(ctx, t, yesWon)
		}
	}
	return nil
}

// settle computes one trade's realized P&L and updates the ledger,
// portfolio, and calibration history atomically from the caller's
// perspective (single goroutine, no concurrent settlement of the same
// trade). P&L follows §4.7's rule: both sides' winning payout is
// `(1-entry)*size` and both sides' losing payout is `-entry*size`, because
// `entry` already reflects the price of the token actually held (the No
// token's own price for a No trade, not 1-minus anything) — the original
// source's identical-looking branches for Yes-wins and No-wins are correct
// for that reason, not a copy-paste accident.
func (e *Engine) settle(ctx context.Context, t domain.Trade, yesWon bool) {
	won := (t.Direction == domain.SideYes && yesWon) || (t.Direction == domain.SideNo && !yesWon)

	var pnl domain.Decimal
	var status domain.TradeStatus
	if won {
		pnl = domain.One.Sub(t.EntryPrice).Mul(t.Size)
		status = domain.TradeResolvedWin
	} else {
		pnl = t.EntryPrice.Neg().Mul(t.Size)
		status = domain.TradeResolvedLoss
	}

	resolvedAt := time.Now()
	if err := e.ledger.UpdateTradeResolution(ctx, t.ID, status, pnl, resolvedAt); err != nil {
		slog.Warn("resolution: failed to update trade", "trade_id", t.ID, "err", err)
		return
	}

	e.portfolio.OnResolution(t.MarketID)

	actualOutcome := domain.Zero
	if yesWon {
		actualOutcome = domain.One
	}
	if e.calibration != nil {
		if err := e.calibration.RecordResolution(ctx, t.MarketID, actualOutcome); err != nil {
			slog.Warn("resolution: failed to record calibration outcome", "market_id", t.MarketID, "err", err)
		}
	}

	if creditor, ok := e.market.(ports.BalanceCrediter); ok && won {
		proceeds := t.Size // shares redeem 1:1 against the winning side
		creditor.Credit(proceeds)
	}

	if e.alerts != nil {
		if err := e.alerts.Notify(ctx, ports.Event{
			Type:      ports.EventTradeResolved,
			Timestamp: resolvedAt,
			Fields: map[string]any{
				"market_id": t.MarketID,
				"pnl":       pnl.String(),
				"status":    status.String(),
			},
		}); err != nil {
			slog.Warn("resolution: alert delivery failed", "err", err)
		}
	}
}

func mustDecimal(s string) domain.Decimal {
	d, err := domain.ParseDecimal(s)
	if err != nil {
		panic("resolution: bad decimal literal " + s)
	}
	return d
}
