// Package pipeline orchestrates the per-candidate evaluate→size→execute
// flow (§4.2): cost gate, relevance filter, valuation, edge detection, Kelly
// sizing, cost justification, portfolio constraints, capacity/liquidity
// adjustment, order preparation, execution.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/alejandrodnm/polyagent/internal/data"
	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/alejandrodnm/polyagent/internal/ports"
	"github.com/alejandrodnm/polyagent/internal/risk"
	"github.com/alejandrodnm/polyagent/internal/valuation"
)

func mustDecimal(s string) domain.Decimal {
	d, err := domain.ParseDecimal(s)
	if err != nil {
		panic("pipeline: bad decimal literal " + s)
	}
	return d
}

var (
	minConfidence    = mustDecimal("0.4")
	highConfidenceAt = mustDecimal("0.80")
	midConfidenceAt  = mustDecimal("0.50")
	one              = domain.One
)

// Config bundles the thresholds steps 4, 10, and the Kelly call need.
type Config struct {
	MinEdgeThreshold   domain.Decimal
	HighConfidenceEdge domain.Decimal
	LowConfidenceEdge  domain.Decimal
	MaxSlippagePct     domain.Decimal
	Kelly              risk.KellyParams
}

// Pipeline wires together every collaborator one cycle's candidate loop
// touches. It holds no cycle-scoped state itself — callers pass cycle
// number and bankroll into RunCycle explicitly — so a single instance is
// reused across cycles.
type Pipeline struct {
	market      ports.MarketClient
	aggregator  *data.Aggregator
	valuer      *valuation.ValuationEngine
	calibration *valuation.CalibrationStore
	portfolio   *risk.PortfolioManager
	ledger      ports.Ledger
	alerts      ports.AlertChannel
	cfg         Config
}

// New builds a Pipeline from its collaborators.
func New(
	market ports.MarketClient,
	aggregator *data.Aggregator,
	valuer *valuation.ValuationEngine,
	calibration *valuation.CalibrationStore,
	portfolio *risk.PortfolioManager,
	ledger ports.Ledger,
	alerts ports.AlertChannel,
	cfg Config,
) *Pipeline {
	return &Pipeline{
		market:      market,
		aggregator:  aggregator,
		valuer:      valuer,
		calibration: calibration,
		portfolio:   portfolio,
		ledger:      ledger,
		alerts:      alerts,
		cfg:         cfg,
	}
}

// Result summarizes one cycle's pass through the candidate loop, for the
// Scheduler to fold into the persisted Cycle record.
type Result struct {
	OpportunityCount int
	TradeCount       int
	ApiCostSpent     domain.Decimal
}

// RunCycle processes candidates in discovery order up to maxEvaluations,
// stopping early once the cost gate (step 1) can no longer be satisfied.
// bankroll is the cycle-opening wallet balance; ApiCostSpent is deducted
// from it as valuation calls are accounted, matching §5's ordering
// guarantee that a trade's cost is charged before it is allowed to execute.
func (p *Pipeline) RunCycle(ctx context.Context, cycle int64, candidates []domain.Market, books map[string]domain.OrderBookSnapshot, bankroll domain.Decimal, maxEvaluations int, state domain.AgentState) Result {
	result := Result{ApiCostSpent: domain.Zero}
	confidenceDiscount := p.confidenceDiscount(ctx)

	for i, market := range candidates {
		if i >= maxEvaluations {
			break
		}

		book, ok := books[p.tokenIDFor(market)]
		if !ok {
			continue
		}

		remaining := bankroll.Sub(result.ApiCostSpent)
		if valuation.EstimatedCallCost().GreaterThan(remaining) {
			slog.Info("pipeline: cost gate stops cycle", "cycle", cycle, "remaining", remaining)
			break
		}

		points := p.relevantPoints(ctx, market)

		val, apiCost, err := p.valuer.EvaluateForCandidate(ctx, market, points, remaining)
		if err != nil {
			slog.Warn("pipeline: valuation failed", "market_id", market.ConditionID, "err", err)
			continue
		}
		if val == nil {
			break
		}
		result.ApiCostSpent = result.ApiCostSpent.Add(domain.NewDecimal(apiCost))

		confidence := val.Confidence.Mul(confidenceDiscount)

		edge := p.evaluateEdge(*val, book, confidence)
		if !edge.qualifies {
			continue
		}
		result.OpportunityCount++

		kelly := risk.CalculateKelly(edge.result.TradePrice, val.FairProbability, bankroll, confidence, state, p.cfg.Kelly)
		if kelly.NoTrade {
			continue
		}

		callCost := domain.NewDecimal(apiCost)
		if callCost.IsZero() {
			callCost = valuation.EstimatedCallCost()
		}
		if !risk.EdgeJustifiesCost(kelly.PositionUSD, edge.result.RawEdge, callCost) {
			continue
		}

		bookSpread := book.Spread()
		if v := p.portfolio.CheckConstraints(market.ConditionID, market.Category, kelly.PositionUSD, bankroll, bookSpread); v != risk.NoViolation {
			continue
		}

		sizeUSD := p.portfolio.AdjustSize(kelly.PositionUSD, bankroll)

		depthUSD := p.depthAtSide(book, edge.result.Side).Mul(edge.result.TradePrice)
		sizeUSD = risk.LiquidityAdjustedSize(sizeUSD, depthUSD)
		if sizeUSD.LessThan(p.cfg.Kelly.MinPositionUSD) {
			continue
		}

		token, ok := market.TokenForSide(edge.result.Side)
		if !ok {
			continue
		}
		limitPrice := p.slippageBoundedPrice(edge.result.TradePrice)
		shares := sizeUSD.Div(limitPrice)
		if !shares.IsPositive() {
			continue
		}

		placed, err := p.market.PlaceOrder(ctx, ports.PlaceOrderRequest{
			MarketID: market.ConditionID,
			TokenID:  token.TokenID,
			Side:     edge.result.Side,
			Price:    limitPrice,
			Shares:   shares,
		})
		if err != nil {
			slog.Warn("pipeline: order placement failed", "market_id", market.ConditionID, "err", err)
			continue
		}

		p.recordOutcome(ctx, cycle, market, token.TokenID, val, edge, kelly, placed, limitPrice, shares)
		if placed.Status == ports.OrderFilled {
			result.TradeCount++
		}
	}

	return result
}

// edgeDecision bundles EvaluateEdge's result with the step-4 accept/reject
// verdict, which layers extra confidence/data-quality rejections on top of
// the raw threshold comparison EvaluateEdge itself performs.
type edgeDecision struct {
	result    domain.EdgeResult
	qualifies bool
}

func (p *Pipeline) evaluateEdge(val domain.ValuationResult, book domain.OrderBookSnapshot, confidence domain.Decimal) edgeDecision {
	threshold := p.edgeThreshold(confidence)
	res := valuation.EvaluateEdge(val.FairProbability, book, threshold)

	if confidence.LessThan(minConfidence) || val.DataQuality == domain.DataQualityLow {
		return edgeDecision{result: res, qualifies: false}
	}
	return edgeDecision{result: res, qualifies: res.Qualifies}
}

// edgeThreshold selects the confidence-tiered edge bar (step 4): the high
// bar at confidence ≥ 0.80, the configured floor at ≥ 0.50, the low bar
// otherwise.
func (p *Pipeline) edgeThreshold(confidence domain.Decimal) domain.Decimal {
	switch {
	case confidence.GreaterThanOrEqual(highConfidenceAt):
		return p.cfg.HighConfidenceEdge
	case confidence.GreaterThanOrEqual(midConfidenceAt):
		return p.cfg.MinEdgeThreshold
	default:
		return p.cfg.LowConfidenceEdge
	}
}

// slippageBoundedPrice widens a limit order's price by the configured
// slippage ceiling so it has a realistic chance of filling against book
// movement between valuation and submission, never crossing 0.99.
func (p *Pipeline) slippageBoundedPrice(tradePrice domain.Decimal) domain.Decimal {
	bounded := tradePrice.Mul(one.Add(p.cfg.MaxSlippagePct))
	ceiling := mustDecimal("0.99")
	if bounded.GreaterThan(ceiling) {
		return ceiling
	}
	return bounded
}

func (p *Pipeline) depthAtSide(book domain.OrderBookSnapshot, side domain.Side) domain.Decimal {
	if side == domain.SideYes {
		return book.BestAskDepth()
	}
	return book.BestBidDepth()
}

func (p *Pipeline) tokenIDFor(market domain.Market) string {
	return market.YesToken().TokenID
}

func (p *Pipeline) relevantPoints(ctx context.Context, market domain.Market) []domain.DataPoint {
	res, err := p.aggregator.Fetch(ctx, ports.DataQuery{
		Markets:  []ports.MarketRef{{ConditionID: market.ConditionID, Question: market.Question}},
		Category: market.Category,
	})
	if err != nil {
		slog.Warn("pipeline: data aggregation failed", "market_id", market.ConditionID, "err", err)
		return nil
	}

	var relevant []domain.DataPoint
	for _, pt := range res.Points {
		if pt.RelevantTo(market.ConditionID) {
			relevant = append(relevant, pt)
		}
	}
	return relevant
}

func (p *Pipeline) confidenceDiscount(ctx context.Context) domain.Decimal {
	if p.calibration == nil {
		return domain.One
	}
	const lookback = 200
	discount, err := p.calibration.ComputeDiscount(ctx, lookback)
	if err != nil {
		slog.Warn("pipeline: calibration discount lookup failed", "err", err)
		return domain.One
	}
	return discount
}

func (p *Pipeline) recordOutcome(ctx context.Context, cycle int64, market domain.Market, tokenID string, val *domain.ValuationResult, edge edgeDecision, kelly risk.KellyResult, placed ports.PlacedOrder, limitPrice, shares domain.Decimal) {
	status := domain.TradeRejected
	if placed.Status == ports.OrderFilled {
		status = domain.TradeOpen
	}

	trade := domain.Trade{
		Cycle:         cycle,
		MarketID:      market.ConditionID,
		Question:      market.Question,
		Direction:     edge.result.Side,
		EntryPrice:    limitPrice,
		Size:          shares,
		EdgeAtEntry:   edge.result.RawEdge,
		FairValue:     val.FairProbability,
		Confidence:    val.Confidence,
		KellyRaw:      kelly.KRaw,
		KellyAdjusted: kelly.KAdjusted,
		Status:        status,
		CreatedAt:     time.Now(),
	}

	if _, err := p.ledger.AppendTrade(ctx, trade); err != nil {
		slog.Warn("pipeline: failed to persist trade", "market_id", market.ConditionID, "err", err)
	}

	if status == domain.TradeRejected {
		slog.Info("pipeline: order rejected", "market_id", market.ConditionID, "reason", placed.Reason)
		return
	}

	sizeUSD := shares.Mul(limitPrice)
	p.portfolio.OnFill(domain.Position{
		MarketID:   market.ConditionID,
		TokenID:    tokenID,
		Category:   market.Category,
		Side:       edge.result.Side,
		SizeUSD:    sizeUSD,
		EntryPrice: limitPrice,
	})

	if p.calibration != nil {
		if err := p.calibration.RecordPrediction(ctx, market.ConditionID, val.Confidence, val.FairProbability, edge.result.TradePrice, time.Now()); err != nil {
			slog.Warn("pipeline: failed to record calibration prediction", "market_id", market.ConditionID, "err", err)
		}
	}

	if err := p.alerts.Notify(ctx, ports.Event{
		Type:      ports.EventTradePlaced,
		Timestamp: time.Now(),
		Fields: map[string]any{
			"market_id":   market.ConditionID,
			"side":        edge.result.Side.String(),
			"size_usd":    sizeUSD.String(),
			"entry_price": limitPrice.String(),
			"edge":        edge.result.RawEdge.String(),
		},
	}); err != nil {
		slog.Warn("pipeline: alert delivery failed", "err", err)
	}
}
