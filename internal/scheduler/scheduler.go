// Package scheduler drives the agent's cycle loop and self-preservation
// state machine (§4.1), grounded on the teacher's internal/scanner.Scanner
// Run/runCycle/cycle split, generalized from a fixed scan interval to the
// state-gated workload this agent's survival rule requires every cycle.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/alejandrodnm/polyagent/internal/pipeline"
	"github.com/alejandrodnm/polyagent/internal/ports"
)

// milestones are the bankroll crossings (§6) that trigger a
// bankroll_milestone alert when the wallet balance rises to or above one;
// falling back below a milestone re-arms it without an alert.
var milestones = []float64{50, 100, 200, 500, 1000, 2000, 5000, 10000}

// Config bundles the config-driven knobs the state machine and cycle loop
// read every tick.
type Config struct {
	CycleInterval         time.Duration
	DeathBalanceThreshold domain.Decimal
	LowFuelThreshold      domain.Decimal
	ApiReserve            domain.Decimal
	MaxEvaluationsAlive   int
	CostLookback          int
	DryRun                bool
}

// Snapshot is the single-writer/multi-reader state the health server reads
// (§4.14): written by Scheduler after every cycle, read under an RWMutex by
// the HTTP handlers.
type Snapshot struct {
	LastCycleAt      time.Time
	LastCycleNumber  int64
	State            domain.AgentState
	Bankroll         domain.Decimal
	OpenPositions    int
	CycleIntervalSec int
}

// SnapshotWriter receives a Snapshot after every completed cycle. The health
// server's in-memory store implements this; it's injected so Scheduler
// doesn't need to import internal/health.
type SnapshotWriter interface {
	Write(Snapshot)
}

// Scheduler is the cooperative, single-threaded cycle driver: only one
// cycle executes at a time, and there is no overlap (§4.1).
type Scheduler struct {
	cfg       Config
	market    ports.MarketClient
	pipeline  *pipeline.Pipeline
	ledger    ports.Ledger
	alerts    ports.AlertChannel
	portfolio portfolioExposer
	snapshot  SnapshotWriter

	lastState      domain.AgentState
	seenMilestones map[float64]bool
	cycleNumber    int64
}

// portfolioExposer is the narrow slice of risk.PortfolioManager the
// scheduler needs to compute unrealized exposure and open-position counts
// for the health snapshot, without importing internal/risk's full surface.
type portfolioExposer interface {
	Exposure() domain.Decimal
	Positions() []domain.Position
}

// New builds a Scheduler from its collaborators. lastState starts Alive;
// Run calls recoverCycleNumber to resume cycle numbering from the ledger's
// history, and the previous survival state is not restored.
func New(cfg Config, market ports.MarketClient, pl *pipeline.Pipeline, ledger ports.Ledger, alerts ports.AlertChannel, portfolio portfolioExposer, snapshot SnapshotWriter) *Scheduler {
	return &Scheduler{
		cfg:            cfg,
		market:         market,
		pipeline:       pl,
		ledger:         ledger,
		alerts:         alerts,
		portfolio:      portfolio,
		snapshot:       snapshot,
		lastState:      domain.StateAlive,
		seenMilestones: make(map[float64]bool),
	}
}

// Run recovers cycle numbering from the ledger, then runs the cycle loop
// until ctx is cancelled or the agent dies. In DryRun mode it runs exactly
// one cycle and returns.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.recoverCycleNumber(ctx); err != nil {
		return err
	}

	slog.Info("scheduler starting", "cycle_interval", s.cfg.CycleInterval, "dry_run", s.cfg.DryRun, "next_cycle", s.cycleNumber)

	dead, err := s.runCycle(ctx)
	if err != nil {
		slog.Error("cycle failed", "cycle", s.cycleNumber, "err", err)
	}
	if dead || s.cfg.DryRun {
		return nil
	}

	ticker := time.NewTicker(s.cfg.CycleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			dead, err := s.runCycle(ctx)
			if err != nil {
				slog.Error("cycle failed", "cycle", s.cycleNumber, "err", err)
			}
			if dead {
				return nil
			}
		}
	}
}

// recoverCycleNumber sets the next cycle number to max(cycle_number)+1,
// preserving strict monotonicity across restarts (§3 invariant).
func (s *Scheduler) recoverCycleNumber(ctx context.Context) error {
	latest, err := s.ledger.LatestCycle(ctx)
	if err != nil {
		return err
	}
	if latest != nil {
		s.cycleNumber = latest.CycleNumber + 1
	}
	return nil
}

// runCycle runs exactly one cycle: recompute state, run the state-gated
// workload, persist the cycle record, check periodic metrics, report
// whether the agent died this cycle.
func (s *Scheduler) runCycle(ctx context.Context) (dead bool, err error) {
	start := time.Now()
	cycle := s.cycleNumber
	s.cycleNumber++

	wallet, err := s.market.Balance(ctx)
	if err != nil {
		return false, err
	}
	unrealized := s.portfolio.Exposure()

	recentCosts, err := s.recentApiCosts(ctx)
	if err != nil {
		return false, err
	}
	nextCycleCost := EstimateNextCycleCost(recentCosts)

	state := EvaluateSurvival(SurvivalInputs{
		WalletBalance:      wallet,
		UnrealizedExposure: unrealized,
		NextCycleCost:      nextCycleCost,
		DeathThreshold:     s.cfg.DeathBalanceThreshold,
		ApiReserve:         s.cfg.ApiReserve,
		LowFuelThreshold:   s.cfg.LowFuelThreshold,
	})
	s.handleStateChange(ctx, state, wallet)

	var (
		scannedCount int
		result       pipeline.Result
	)
	if state.ScanAllowed() {
		markets, books, serr := s.scan(ctx)
		if serr != nil {
			slog.Warn("scheduler: scan failed", "cycle", cycle, "err", serr)
		} else {
			scannedCount = len(markets)
			maxEvals := state.MaxEvaluations(s.cfg.MaxEvaluationsAlive)
			if maxEvals > 0 {
				result = s.pipeline.RunCycle(ctx, cycle, markets, books, wallet, maxEvals, state)
			}
		}
	}

	apiCostDec := result.ApiCostSpent
	if err := s.ledger.InsertApiCost(ctx, domain.ApiCost{
		Provider:   "reasoning-model",
		Endpoint:   "complete",
		CostUSD:    apiCostDec,
		Cycle:      cycle,
		IncurredAt: start,
	}); err != nil {
		slog.Warn("scheduler: failed to record api cost", "cycle", cycle, "err", err)
	}

	rec := domain.Cycle{
		CycleNumber:        cycle,
		ScannedCount:       scannedCount,
		OpportunityCount:   result.OpportunityCount,
		TradeCount:         result.TradeCount,
		ApiCost:            apiCostDec,
		Bankroll:           wallet,
		UnrealizedExposure: unrealized,
		State:              state,
		Duration:           time.Since(start),
		StartedAt:          start,
	}
	if err := s.ledger.AppendCycle(ctx, rec); err != nil {
		slog.Error("scheduler: failed to persist cycle record", "cycle", cycle, "err", err)
	}

	s.writeSnapshot(rec)

	if cycle > 0 && cycle%10 == 0 {
		s.emitPeriodicSummary(ctx, cycle)
	}

	slog.Info("cycle complete", "cycle", cycle, "state", state.String(), "scanned", scannedCount, "opportunities", result.OpportunityCount, "trades", result.TradeCount, "duration", time.Since(start).Round(time.Millisecond))

	if state == domain.StateDead {
		s.emitDeath(ctx, wallet, unrealized)
		return true, nil
	}
	return false, nil
}

// scan discovers candidate markets and their order books in one round trip
// pair, mirroring the teacher's cycle()'s fetch-markets/fetch-books split.
func (s *Scheduler) scan(ctx context.Context) ([]domain.Market, map[string]domain.OrderBookSnapshot, error) {
	markets, err := s.market.DiscoverMarkets(ctx, ports.ScanFilter{MaxMarkets: 100})
	if err != nil {
		return nil, nil, err
	}

	tokenIDs := make([]string, 0, len(markets))
	for _, m := range markets {
		tokenIDs = append(tokenIDs, m.YesToken().TokenID)
	}
	books, err := s.market.FetchOrderBooks(ctx, tokenIDs)
	if err != nil {
		return nil, nil, err
	}
	return markets, books, nil
}

func (s *Scheduler) recentApiCosts(ctx context.Context) ([]domain.Decimal, error) {
	cycles, err := s.ledger.AllCycles(ctx)
	if err != nil {
		return nil, err
	}
	lookback := s.cfg.CostLookback
	if lookback <= 0 {
		lookback = 10
	}
	if len(cycles) > lookback {
		cycles = cycles[len(cycles)-lookback:]
	}
	costs := make([]domain.Decimal, 0, len(cycles))
	for _, c := range cycles {
		costs = append(costs, c.ApiCost)
	}
	return costs, nil
}

// handleStateChange emits a state_change alert when the survival state
// differs from the previous cycle's, and checks bankroll milestones.
// Alert emission failures are logged, never propagated (§4.1).
func (s *Scheduler) handleStateChange(ctx context.Context, state domain.AgentState, wallet domain.Decimal) {
	if state != s.lastState {
		if err := s.alerts.Notify(ctx, ports.Event{
			Type:      ports.EventStateChange,
			Timestamp: time.Now(),
			Fields: map[string]any{
				"from":           s.lastState.String(),
				"to":             state.String(),
				"wallet_balance": wallet.String(),
			},
		}); err != nil {
			slog.Warn("scheduler: state-change alert failed", "err", err)
		}
		s.lastState = state
	}

	s.checkMilestones(ctx, wallet)
}

func (s *Scheduler) checkMilestones(ctx context.Context, wallet domain.Decimal) {
	w, _ := wallet.Float64()
	for _, m := range milestones {
		crossed := w >= m
		if crossed && !s.seenMilestones[m] {
			s.seenMilestones[m] = true
			if err := s.alerts.Notify(ctx, ports.Event{
				Type:      ports.EventBankrollMilestone,
				Timestamp: time.Now(),
				Fields:    map[string]any{"bankroll": wallet.String()},
			}); err != nil {
				slog.Warn("scheduler: milestone alert failed", "err", err)
			}
		}
		if !crossed {
			s.seenMilestones[m] = false
		}
	}
}

func (s *Scheduler) emitPeriodicSummary(ctx context.Context, cycle int64) {
	totalCost, err := s.ledger.TotalApiCost(ctx)
	if err != nil {
		slog.Warn("scheduler: periodic summary cost lookup failed", "err", err)
		return
	}
	if err := s.alerts.Notify(ctx, ports.Event{
		Type:      ports.EventDailySummary,
		Timestamp: time.Now(),
		Fields: map[string]any{
			"cycles":   cycle,
			"api_cost": totalCost.String(),
		},
	}); err != nil {
		slog.Warn("scheduler: periodic summary alert failed", "err", err)
	}
}

func (s *Scheduler) emitDeath(ctx context.Context, wallet, unrealized domain.Decimal) {
	slog.Error("agent death", "wallet_balance", wallet.String(), "unrealized_exposure", unrealized.String())
	if err := s.alerts.Notify(ctx, ports.Event{
		Type:      ports.EventAgentDeath,
		Timestamp: time.Now(),
		Fields: map[string]any{
			"wallet_balance":      wallet.String(),
			"unrealized_exposure": unrealized.String(),
		},
	}); err != nil {
		slog.Warn("scheduler: death alert failed", "err", err)
	}
}

func (s *Scheduler) writeSnapshot(rec domain.Cycle) {
	if s.snapshot == nil {
		return
	}
	s.snapshot.Write(Snapshot{
		LastCycleAt:      time.Now(),
		LastCycleNumber:  rec.CycleNumber,
		State:            rec.State,
		Bankroll:         rec.Bankroll,
		OpenPositions:    len(s.portfolio.Positions()),
		CycleIntervalSec: int(s.cfg.CycleInterval / time.Second),
	})
}
