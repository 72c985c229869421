package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/polyagent/internal/data"
	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/alejandrodnm/polyagent/internal/pipeline"
	"github.com/alejandrodnm/polyagent/internal/ports"
	"github.com/alejandrodnm/polyagent/internal/risk"
	"github.com/alejandrodnm/polyagent/internal/valuation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMarket struct {
	balance domain.Decimal
	markets []domain.Market
}

func (f *fakeMarket) DiscoverMarkets(ctx context.Context, filter ports.ScanFilter) ([]domain.Market, error) {
	return f.markets, nil
}
func (f *fakeMarket) FetchOrderBooks(ctx context.Context, tokenIDs []string) (map[string]domain.OrderBookSnapshot, error) {
	return map[string]domain.OrderBookSnapshot{}, nil
}
func (f *fakeMarket) PlaceOrder(ctx context.Context, req ports.PlaceOrderRequest) (ports.PlacedOrder, error) {
	return ports.PlacedOrder{Status: ports.OrderRejected}, nil
}
func (f *fakeMarket) Balance(ctx context.Context) (domain.Decimal, error) { return f.balance, nil }
func (f *fakeMarket) FetchResolution(ctx context.Context, conditionID string) (ports.MarketResolution, bool, error) {
	return ports.MarketResolution{}, false, nil
}

var _ ports.MarketClient = (*fakeMarket)(nil)

type fakeLedger struct {
	cycles []domain.Cycle
}

func (l *fakeLedger) AppendCycle(ctx context.Context, c domain.Cycle) error {
	l.cycles = append(l.cycles, c)
	return nil
}
func (l *fakeLedger) LatestCycle(ctx context.Context) (*domain.Cycle, error) {
	if len(l.cycles) == 0 {
		return nil, nil
	}
	last := l.cycles[len(l.cycles)-1]
	return &last, nil
}
func (l *fakeLedger) AllCycles(ctx context.Context) ([]domain.Cycle, error) { return l.cycles, nil }
func (l *fakeLedger) AppendTrade(ctx context.Context, t domain.Trade) (int64, error) {
	return 0, nil
}
func (l *fakeLedger) UpdateTradeResolution(ctx context.Context, tradeID int64, status domain.TradeStatus, pnl domain.Decimal, resolvedAt time.Time) error {
	return nil
}
func (l *fakeLedger) OpenTrades(ctx context.Context) ([]domain.Trade, error) { return nil, nil }
func (l *fakeLedger) ResolvedTrades(ctx context.Context, limit int) ([]domain.Trade, error) {
	return nil, nil
}
func (l *fakeLedger) TradesByMarket(ctx context.Context, marketID string) ([]domain.Trade, error) {
	return nil, nil
}
func (l *fakeLedger) InsertApiCost(ctx context.Context, c domain.ApiCost) error { return nil }
func (l *fakeLedger) TotalApiCost(ctx context.Context) (domain.Decimal, error) {
	return domain.Zero, nil
}
func (l *fakeLedger) TodayApiCost(ctx context.Context) (domain.Decimal, error) {
	return domain.Zero, nil
}
func (l *fakeLedger) ApiCostForCycle(ctx context.Context, cycle int64) (domain.Decimal, error) {
	return domain.Zero, nil
}
func (l *fakeLedger) GetCachedValuation(ctx context.Context, conditionID string, ttl time.Duration) (*domain.ValuationResult, bool, error) {
	return nil, false, nil
}
func (l *fakeLedger) SetCachedValuation(ctx context.Context, conditionID string, v domain.ValuationResult) error {
	return nil
}
func (l *fakeLedger) InsertCalibration(ctx context.Context, r ports.CalibrationRecord) error {
	return nil
}
func (l *fakeLedger) ResolveCalibration(ctx context.Context, marketID string, actualOutcome domain.Decimal) error {
	return nil
}
func (l *fakeLedger) RecentResolvedCalibration(ctx context.Context, lookback int) ([]ports.CalibrationRecord, error) {
	return nil, nil
}
func (l *fakeLedger) Close() error { return nil }

var _ ports.Ledger = (*fakeLedger)(nil)

type recordingAlerts struct {
	events []ports.Event
}

func (a *recordingAlerts) Notify(ctx context.Context, ev ports.Event) error {
	a.events = append(a.events, ev)
	return nil
}

type fakeSnapshotWriter struct {
	snapshots []Snapshot
}

func (w *fakeSnapshotWriter) Write(s Snapshot) { w.snapshots = append(w.snapshots, s) }

func dec(t *testing.T, s string) domain.Decimal {
	t.Helper()
	d, err := domain.ParseDecimal(s)
	require.NoError(t, err)
	return d
}

func newHarness(t *testing.T, balance domain.Decimal) (*Scheduler, *fakeMarket, *fakeLedger, *recordingAlerts, *fakeSnapshotWriter) {
	market := &fakeMarket{balance: balance}
	ledger := &fakeLedger{}
	alerts := &recordingAlerts{}
	portfolio := risk.NewPortfolioManager(risk.PortfolioConfig{MaxTotalExposurePct: dec(t, "0.5"), MaxPositionsPerCategory: 5})
	aggregator := data.NewAggregator()
	valuer := valuation.NewValuationEngine(noopReasoning{}, ledger, "test-model")
	calibration := valuation.NewCalibrationStore(ledger)
	pl := pipeline.New(market, aggregator, valuer, calibration, portfolio, ledger, alerts, pipeline.Config{
		MinEdgeThreshold:   dec(t, "0.05"),
		HighConfidenceEdge: dec(t, "0.06"),
		LowConfidenceEdge:  dec(t, "0.10"),
		MaxSlippagePct:     dec(t, "0.02"),
		Kelly: risk.KellyParams{
			KellyFraction:  dec(t, "0.5"),
			MaxPositionPct: dec(t, "0.06"),
			MinPositionUSD: dec(t, "1"),
		},
	})
	snapshot := &fakeSnapshotWriter{}

	sched := New(Config{
		CycleInterval:         time.Hour,
		DeathBalanceThreshold: dec(t, "0"),
		LowFuelThreshold:      dec(t, "5"),
		ApiReserve:            dec(t, "2"),
		MaxEvaluationsAlive:   10,
		CostLookback:          10,
		DryRun:                true,
	}, market, pl, ledger, alerts, portfolio, snapshot)

	return sched, market, ledger, alerts, snapshot
}

type noopReasoning struct{}

func (noopReasoning) Complete(ctx context.Context, req ports.ValuationRequest) (ports.ValuationResponse, error) {
	return ports.ValuationResponse{Content: `{"fair_probability":0.5,"confidence":0.5,"data_quality":"Low"}`}, nil
}

func TestRun_DryRunSingleCycle(t *testing.T) {
	sched, _, ledger, _, snapshot := newHarness(t, dec(t, "100"))
	require.NoError(t, sched.Run(context.Background()))
	assert.Len(t, ledger.cycles, 1)
	assert.Len(t, snapshot.snapshots, 1)
	assert.Equal(t, domain.StateAlive, ledger.cycles[0].State)
}

func TestRun_DeadBalanceStopsAfterOneCycle(t *testing.T) {
	sched, _, ledger, alerts, _ := newHarness(t, dec(t, "0"))
	require.NoError(t, sched.Run(context.Background()))
	require.Len(t, ledger.cycles, 1)
	assert.Equal(t, domain.StateDead, ledger.cycles[0].State)

	foundDeath := false
	for _, ev := range alerts.events {
		if ev.Type == ports.EventAgentDeath {
			foundDeath = true
		}
	}
	assert.True(t, foundDeath, "death should emit an agent_death alert")
}

func TestRun_StateChangeEmitsAlert(t *testing.T) {
	sched, _, _, alerts, _ := newHarness(t, dec(t, "3"))
	require.NoError(t, sched.Run(context.Background()))

	foundStateChange := false
	for _, ev := range alerts.events {
		if ev.Type == ports.EventStateChange {
			foundStateChange = true
			assert.Equal(t, "LowFuel", ev.Fields["to"])
		}
	}
	assert.True(t, foundStateChange)
}

func TestRecoverCycleNumber_ResumesFromLedger(t *testing.T) {
	sched, _, ledger, _, _ := newHarness(t, dec(t, "100"))
	ledger.cycles = append(ledger.cycles, domain.Cycle{CycleNumber: 41})

	require.NoError(t, sched.recoverCycleNumber(context.Background()))
	assert.Equal(t, int64(42), sched.cycleNumber)
}
