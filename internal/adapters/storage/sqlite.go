// Package storage implements the Ledger port with a single-writer SQLite
// database (pure Go, no CGo), persisting every monetary value as a decimal
// string rather than a binary float (§4.8).
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/alejandrodnm/polyagent/internal/ports"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS cycles (
    cycle_number        INTEGER PRIMARY KEY,
    scanned_count       INTEGER NOT NULL DEFAULT 0,
    opportunity_count   INTEGER NOT NULL DEFAULT 0,
    trade_count         INTEGER NOT NULL DEFAULT 0,
    api_cost            TEXT    NOT NULL DEFAULT '0',
    bankroll            TEXT    NOT NULL DEFAULT '0',
    unrealized_exposure TEXT    NOT NULL DEFAULT '0',
    state               TEXT    NOT NULL DEFAULT 'Alive',
    duration_ms         INTEGER NOT NULL DEFAULT 0,
    started_at          DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    cycle          INTEGER NOT NULL,
    market_id      TEXT    NOT NULL,
    question       TEXT    NOT NULL DEFAULT '',
    direction      TEXT    NOT NULL,
    entry_price    TEXT    NOT NULL,
    size           TEXT    NOT NULL,
    edge_at_entry  TEXT    NOT NULL,
    fair_value     TEXT    NOT NULL,
    confidence     TEXT    NOT NULL,
    kelly_raw      TEXT    NOT NULL,
    kelly_adjusted TEXT    NOT NULL,
    status         TEXT    NOT NULL DEFAULT 'Open',
    pnl            TEXT,
    created_at     DATETIME NOT NULL,
    resolved_at    DATETIME
);

CREATE TABLE IF NOT EXISTS api_costs (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    provider      TEXT    NOT NULL,
    endpoint      TEXT    NOT NULL,
    input_tokens  INTEGER NOT NULL DEFAULT 0,
    output_tokens INTEGER NOT NULL DEFAULT 0,
    cost_usd      TEXT    NOT NULL,
    cycle         INTEGER NOT NULL,
    incurred_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS valuation_cache (
    condition_id     TEXT PRIMARY KEY,
    fair_probability TEXT    NOT NULL,
    confidence       TEXT    NOT NULL,
    reasoning        TEXT    NOT NULL DEFAULT '',
    key_factors      TEXT    NOT NULL DEFAULT '[]',
    data_quality     TEXT    NOT NULL DEFAULT 'Low',
    time_sensitivity TEXT    NOT NULL DEFAULT 'Days',
    cached_at        DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS confidence_calibration (
    id                     INTEGER PRIMARY KEY AUTOINCREMENT,
    market_id              TEXT    NOT NULL,
    claude_confidence      TEXT    NOT NULL,
    fair_value             TEXT    NOT NULL,
    market_price_at_entry  TEXT    NOT NULL,
    resolved               INTEGER NOT NULL DEFAULT 0,
    actual_outcome         TEXT,
    forecast_correct       INTEGER,
    predicted_at           DATETIME NOT NULL,
    resolved_at            DATETIME
);

CREATE INDEX IF NOT EXISTS idx_trades_status   ON trades(status);
CREATE INDEX IF NOT EXISTS idx_trades_market   ON trades(market_id);
CREATE INDEX IF NOT EXISTS idx_apicosts_cycle  ON api_costs(cycle);
CREATE INDEX IF NOT EXISTS idx_apicosts_at     ON api_costs(incurred_at);
CREATE INDEX IF NOT EXISTS idx_calib_resolved  ON confidence_calibration(resolved, resolved_at);
`

// Ledger implements ports.Ledger over a single-writer SQLite connection.
type Ledger struct {
	db *sql.DB
}

// NewLedger opens (or creates) the database at path and applies the schema.
func NewLedger(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewLedger: open %q: %w", path, err)
	}
	// SQLite is single-writer; one connection avoids SQLITE_BUSY under our
	// own concurrent access rather than papering over it with retries.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewLedger: apply schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error { return l.db.Close() }

// --- cycles ---

func (l *Ledger) AppendCycle(ctx context.Context, c domain.Cycle) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO cycles
			(cycle_number, scanned_count, opportunity_count, trade_count,
			 api_cost, bankroll, unrealized_exposure, state, duration_ms, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(cycle_number) DO UPDATE SET
			scanned_count       = excluded.scanned_count,
			opportunity_count   = excluded.opportunity_count,
			trade_count         = excluded.trade_count,
			api_cost            = excluded.api_cost,
			bankroll            = excluded.bankroll,
			unrealized_exposure = excluded.unrealized_exposure,
			state               = excluded.state,
			duration_ms         = excluded.duration_ms`,
		c.CycleNumber, c.ScannedCount, c.OpportunityCount, c.TradeCount,
		c.ApiCost.String(), c.Bankroll.String(), c.UnrealizedExposure.String(),
		c.State.String(), c.Duration.Milliseconds(), c.StartedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage.AppendCycle: %w", err)
	}
	return nil
}

func (l *Ledger) LatestCycle(ctx context.Context) (*domain.Cycle, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT cycle_number, scanned_count, opportunity_count, trade_count,
		       api_cost, bankroll, unrealized_exposure, state, duration_ms, started_at
		FROM cycles ORDER BY cycle_number DESC LIMIT 1`)
	c, err := scanCycle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage.LatestCycle: %w", err)
	}
	return c, nil
}

func (l *Ledger) AllCycles(ctx context.Context) ([]domain.Cycle, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT cycle_number, scanned_count, opportunity_count, trade_count,
		       api_cost, bankroll, unrealized_exposure, state, duration_ms, started_at
		FROM cycles ORDER BY cycle_number ASC`)
	if err != nil {
		return nil, fmt.Errorf("storage.AllCycles: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Cycle
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.AllCycles: scan: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCycle(r rowScanner) (*domain.Cycle, error) {
	var c domain.Cycle
	var apiCost, bankroll, unrealized, state string
	var durationMs int64
	var startedAt time.Time

	if err := r.Scan(&c.CycleNumber, &c.ScannedCount, &c.OpportunityCount, &c.TradeCount,
		&apiCost, &bankroll, &unrealized, &state, &durationMs, &startedAt); err != nil {
		return nil, err
	}

	var err error
	if c.ApiCost, err = domain.ParseDecimal(apiCost); err != nil {
		return nil, err
	}
	if c.Bankroll, err = domain.ParseDecimal(bankroll); err != nil {
		return nil, err
	}
	if c.UnrealizedExposure, err = domain.ParseDecimal(unrealized); err != nil {
		return nil, err
	}
	c.State = parseAgentState(state)
	c.Duration = time.Duration(durationMs) * time.Millisecond
	c.StartedAt = startedAt
	return &c, nil
}

func parseAgentState(s string) domain.AgentState {
	switch s {
	case "LowFuel":
		return domain.StateLowFuel
	case "CriticalSurvival":
		return domain.StateCriticalSurvival
	case "Dead":
		return domain.StateDead
	default:
		return domain.StateAlive
	}
}

// --- trades ---

func (l *Ledger) AppendTrade(ctx context.Context, t domain.Trade) (int64, error) {
	res, err := l.db.ExecContext(ctx, `
		INSERT INTO trades
			(cycle, market_id, question, direction, entry_price, size,
			 edge_at_entry, fair_value, confidence, kelly_raw, kelly_adjusted,
			 status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Cycle, t.MarketID, t.Question, t.Direction.String(), t.EntryPrice.String(), t.Size.String(),
		t.EdgeAtEntry.String(), t.FairValue.String(), t.Confidence.String(),
		t.KellyRaw.String(), t.KellyAdjusted.String(), t.Status.String(), t.CreatedAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("storage.AppendTrade: %w", err)
	}
	return res.LastInsertId()
}

func (l *Ledger) UpdateTradeResolution(ctx context.Context, tradeID int64, status domain.TradeStatus, pnl domain.Decimal, resolvedAt time.Time) error {
	_, err := l.db.ExecContext(ctx, `
		UPDATE trades SET status = ?, pnl = ?, resolved_at = ?
		WHERE id = ? AND status = 'Open'`,
		status.String(), pnl.String(), resolvedAt.UTC(), tradeID,
	)
	if err != nil {
		return fmt.Errorf("storage.UpdateTradeResolution: %w", err)
	}
	return nil
}

const tradeColumns = `id, cycle, market_id, question, direction, entry_price, size,
	edge_at_entry, fair_value, confidence, kelly_raw, kelly_adjusted, status, pnl, created_at, resolved_at`

func (l *Ledger) OpenTrades(ctx context.Context) ([]domain.Trade, error) {
	return l.queryTrades(ctx,
		`SELECT `+tradeColumns+` FROM trades WHERE status = 'Open' ORDER BY created_at ASC`)
}

func (l *Ledger) ResolvedTrades(ctx context.Context, limit int) ([]domain.Trade, error) {
	return l.queryTrades(ctx,
		`SELECT `+tradeColumns+` FROM trades WHERE status != 'Open' ORDER BY resolved_at DESC LIMIT ?`, limit)
}

func (l *Ledger) TradesByMarket(ctx context.Context, marketID string) ([]domain.Trade, error) {
	return l.queryTrades(ctx,
		`SELECT `+tradeColumns+` FROM trades WHERE market_id = ? ORDER BY created_at ASC`, marketID)
}

func (l *Ledger) queryTrades(ctx context.Context, query string, args ...any) ([]domain.Trade, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: query trades: %w", err)
	}
	defer rows.Close()

	var out []domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan trade: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTrade(r rowScanner) (domain.Trade, error) {
	var t domain.Trade
	var direction, entryPrice, size, edge, fairValue, confidence, kellyRaw, kellyAdj, status string
	var pnl sql.NullString
	var resolvedAt sql.NullTime

	if err := r.Scan(&t.ID, &t.Cycle, &t.MarketID, &t.Question, &direction, &entryPrice, &size,
		&edge, &fairValue, &confidence, &kellyRaw, &kellyAdj, &status, &pnl, &t.CreatedAt, &resolvedAt); err != nil {
		return domain.Trade{}, err
	}

	var err error
	t.Direction = parseSide(direction)
	if t.EntryPrice, err = domain.ParseDecimal(entryPrice); err != nil {
		return domain.Trade{}, err
	}
	if t.Size, err = domain.ParseDecimal(size); err != nil {
		return domain.Trade{}, err
	}
	if t.EdgeAtEntry, err = domain.ParseDecimal(edge); err != nil {
		return domain.Trade{}, err
	}
	if t.FairValue, err = domain.ParseDecimal(fairValue); err != nil {
		return domain.Trade{}, err
	}
	if t.Confidence, err = domain.ParseDecimal(confidence); err != nil {
		return domain.Trade{}, err
	}
	if t.KellyRaw, err = domain.ParseDecimal(kellyRaw); err != nil {
		return domain.Trade{}, err
	}
	if t.KellyAdjusted, err = domain.ParseDecimal(kellyAdj); err != nil {
		return domain.Trade{}, err
	}
	t.Status = parseTradeStatus(status)
	if pnl.Valid {
		p, err := domain.ParseDecimal(pnl.String)
		if err != nil {
			return domain.Trade{}, err
		}
		t.PnL = &p
	}
	if resolvedAt.Valid {
		r := resolvedAt.Time
		t.ResolvedAt = &r
	}
	return t, nil
}

func parseSide(s string) domain.Side {
	if s == "No" {
		return domain.SideNo
	}
	return domain.SideYes
}

func parseTradeStatus(s string) domain.TradeStatus {
	switch s {
	case "ResolvedWin":
		return domain.TradeResolvedWin
	case "ResolvedLoss":
		return domain.TradeResolvedLoss
	case "Rejected":
		return domain.TradeRejected
	default:
		return domain.TradeOpen
	}
}

// --- api costs ---

func (l *Ledger) InsertApiCost(ctx context.Context, c domain.ApiCost) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO api_costs (provider, endpoint, input_tokens, output_tokens, cost_usd, cycle, incurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.Provider, c.Endpoint, c.InputTokens, c.OutputTokens, c.CostUSD.String(), c.Cycle, c.IncurredAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage.InsertApiCost: %w", err)
	}
	return nil
}

func (l *Ledger) TotalApiCost(ctx context.Context) (domain.Decimal, error) {
	return l.sumApiCost(ctx, `SELECT COALESCE(SUM(CAST(cost_usd AS REAL)), 0) FROM api_costs`)
}

func (l *Ledger) TodayApiCost(ctx context.Context) (domain.Decimal, error) {
	return l.sumApiCost(ctx,
		`SELECT COALESCE(SUM(CAST(cost_usd AS REAL)), 0) FROM api_costs WHERE date(incurred_at) = date('now')`)
}

func (l *Ledger) ApiCostForCycle(ctx context.Context, cycle int64) (domain.Decimal, error) {
	return l.sumApiCostArgs(ctx, `SELECT COALESCE(SUM(CAST(cost_usd AS REAL)), 0) FROM api_costs WHERE cycle = ?`, cycle)
}

func (l *Ledger) sumApiCost(ctx context.Context, query string) (domain.Decimal, error) {
	return l.sumApiCostArgs(ctx, query)
}

func (l *Ledger) sumApiCostArgs(ctx context.Context, query string, args ...any) (domain.Decimal, error) {
	var total float64
	if err := l.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return domain.Zero, fmt.Errorf("storage: sum api cost: %w", err)
	}
	return domain.NewDecimal(total), nil
}

// --- valuation cache ---

func (l *Ledger) GetCachedValuation(ctx context.Context, conditionID string, ttl time.Duration) (*domain.ValuationResult, bool, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT fair_probability, confidence, reasoning, data_quality, time_sensitivity, cached_at
		FROM valuation_cache WHERE condition_id = ?`, conditionID)

	var fairProb, confidence, reasoning, quality, sensitivity string
	var cachedAt time.Time
	if err := row.Scan(&fairProb, &confidence, &reasoning, &quality, &sensitivity, &cachedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("storage.GetCachedValuation: %w", err)
	}

	if time.Since(cachedAt) > ttl {
		return nil, false, nil
	}

	fp, err := domain.ParseDecimal(fairProb)
	if err != nil {
		return nil, false, err
	}
	cf, err := domain.ParseDecimal(confidence)
	if err != nil {
		return nil, false, err
	}

	dq := domain.DataQualityLow
	switch quality {
	case domain.DataQualityHigh.String():
		dq = domain.DataQualityHigh
	case domain.DataQualityMedium.String():
		dq = domain.DataQualityMedium
	}

	return &domain.ValuationResult{
		FairProbability: fp,
		Confidence:      cf,
		Reasoning:       reasoning,
		DataQuality:     dq,
		TimeSensitivity: domain.ParseTimeSensitivity(sensitivity),
	}, true, nil
}

func (l *Ledger) SetCachedValuation(ctx context.Context, conditionID string, v domain.ValuationResult) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO valuation_cache
			(condition_id, fair_probability, confidence, reasoning, data_quality, time_sensitivity, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(condition_id) DO UPDATE SET
			fair_probability = excluded.fair_probability,
			confidence       = excluded.confidence,
			reasoning        = excluded.reasoning,
			data_quality     = excluded.data_quality,
			time_sensitivity = excluded.time_sensitivity,
			cached_at        = excluded.cached_at`,
		conditionID, v.FairProbability.String(), v.Confidence.String(), v.Reasoning,
		v.DataQuality.String(), v.TimeSensitivity.String(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage.SetCachedValuation: %w", err)
	}
	return nil
}

// --- calibration ---

func (l *Ledger) InsertCalibration(ctx context.Context, r ports.CalibrationRecord) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO confidence_calibration
			(market_id, claude_confidence, fair_value, market_price_at_entry, resolved, predicted_at)
		VALUES (?, ?, ?, ?, 0, ?)`,
		r.MarketID, r.ClaudeConfidence.String(), r.FairValue.String(), r.MarketPriceAtEntry.String(), r.PredictedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage.InsertCalibration: %w", err)
	}
	return nil
}

func (l *Ledger) ResolveCalibration(ctx context.Context, marketID string, actualOutcome domain.Decimal) error {
	_, err := l.db.ExecContext(ctx, `
		UPDATE confidence_calibration
		SET resolved = 1,
		    actual_outcome = ?,
		    forecast_correct = CASE
		        WHEN CAST(fair_value AS REAL) > 0.5 AND CAST(? AS REAL) >= 0.5 THEN 1
		        WHEN CAST(fair_value AS REAL) < 0.5 AND CAST(? AS REAL) < 0.5 THEN 1
		        ELSE 0 END,
		    resolved_at = ?
		WHERE id = (
		    SELECT id FROM confidence_calibration
		    WHERE market_id = ? AND resolved = 0
		    ORDER BY predicted_at DESC, id DESC LIMIT 1)`,
		actualOutcome.String(), actualOutcome.String(), actualOutcome.String(), time.Now().UTC(), marketID,
	)
	if err != nil {
		return fmt.Errorf("storage.ResolveCalibration: %w", err)
	}
	return nil
}

func (l *Ledger) RecentResolvedCalibration(ctx context.Context, lookback int) ([]ports.CalibrationRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, market_id, claude_confidence, fair_value, market_price_at_entry,
		       resolved, actual_outcome, forecast_correct, predicted_at, resolved_at
		FROM confidence_calibration
		WHERE resolved = 1
		ORDER BY resolved_at DESC LIMIT ?`, lookback)
	if err != nil {
		return nil, fmt.Errorf("storage.RecentResolvedCalibration: query: %w", err)
	}
	defer rows.Close()

	var out []ports.CalibrationRecord
	for rows.Next() {
		var rec ports.CalibrationRecord
		var confidence, fairValue, marketPrice string
		var resolved int
		var actualOutcome sql.NullString
		var forecastCorrect sql.NullInt64
		var resolvedAt sql.NullTime

		if err := rows.Scan(&rec.ID, &rec.MarketID, &confidence, &fairValue, &marketPrice,
			&resolved, &actualOutcome, &forecastCorrect, &rec.PredictedAt, &resolvedAt); err != nil {
			return nil, fmt.Errorf("storage.RecentResolvedCalibration: scan: %w", err)
		}

		var perr error
		if rec.ClaudeConfidence, perr = domain.ParseDecimal(confidence); perr != nil {
			return nil, perr
		}
		if rec.FairValue, perr = domain.ParseDecimal(fairValue); perr != nil {
			return nil, perr
		}
		if rec.MarketPriceAtEntry, perr = domain.ParseDecimal(marketPrice); perr != nil {
			return nil, perr
		}
		rec.Resolved = resolved == 1
		if actualOutcome.Valid {
			d, perr := domain.ParseDecimal(actualOutcome.String)
			if perr != nil {
				return nil, perr
			}
			rec.ActualOutcome = &d
		}
		if forecastCorrect.Valid {
			b := forecastCorrect.Int64 == 1
			rec.ForecastCorrect = &b
		}
		if resolvedAt.Valid {
			r := resolvedAt.Time
			rec.ResolvedAt = &r
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

var _ ports.Ledger = (*Ledger)(nil)
