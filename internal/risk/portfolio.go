package risk

import (
	"sync"

	"github.com/alejandrodnm/polyagent/internal/domain"
)

// maxSpread is the hard constraint-check ceiling (§4.5); distinct from the
// scanner's configurable max_spread_pct filter.
var maxSpread = mustDecimal("0.05")

// PortfolioConfig bundles the config-driven concentration limits.
type PortfolioConfig struct {
	MaxTotalExposurePct     domain.Decimal
	MaxPositionsPerCategory int
}

// PortfolioManager tracks open positions in memory and enforces
// concentration limits (§4.5). The cycle goroutine adds and reads positions
// while the resolution sweep goroutine removes them via OnResolution; a
// plain mutex (not RWMutex) serializes every access.
type PortfolioManager struct {
	mu        sync.Mutex
	positions []domain.Position
	cfg       PortfolioConfig
}

// NewPortfolioManager builds an empty manager with the given limits.
func NewPortfolioManager(cfg PortfolioConfig) *PortfolioManager {
	return &PortfolioManager{cfg: cfg}
}

// Exposure returns the sum of every open position's SizeUSD.
func (pm *PortfolioManager) Exposure() domain.Decimal {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.exposureLocked()
}

func (pm *PortfolioManager) exposureLocked() domain.Decimal {
	total := domain.Zero
	for _, p := range pm.positions {
		total = total.Add(p.SizeUSD)
	}
	return total
}

func (pm *PortfolioManager) categoryCountLocked(cat domain.Category) int {
	n := 0
	for _, p := range pm.positions {
		if p.Category == cat {
			n++
		}
	}
	return n
}

func (pm *PortfolioManager) hasMarketLocked(marketID string) bool {
	for _, p := range pm.positions {
		if p.MarketID == marketID {
			return true
		}
	}
	return false
}

// ConstraintViolation names which check failed, if any.
type ConstraintViolation int

const (
	NoViolation ConstraintViolation = iota
	ViolationExposure
	ViolationCategoryCount
	ViolationDuplicateMarket
	ViolationSpread
)

// CheckConstraints evaluates the four hard checks in §4.5, first-match-wins.
func (pm *PortfolioManager) CheckConstraints(marketID string, category domain.Category, sizeUSD, bankroll, bookSpread domain.Decimal) ConstraintViolation {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	limit := bankroll.Mul(pm.cfg.MaxTotalExposurePct)
	if pm.exposureLocked().Add(sizeUSD).GreaterThan(limit) {
		return ViolationExposure
	}
	if pm.categoryCountLocked(category) >= pm.cfg.MaxPositionsPerCategory {
		return ViolationCategoryCount
	}
	if pm.hasMarketLocked(marketID) {
		return ViolationDuplicateMarket
	}
	if bookSpread.GreaterThan(maxSpread) {
		return ViolationSpread
	}
	return NoViolation
}

// AdjustSize shrinks a requested size to the portfolio's remaining capacity.
func (pm *PortfolioManager) AdjustSize(requested, bankroll domain.Decimal) domain.Decimal {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	remaining := bankroll.Mul(pm.cfg.MaxTotalExposurePct).Sub(pm.exposureLocked())
	if remaining.LessThan(domain.Zero) {
		remaining = domain.Zero
	}
	if requested.LessThan(remaining) {
		return requested
	}
	return remaining
}

// OnFill appends a new open position.
func (pm *PortfolioManager) OnFill(p domain.Position) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.positions = append(pm.positions, p)
}

// OnResolution removes the position for marketID, if one is open.
func (pm *PortfolioManager) OnResolution(marketID string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	for i, p := range pm.positions {
		if p.MarketID == marketID {
			pm.positions = append(pm.positions[:i], pm.positions[i+1:]...)
			return
		}
	}
}

// Positions returns a snapshot copy of the open positions.
func (pm *PortfolioManager) Positions() []domain.Position {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	out := make([]domain.Position, len(pm.positions))
	copy(out, pm.positions)
	return out
}
