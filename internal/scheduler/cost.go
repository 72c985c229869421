package scheduler

import "github.com/alejandrodnm/polyagent/internal/domain"

// Fixed per-cycle cost terms (§4.9): a flat gas allowance and an amortized
// share of fixed infra (VPS) cost. Only the API-cost term varies cycle to
// cycle.
var (
	gasCost = mustDecimal("0.0001")
	vpsCost = mustDecimal("0.001")

	// defaultNextCycleCost is charged when there is no cycle history to
	// average over: a flat 0.01, close to the 0.0105 one reasoning-model call
	// costs at the default token budget.
	defaultNextCycleCost = mustDecimal("0.01")
)

func mustDecimal(s string) domain.Decimal {
	d, err := domain.ParseDecimal(s)
	if err != nil {
		panic("scheduler: bad decimal literal " + s)
	}
	return d
}

// CycleCosts breaks a single cycle's operating cost into its three
// components (§4.9).
type CycleCosts struct {
	ApiCost domain.Decimal
	GasCost domain.Decimal
	VpsCost domain.Decimal
}

// NewCycleCosts builds a CycleCosts for one cycle's observed API spend.
func NewCycleCosts(apiCost domain.Decimal) CycleCosts {
	return CycleCosts{ApiCost: apiCost, GasCost: gasCost, VpsCost: vpsCost}
}

// Total sums the three cost components.
func (c CycleCosts) Total() domain.Decimal {
	return c.ApiCost.Add(c.GasCost).Add(c.VpsCost)
}

// EstimateNextCycleCost projects the upcoming cycle's total cost from recent
// history: with no prior cycles it falls back to defaultNextCycleCost (one
// reasoning-model call), otherwise it averages the last `lookback` cycles'
// API cost and adds the two flat terms.
func EstimateNextCycleCost(recentApiCosts []domain.Decimal) domain.Decimal {
	if len(recentApiCosts) == 0 {
		return defaultNextCycleCost
	}
	return averageApiCost(recentApiCosts).Add(gasCost).Add(vpsCost)
}

// BurnRate is the average total cost per cycle over the agent's full
// lifetime, used for reporting rather than the survival decision itself.
func BurnRate(allApiCosts []domain.Decimal) domain.Decimal {
	if len(allApiCosts) == 0 {
		return domain.Zero
	}
	return averageApiCost(allApiCosts).Add(gasCost).Add(vpsCost)
}

func averageApiCost(costs []domain.Decimal) domain.Decimal {
	sum := domain.Zero
	for _, c := range costs {
		sum = sum.Add(c)
	}
	return sum.Div(domain.NewDecimal(float64(len(costs))))
}

// SurvivalInputs bundles the three quantities the state-transition rule
// (§4.1) reads every cycle.
type SurvivalInputs struct {
	WalletBalance      domain.Decimal
	UnrealizedExposure domain.Decimal
	NextCycleCost      domain.Decimal
	DeathThreshold     domain.Decimal
	ApiReserve         domain.Decimal
	LowFuelThreshold   domain.Decimal
}

// EvaluateSurvival applies the first-match-wins state rule from §4.1. Note
// that unrealized exposure only ever rescues a wallet from Dead — the
// CriticalSurvival and LowFuel checks below it read WalletBalance alone, so
// a wallet that is flush with unrealized PnL but out of spendable cash still
// down-shifts to CriticalSurvival.
func EvaluateSurvival(in SurvivalInputs) domain.AgentState {
	effectiveBalance := in.WalletBalance.Add(in.UnrealizedExposure)
	if effectiveBalance.LessThanOrEqual(in.DeathThreshold) {
		return domain.StateDead
	}
	if in.WalletBalance.LessThan(in.NextCycleCost.Add(in.ApiReserve)) {
		return domain.StateCriticalSurvival
	}
	if in.WalletBalance.LessThan(in.LowFuelThreshold) {
		return domain.StateLowFuel
	}
	return domain.StateAlive
}
