package polymarket

import (
	"context"
	"fmt"
	"time"

	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/alejandrodnm/polyagent/internal/ports"
)

const (
	gammaMarketsPath = "/markets"
	gammaPageSize    = 100
	gammaMaxPages    = 20 // hard stop against a misbehaving upstream looping forever
)

// DiscoverMarkets pages through Gamma's active, open markets and applies
// filter client-side (volume floor, resolution-window ceiling, category
// allowlist), stopping once MaxMarkets candidates have been collected.
func (c *Client) DiscoverMarkets(ctx context.Context, filter ports.ScanFilter) ([]domain.Market, error) {
	var out []domain.Market
	now := time.Now()
	maxResolution := time.Duration(filter.MaxResolutionDays) * 24 * time.Hour

	for page := 0; page < gammaMaxPages; page++ {
		url := fmt.Sprintf("%s%s?active=true&closed=false&limit=%d&offset=%d",
			c.cfg.GammaBaseURL, gammaMarketsPath, gammaPageSize, page*gammaPageSize)

		var resp []gammaMarket
		if err := c.get(ctx, url, &resp); err != nil {
			return nil, fmt.Errorf("polymarket: discover markets: %w", err)
		}
		if len(resp) == 0 {
			break
		}

		for _, g := range resp {
			m, ok := mapGammaMarket(g)
			if !ok {
				continue
			}
			if !passesFilter(m, filter, now, maxResolution) {
				continue
			}
			out = append(out, m)
			if filter.MaxMarkets > 0 && len(out) >= filter.MaxMarkets {
				return out, nil
			}
		}

		if len(resp) < gammaPageSize {
			break
		}
	}
	return out, nil
}

func passesFilter(m domain.Market, filter ports.ScanFilter, now time.Time, maxResolution time.Duration) bool {
	if !m.Active {
		return false
	}
	if filter.MinVolume24h.IsPositive() && m.Volume24h.LessThan(filter.MinVolume24h) {
		return false
	}
	if maxResolution > 0 {
		if m.EndDate.IsZero() || m.EndDate.Sub(now) > maxResolution {
			return false
		}
	}
	if len(filter.Categories) > 0 && !containsCategory(filter.Categories, m.Category) {
		return false
	}
	return true
}

func containsCategory(allowed []domain.Category, c domain.Category) bool {
	for _, a := range allowed {
		if a == c {
			return true
		}
	}
	return false
}

// FetchResolution queries Gamma for a market's current resolution state by
// condition_id. The second return is false when Gamma has no record of the
// market at all (distinct from "not yet resolved").
func (c *Client) FetchResolution(ctx context.Context, conditionID string) (ports.MarketResolution, bool, error) {
	url := fmt.Sprintf("%s%s?condition_id=%s", c.cfg.GammaBaseURL, gammaMarketsPath, conditionID)

	var resp []gammaMarket
	if err := c.get(ctx, url, &resp); err != nil {
		return ports.MarketResolution{}, false, fmt.Errorf("polymarket: fetch resolution: %w", err)
	}
	if len(resp) == 0 {
		return ports.MarketResolution{}, false, nil
	}

	g := resp[0]
	prices := decodeStringArray(g.OutcomePrices)
	res := ports.MarketResolution{Closed: g.Closed, Resolved: g.Resolved}
	if len(prices) >= 2 {
		if yes, err := domain.ParseDecimal(prices[0]); err == nil {
			res.YesOutcome = yes
		}
		if no, err := domain.ParseDecimal(prices[1]); err == nil {
			res.NoOutcome = no
		}
	}
	return res, true, nil
}
