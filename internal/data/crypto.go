// Package data implements the concrete DataSource adapters and the
// DataAggregator that fans requests out to them in parallel.
package data

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/alejandrodnm/polyagent/internal/ports"
	"github.com/go-resty/resty/v2"
)

// trackedCoins mirrors the original agent's CoinGecko coverage.
var trackedCoins = []string{"bitcoin", "ethereum", "solana", "dogecoin", "ripple"}

// CryptoSource polls CoinGecko for top-coin prices to support crypto markets.
type CryptoSource struct {
	client *resty.Client
}

// NewCryptoSource builds a CryptoSource with a 10s request timeout.
func NewCryptoSource() *CryptoSource {
	return &CryptoSource{client: resty.New().SetTimeout(10 * time.Second)}
}

type coinGeckoPrice struct {
	ID                        string  `json:"id"`
	Symbol                    string  `json:"symbol"`
	Name                      string  `json:"name"`
	CurrentPrice              float64 `json:"current_price"`
	MarketCap                 float64 `json:"market_cap"`
	TotalVolume               float64 `json:"total_volume"`
	High24h                   float64 `json:"high_24h"`
	Low24h                    float64 `json:"low_24h"`
	PriceChangePercentage24h  float64 `json:"price_change_percentage_24h"`
	PriceChangePercentage7dIn float64 `json:"price_change_percentage_7d_in_currency"`
	ATH                       float64 `json:"ath"`
	ATHChangePercentage       float64 `json:"ath_change_percentage"`
}

func (s *CryptoSource) Fetch(ctx context.Context, query ports.DataQuery) ([]domain.DataPoint, error) {
	var prices []coinGeckoPrice
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"vs_currency":            "usd",
			"ids":                    strings.Join(trackedCoins, ","),
			"order":                  "market_cap_desc",
			"sparkline":              "false",
			"price_change_percentage": "24h,7d",
		}).
		SetResult(&prices).
		Get("https://api.coingecko.com/api/v3/coins/markets")
	if err != nil {
		return nil, fmt.Errorf("data/crypto: coingecko request: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("data/crypto: coingecko returned %d", resp.StatusCode())
	}

	now := time.Now()
	points := make([]domain.DataPoint, 0, len(prices))
	for _, coin := range prices {
		payload, err := json.Marshal(coin)
		if err != nil {
			return nil, fmt.Errorf("data/crypto: marshal payload: %w", err)
		}

		confidence := domain.NewDecimal(0.80)
		if coin.MarketCap > 10_000_000_000 {
			confidence = domain.NewDecimal(0.95)
		}

		points = append(points, domain.DataPoint{
			Source:      "coingecko",
			Category:    domain.CategoryCrypto,
			Timestamp:   now,
			Payload:     payload,
			Confidence:  confidence,
			RelevanceTo: relevantCryptoMarkets(coin, query.Markets),
		})
	}
	return points, nil
}

func relevantCryptoMarkets(coin coinGeckoPrice, markets []ports.MarketRef) []string {
	nameLower := strings.ToLower(coin.Name)
	symbolLower := strings.ToLower(coin.Symbol)

	var relevant []string
	for _, m := range markets {
		q := strings.ToLower(m.Question)
		if strings.Contains(q, nameLower) ||
			strings.Contains(q, symbolLower) ||
			(symbolLower == "btc" && strings.Contains(q, "bitcoin")) ||
			(nameLower == "bitcoin" && strings.Contains(q, "btc")) ||
			(nameLower == "ethereum" && strings.Contains(q, "eth")) {
			relevant = append(relevant, m.ConditionID)
		}
	}
	return relevant
}

func (s *CryptoSource) Category() domain.Category { return domain.CategoryCrypto }

// FreshnessWindow is short: crypto prices move fast.
func (s *CryptoSource) FreshnessWindow() time.Duration { return 2 * time.Minute }

func (s *CryptoSource) Name() string { return "coingecko_crypto" }

var _ ports.DataSource = (*CryptoSource)(nil)
