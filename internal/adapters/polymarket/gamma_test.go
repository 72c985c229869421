package polymarket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alejandrodnm/polyagent/internal/adapters/polymarket"
	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/alejandrodnm/polyagent/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emptyFilter() ports.ScanFilter {
	return ports.ScanFilter{MaxMarkets: 100}
}

const gammaFixture = `[
	{
		"conditionId": "0xabc",
		"question": "Will BTC close above $100k?",
		"category": "Crypto",
		"endDateIso": "2026-12-31T00:00:00Z",
		"volume24hr": "50000",
		"active": true,
		"closed": false,
		"resolved": false,
		"clobTokenIds": "[\"tok_yes\", \"tok_no\"]",
		"outcomes": "[\"Yes\", \"No\"]",
		"outcomePrices": "[\"0.5\", \"0.5\"]"
	},
	{
		"conditionId": "0xdef",
		"question": "Incomplete market",
		"category": "Politics",
		"active": true,
		"closed": false,
		"clobTokenIds": "",
		"outcomes": ""
	}
]`

func TestDiscoverMarkets_ParsesAndFiltersIncomplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(gammaFixture))
	}))
	defer srv.Close()

	client := polymarket.NewClient(fastRetryConfig("", srv.URL))
	markets, err := client.DiscoverMarkets(context.Background(), emptyFilter())
	require.NoError(t, err)
	require.Len(t, markets, 1, "the malformed second market must be skipped")

	m := markets[0]
	assert.Equal(t, "0xabc", m.ConditionID)
	assert.Equal(t, domain.CategoryCrypto, m.Category)
	assert.Equal(t, "tok_yes", m.YesToken().TokenID)
	assert.Equal(t, "tok_no", m.NoToken().TokenID)
}

func TestDiscoverMarkets_MinVolumeFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(gammaFixture))
	}))
	defer srv.Close()

	client := polymarket.NewClient(fastRetryConfig("", srv.URL))
	filter := ports.ScanFilter{MaxMarkets: 100, MinVolume24h: domain.NewDecimal(100000)}
	markets, err := client.DiscoverMarkets(context.Background(), filter)
	require.NoError(t, err)
	assert.Empty(t, markets)
}

func TestFetchResolution_ResolvedMarket(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"conditionId":"0xabc","closed":true,"resolved":true,"outcomePrices":"[\"1\", \"0\"]"}]`))
	}))
	defer srv.Close()

	client := polymarket.NewClient(fastRetryConfig("", srv.URL))
	res, found, err := client.FetchResolution(context.Background(), "0xabc")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, res.Closed)
	assert.True(t, res.Resolved)
	assert.True(t, res.YesOutcome.Equal(domain.NewDecimal(1)))
}

func TestFetchResolution_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := polymarket.NewClient(fastRetryConfig("", srv.URL))
	_, found, err := client.FetchResolution(context.Background(), "0xnope")
	require.NoError(t, err)
	assert.False(t, found)
}
