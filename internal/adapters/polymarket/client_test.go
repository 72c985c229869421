package polymarket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alejandrodnm/polyagent/internal/adapters/polymarket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig(clobURL, gammaURL string) polymarket.Config {
	return polymarket.Config{
		CLOBBaseURL:       clobURL,
		GammaBaseURL:      gammaURL,
		RequestsPerSecond: 1000,
		BurstSize:         1000,
		BackoffBaseMs:     1,
		BackoffMaxMs:      5,
		MaxRetries:        2,
	}
}

func TestClient_RetriesOn500ThenSucceeds(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := polymarket.NewClient(fastRetryConfig("", srv.URL))
	markets, err := client.DiscoverMarkets(context.Background(), emptyFilter())
	require.NoError(t, err)
	assert.Empty(t, markets)
	assert.Equal(t, 3, calls)
}

func TestClient_AuthFailureIsNonRetryable(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := polymarket.NewClient(fastRetryConfig("", srv.URL))
	_, err := client.DiscoverMarkets(context.Background(), emptyFilter())
	require.Error(t, err)
	assert.ErrorIs(t, err, polymarket.ErrNonRetryable)
	assert.Equal(t, 1, calls, "non-retryable errors must not be retried")
}

func TestClient_InsufficientBalanceBodyIsNonRetryable(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"insufficient balance for order"}`))
	}))
	defer srv.Close()

	client := polymarket.NewClient(fastRetryConfig(srv.URL, ""))
	_, err := client.FetchOrderBooks(context.Background(), []string{"tok1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, polymarket.ErrNonRetryable)
	assert.Equal(t, 1, calls)
}

func TestClient_ExhaustsRetriesOnPersistentFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := polymarket.NewClient(fastRetryConfig("", srv.URL))
	_, err := client.DiscoverMarkets(context.Background(), emptyFilter())
	require.Error(t, err)
}
