package polymarket_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alejandrodnm/polyagent/internal/adapters/polymarket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const booksFixture = `[
	{"asset_id": "tok_yes", "bids": [{"price":"0.68","size":"100"},{"price":"0.70","size":"50"}], "asks": [{"price":"0.72","size":"40"},{"price":"0.75","size":"60"}]},
	{"asset_id": "tok_no", "bids": [{"price":"0.27","size":"30"}], "asks": [{"price":"0.29","size":"20"}]}
]`

func TestFetchOrderBooks_SortsAndParses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/books", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(booksFixture))
	}))
	defer srv.Close()

	client := polymarket.NewClient(fastRetryConfig(srv.URL, ""))
	books, err := client.FetchOrderBooks(context.Background(), []string{"tok_yes", "tok_no"})
	require.NoError(t, err)
	require.Len(t, books, 2)

	yes := books["tok_yes"]
	require.Len(t, yes.Bids, 2)
	require.Len(t, yes.Asks, 2)
	assert.True(t, yes.Bids[0].Price.GreaterThan(yes.Bids[1].Price), "bids must sort descending")
	assert.True(t, yes.Asks[0].Price.LessThan(yes.Asks[1].Price), "asks must sort ascending")
}

func TestFetchOrderBooks_EmptyInputShortCircuits(t *testing.T) {
	client := polymarket.NewClient(fastRetryConfig("http://unused", ""))
	books, err := client.FetchOrderBooks(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestFetchOrderBooks_SplitsIntoBatches(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]any{})
	}))
	defer srv.Close()

	client := polymarket.NewClient(fastRetryConfig(srv.URL, ""))
	tokenIDs := make([]string, 25)
	for i := range tokenIDs {
		tokenIDs[i] = "tok"
	}
	_, err := client.FetchOrderBooks(context.Background(), tokenIDs)
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load(), "25 tokens at batch size 20 should issue 2 requests")
}
