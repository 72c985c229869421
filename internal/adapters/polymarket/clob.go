// clob.go adapts Polymarket's CLOB order-book endpoint.
//
// FetchOrderBooks splits the requested token IDs into batches and fires one
// goroutine per batch; the client's shared rate limiter throttles the
// underlying requests automatically, so no extra semaphore is needed here.
package polymarket

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alejandrodnm/polyagent/internal/domain"
)

const (
	booksPath      = "/books"
	booksBatchSize = 20 // max token_ids per request to /books
)

// FetchOrderBooks fetches order books for the given token IDs via the batch
// /books endpoint, splitting into booksBatchSize-sized requests run
// concurrently.
func (c *Client) FetchOrderBooks(ctx context.Context, tokenIDs []string) (map[string]domain.OrderBookSnapshot, error) {
	if len(tokenIDs) == 0 {
		return map[string]domain.OrderBookSnapshot{}, nil
	}

	batches := splitBatches(tokenIDs, booksBatchSize)

	type batchResult struct {
		books map[string]domain.OrderBookSnapshot
		err   error
	}

	results := make([]batchResult, len(batches))
	var wg sync.WaitGroup
	for i, batch := range batches {
		i, batch := i, batch
		wg.Add(1)
		go func() {
			defer wg.Done()
			books, err := c.fetchBooksBatch(ctx, batch)
			results[i] = batchResult{books: books, err: err}
		}()
	}
	wg.Wait()

	merged := make(map[string]domain.OrderBookSnapshot, len(tokenIDs))
	for i, r := range results {
		if r.err != nil {
			return nil, fmt.Errorf("polymarket: fetch order books batch %d: %w", i, r.err)
		}
		for k, v := range r.books {
			merged[k] = v
		}
	}
	return merged, nil
}

func (c *Client) fetchBooksBatch(ctx context.Context, tokenIDs []string) (map[string]domain.OrderBookSnapshot, error) {
	body := make([]orderBookRequest, len(tokenIDs))
	for i, id := range tokenIDs {
		body[i] = orderBookRequest{TokenID: id}
	}

	var resp []orderBookResponse
	url := c.cfg.CLOBBaseURL + booksPath
	if err := c.post(ctx, url, body, &resp); err != nil {
		return nil, fmt.Errorf("POST /books: %w", err)
	}
	return mapOrderBooks(resp, time.Now()), nil
}

func splitBatches(tokenIDs []string, size int) [][]string {
	if size <= 0 {
		size = booksBatchSize
	}
	batches := make([][]string, 0, (len(tokenIDs)+size-1)/size)
	for i := 0; i < len(tokenIDs); i += size {
		end := i + size
		if end > len(tokenIDs) {
			end = len(tokenIDs)
		}
		batches = append(batches, tokenIDs[i:end])
	}
	return batches
}
