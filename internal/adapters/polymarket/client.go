// Package polymarket adapts the Polymarket CLOB and Gamma REST APIs to the
// ports.MarketClient interface: discovery, order books, order placement
// (paper-simulated), balance, and resolution polling.
package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultCLOBBase  = "https://clob.polymarket.com"
	defaultGammaBase = "https://gamma-api.polymarket.com"
)

// Config holds the HTTP/rate-limit knobs normally sourced from the
// rate_limit and polymarket sections of the agent's YAML config.
type Config struct {
	CLOBBaseURL       string
	GammaBaseURL      string
	RequestsPerSecond float64
	BurstSize         int
	BackoffBaseMs     int
	BackoffMaxMs      int
	MaxRetries        int
}

func (c Config) withDefaults() Config {
	if c.CLOBBaseURL == "" {
		c.CLOBBaseURL = defaultCLOBBase
	}
	if c.GammaBaseURL == "" {
		c.GammaBaseURL = defaultGammaBase
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 10
	}
	if c.BurstSize <= 0 {
		c.BurstSize = 10
	}
	if c.BackoffBaseMs <= 0 {
		c.BackoffBaseMs = 1000
	}
	if c.BackoffMaxMs <= 0 {
		c.BackoffMaxMs = 30_000
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	return c
}

// ErrNonRetryable wraps a failure the retry loop must not retry: an
// authentication failure or a real balance/insufficient-funds rejection.
var ErrNonRetryable = errors.New("polymarket: non-retryable error")

// Client is the shared HTTP transport for the Gamma and CLOB adapters. It
// rate-limits every outbound call and retries transient failures with
// exponential backoff and jitter, matching the cycle loop's single outbound
// rate limiter.
type Client struct {
	http    *http.Client
	cfg     Config
	limiter *rate.Limiter
}

// NewClient builds a Client against the given config, falling back to
// Polymarket's production hosts and conservative rate limits when fields are
// left zero.
func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
	}
}

func (c *Client) get(ctx context.Context, url string, out any) error {
	return c.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}, out)
}

func (c *Client) post(ctx context.Context, url string, body, out any) error {
	return c.doWithRetry(ctx, func() (*http.Request, error) {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return req, nil
	}, out)
}

// doWithRetry runs buildReq and re-issues the request with exponential
// backoff on transient failures (429, 5xx, network errors). Responses
// classified as non-retryable (§7: auth failure, insufficient balance) are
// returned immediately wrapped in ErrNonRetryable.
func (c *Client) doWithRetry(ctx context.Context, buildReq func() (*http.Request, error), out any) error {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := buildReq()
		if err != nil {
			return err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if attempt == c.cfg.MaxRetries {
				return fmt.Errorf("request failed after %d retries: %w", c.cfg.MaxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("read response body: %w", readErr)
		}

		if nonRetryable, reason := classify(resp.StatusCode, body); nonRetryable {
			return fmt.Errorf("%w: %s", ErrNonRetryable, reason)
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("upstream status %d", resp.StatusCode)
			if attempt == c.cfg.MaxRetries {
				return fmt.Errorf("request failed after %d retries: %w", c.cfg.MaxRetries, lastErr)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		if out != nil {
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries: %w", c.cfg.MaxRetries, lastErr)
}

// classify reports whether a response must not be retried, per §7's
// taxonomy: credential failures (401/403) and genuine balance rejections
// are terminal; everything else (429, 5xx, other 4xx) is left to the caller
// or the retry loop.
func classify(status int, body []byte) (bool, string) {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return true, fmt.Sprintf("auth failure (status %d)", status)
	}
	lower := strings.ToLower(string(body))
	if strings.Contains(lower, "insufficient") || strings.Contains(lower, "balance") || strings.Contains(lower, "auth") {
		return true, strings.TrimSpace(string(body))
	}
	return false, ""
}

// sleep waits out an exponential backoff with full jitter, capped at
// BackoffMaxMs, respecting ctx cancellation.
func (c *Client) sleep(ctx context.Context, attempt int) {
	backoff := float64(c.cfg.BackoffBaseMs) * math.Pow(2, float64(attempt))
	if backoff > float64(c.cfg.BackoffMaxMs) {
		backoff = float64(c.cfg.BackoffMaxMs)
	}
	jittered := time.Duration(backoff*(0.5+rand.Float64()*0.5)) * time.Millisecond
	select {
	case <-time.After(jittered):
	case <-ctx.Done():
	}
}
