package reasoning

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alejandrodnm/polyagent/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplete_ParsesContentAndUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		var body messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-sonnet-4-5", body.Model)
		assert.Len(t, body.Messages, 1)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(messagesResponse{
			Content: []struct {
				Text string `json:"text"`
			}{{Text: `{"fair_probability": 0.6}`}},
			Usage: struct {
				InputTokens  int `json:"input_tokens"`
				OutputTokens int `json:"output_tokens"`
			}{InputTokens: 120, OutputTokens: 40},
		})
	}))
	defer srv.Close()

	c := NewClient("test-key")
	c.endpoint = srv.URL

	resp, err := c.Complete(context.Background(), ports.ValuationRequest{
		SystemPrompt: "sys",
		UserPrompt:   "user",
		Model:        "claude-sonnet-4-5",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"fair_probability": 0.6}`, resp.Content)
	assert.Equal(t, 120, resp.InputTokens)
	assert.Equal(t, 40, resp.OutputTokens)
}

func TestComplete_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("rate limited"))
	}))
	defer srv.Close()

	c := NewClient("test-key")
	c.endpoint = srv.URL
	c.http.SetRetryCount(0)

	_, err := c.Complete(context.Background(), ports.ValuationRequest{Model: "m"})
	assert.Error(t, err)
}

func TestComplete_EmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(messagesResponse{})
	}))
	defer srv.Close()

	c := NewClient("test-key")
	c.endpoint = srv.URL

	_, err := c.Complete(context.Background(), ports.ValuationRequest{Model: "m"})
	assert.Error(t, err)
}
