// Package reasoning implements ports.ReasoningClient against the Anthropic
// Messages API via resty, the same request-building library the pack's
// 0xtitan6-polymarket-mm repo reaches for — used here specifically because
// the per-request timeout and retry middleware resty provides fit a single
// outbound call better than hand-rolling another retry loop next to the
// one already built for the Polymarket adapters.
package reasoning

import (
	"context"
	"fmt"
	"time"

	"github.com/alejandrodnm/polyagent/internal/ports"
	"github.com/go-resty/resty/v2"
)

const defaultEndpoint = "https://api.anthropic.com/v1/messages"

// Client calls the Anthropic Messages API with a single untrusted-delimited
// user turn and returns the model's raw text reply plus token usage.
type Client struct {
	http     *resty.Client
	endpoint string
	apiKey   string
}

// NewClient builds a Client. apiKey is read from the environment by the
// caller (config loading never places secrets in the marshaled struct).
func NewClient(apiKey string) *Client {
	return &Client{
		http:     resty.New().SetTimeout(60 * time.Second).SetRetryCount(2).SetRetryWaitTime(time.Second),
		endpoint: defaultEndpoint,
		apiKey:   apiKey,
	}
}

type messagesRequest struct {
	Model     string           `json:"model"`
	MaxTokens int              `json:"max_tokens"`
	System    string           `json:"system"`
	Messages  []messagePayload `json:"messages"`
}

type messagePayload struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete sends one reasoning-model call and returns its raw text reply
// plus token usage for §4.9's cost accounting.
func (c *Client) Complete(ctx context.Context, req ports.ValuationRequest) (ports.ValuationResponse, error) {
	body := messagesRequest{
		Model:     req.Model,
		MaxTokens: 1024,
		System:    req.SystemPrompt,
		Messages:  []messagePayload{{Role: "user", Content: req.UserPrompt}},
	}

	var parsed messagesResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("x-api-key", c.apiKey).
		SetHeader("anthropic-version", "2023-06-01").
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&parsed).
		Post(c.endpoint)
	if err != nil {
		return ports.ValuationResponse{}, fmt.Errorf("reasoning: request: %w", err)
	}
	if !resp.IsSuccess() {
		return ports.ValuationResponse{}, fmt.Errorf("reasoning: status %d: %s", resp.StatusCode(), resp.String())
	}
	if len(parsed.Content) == 0 {
		return ports.ValuationResponse{}, fmt.Errorf("reasoning: empty content in response")
	}

	return ports.ValuationResponse{
		Content:      parsed.Content[0].Text,
		InputTokens:  parsed.Usage.InputTokens,
		OutputTokens: parsed.Usage.OutputTokens,
	}, nil
}

var _ ports.ReasoningClient = (*Client)(nil)
