package ports

import "context"

// ValuationRequest is the fully-assembled prompt plus bookkeeping metadata
// for one reasoning-model call.
type ValuationRequest struct {
	SystemPrompt string
	UserPrompt   string
	Model        string
}

// ValuationResponse is the raw model reply plus the token counts needed to
// price the call (§4.9).
type ValuationResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
}

// ReasoningClient is the outbound adapter to the external reasoning model.
// ValuationEngine is the only caller; this seam exists so tests can supply a
// canned responder instead of hitting a network endpoint.
type ReasoningClient interface {
	Complete(ctx context.Context, req ValuationRequest) (ValuationResponse, error)
}
