package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/alejandrodnm/polyagent/internal/ports"
	"github.com/go-resty/resty/v2"
)

// Discord posts Events to a Discord incoming webhook as formatted content
// messages. Delivery is fire-and-forget relative to the cycle: a failed
// webhook POST is reported back to the caller but never blocks trading.
type Discord struct {
	client     *resty.Client
	webhookURL string
}

// NewDiscord builds a Discord channel against one webhook URL.
func NewDiscord(webhookURL string) *Discord {
	return &Discord{
		client:     resty.New().SetTimeout(8 * time.Second),
		webhookURL: webhookURL,
	}
}

// Notify POSTs a plain-content message summarizing the event. Discord
// webhooks reply 204 No Content on success.
func (d *Discord) Notify(ctx context.Context, ev ports.Event) error {
	resp, err := d.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{"content": formatDiscordMessage(ev)}).
		Post(d.webhookURL)
	if err != nil {
		return fmt.Errorf("discord: post webhook: %w", err)
	}
	if resp.StatusCode() != 204 && !resp.IsSuccess() {
		return fmt.Errorf("discord: webhook returned %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

func formatDiscordMessage(ev ports.Event) string {
	switch ev.Type {
	case ports.EventTradePlaced:
		return fmt.Sprintf("📈 trade placed: %v %v size=$%v entry=%v",
			ev.Fields["market_id"], ev.Fields["side"], ev.Fields["size_usd"], ev.Fields["entry_price"])
	case ports.EventTradeResolved:
		return fmt.Sprintf("✅ resolved: %v pnl=%v", ev.Fields["market_id"], ev.Fields["pnl"])
	case ports.EventStateChange:
		return fmt.Sprintf("⚠️ state change: %v -> %v (wallet=%v)",
			ev.Fields["from"], ev.Fields["to"], ev.Fields["wallet_balance"])
	case ports.EventBankrollMilestone:
		return fmt.Sprintf("🎉 bankroll milestone: %v", ev.Fields["bankroll"])
	case ports.EventDailySummary:
		return fmt.Sprintf("📊 daily summary: trades=%v pnl=%v api_cost=%v",
			ev.Fields["trade_count"], ev.Fields["pnl"], ev.Fields["api_cost"])
	case ports.EventAgentDeath:
		return fmt.Sprintf("💀 agent dead: wallet=%v unrealized=%v",
			ev.Fields["wallet_balance"], ev.Fields["unrealized_exposure"])
	default:
		return fmt.Sprintf("%s: %v", ev.Type, ev.Fields)
	}
}
