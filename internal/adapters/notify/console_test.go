package notify

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/polyagent/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsole_Notify_TradePlaced(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf)

	err := c.Notify(context.Background(), ports.Event{
		Type:      ports.EventTradePlaced,
		Timestamp: time.Now(),
		Fields: map[string]any{
			"market_id":   "0xabc",
			"side":        "Yes",
			"size_usd":    "6.00",
			"entry_price": "0.62",
			"edge":        "0.13",
		},
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "TRADE")
	assert.Contains(t, buf.String(), "0xabc")
}

func TestConsole_Notify_UnknownEventStillRenders(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf)

	err := c.Notify(context.Background(), ports.Event{
		Type:      ports.EventType("custom_event"),
		Timestamp: time.Now(),
		Fields:    map[string]any{"foo": "bar"},
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "custom_event")
}

func TestConsole_Notify_DailySummaryWithTrades(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf)

	err := c.Notify(context.Background(), ports.Event{
		Type:      ports.EventDailySummary,
		Timestamp: time.Now(),
		Fields: map[string]any{
			"cycles":  10,
			"api_cost": "0.42",
			"pnl":     "3.10",
			"trades": []map[string]any{
				{"market_id": "0xabc", "side": "Yes", "entry_price": "0.60", "pnl": "1.00", "status": "ResolvedWin"},
			},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "DAILY SUMMARY")
	assert.Contains(t, buf.String(), "0xabc")
}
