package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/alejandrodnm/polyagent/internal/ports"
	"github.com/olekukonko/tablewriter"
)

// Console is an AlertChannel that renders events to a writer (stdout by
// default), using a table for event shapes that carry multiple fields and a
// one-line form for everything else.
type Console struct {
	out io.Writer
}

// NewConsole builds a Console writing to stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter builds a Console writing to an arbitrary writer, for tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// Notify renders one event. It never returns an error: a malformed or
// unrecognized event still produces best-effort output rather than failing
// the cycle that triggered it.
func (c *Console) Notify(_ context.Context, ev ports.Event) error {
	ts := ev.Timestamp.Format("15:04:05")
	switch ev.Type {
	case ports.EventTradePlaced:
		fmt.Fprintf(c.out, "[%s] TRADE %s %s size=$%v entry=%v edge=%v\n",
			ts, ev.Fields["market_id"], ev.Fields["side"], ev.Fields["size_usd"],
			ev.Fields["entry_price"], ev.Fields["edge"])
	case ports.EventTradeResolved:
		fmt.Fprintf(c.out, "[%s] RESOLVED %s pnl=%v status=%v\n",
			ts, ev.Fields["market_id"], ev.Fields["pnl"], ev.Fields["status"])
	case ports.EventStateChange:
		fmt.Fprintf(c.out, "[%s] STATE %v -> %v (wallet=%v)\n",
			ts, ev.Fields["from"], ev.Fields["to"], ev.Fields["wallet_balance"])
	case ports.EventBankrollMilestone:
		fmt.Fprintf(c.out, "[%s] MILESTONE bankroll=%v\n", ts, ev.Fields["bankroll"])
	case ports.EventDailySummary:
		c.printDailySummary(ts, ev)
	case ports.EventAgentDeath:
		fmt.Fprintf(c.out, "[%s] !!! AGENT DEAD — wallet=%v unrealized=%v\n",
			ts, ev.Fields["wallet_balance"], ev.Fields["unrealized_exposure"])
	default:
		fmt.Fprintf(c.out, "[%s] %s %v\n", ts, ev.Type, ev.Fields)
	}
	return nil
}

// printDailySummary renders a daily_summary event as a small table when it
// carries a "trades" slice of map[string]any rows, falling back to a plain
// line otherwise.
func (c *Console) printDailySummary(ts string, ev ports.Event) {
	trades, ok := ev.Fields["trades"].([]map[string]any)
	if !ok || len(trades) == 0 {
		fmt.Fprintf(c.out, "[%s] DAILY SUMMARY cycles=%v trades=%v pnl=%v api_cost=%v\n",
			ts, ev.Fields["cycles"], ev.Fields["trade_count"], ev.Fields["pnl"], ev.Fields["api_cost"])
		return
	}

	fmt.Fprintf(c.out, "\n[%s] DAILY SUMMARY\n", ts)
	table := tablewriter.NewWriter(c.out)
	table.Header("Market", "Side", "Entry", "PnL", "Status")

	sort.SliceStable(trades, func(i, j int) bool {
		return fmt.Sprint(trades[i]["market_id"]) < fmt.Sprint(trades[j]["market_id"])
	})
	for _, tr := range trades {
		table.Append(
			fmt.Sprint(tr["market_id"]),
			fmt.Sprint(tr["side"]),
			fmt.Sprint(tr["entry_price"]),
			fmt.Sprint(tr["pnl"]),
			fmt.Sprint(tr["status"]),
		)
	}
	table.Render()
	fmt.Fprintf(c.out, "cycles=%v api_cost=%v net_pnl=%v\n\n",
		ev.Fields["cycles"], ev.Fields["api_cost"], ev.Fields["pnl"])
}
