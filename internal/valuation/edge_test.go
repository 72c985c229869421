package valuation

import (
	"testing"

	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decT(t *testing.T, s string) domain.Decimal {
	t.Helper()
	d, err := domain.ParseDecimal(s)
	require.NoError(t, err)
	return d
}

func bookWith(t *testing.T, bid, ask string) domain.OrderBookSnapshot {
	return domain.OrderBookSnapshot{
		Bids: []domain.BookEntry{{Price: decT(t, bid), Size: decT(t, "100")}},
		Asks: []domain.BookEntry{{Price: decT(t, ask), Size: decT(t, "100")}},
	}
}

func TestEvaluateEdge_YesQualifies(t *testing.T) {
	book := bookWith(t, "0.58", "0.60")
	res := EvaluateEdge(decT(t, "0.75"), book, decT(t, "0.05"))
	assert.Equal(t, domain.SideYes, res.Side)
	assert.True(t, res.Qualifies)
	assert.True(t, res.TradePrice.Equal(decT(t, "0.60")))
}

func TestEvaluateEdge_NoQualifies(t *testing.T) {
	book := bookWith(t, "0.60", "0.62")
	res := EvaluateEdge(decT(t, "0.20"), book, decT(t, "0.05"))
	assert.Equal(t, domain.SideNo, res.Side)
	assert.True(t, res.Qualifies)
	assert.True(t, res.TradePrice.Equal(decT(t, "0.40")))
}

func TestEvaluateEdge_BelowThreshold(t *testing.T) {
	book := bookWith(t, "0.58", "0.60")
	res := EvaluateEdge(decT(t, "0.615"), book, decT(t, "0.05"))
	assert.False(t, res.Qualifies)
}

func TestEvaluateEdge_EmptyBook(t *testing.T) {
	res := EvaluateEdge(decT(t, "0.75"), domain.OrderBookSnapshot{}, decT(t, "0.05"))
	assert.False(t, res.Qualifies)
}
