package polymarket

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapGammaMarket_SkipsIncompleteTokenPair(t *testing.T) {
	_, ok := mapGammaMarket(gammaMarket{ConditionID: "0x1", ClobTokenIDs: `["only_one"]`, Outcomes: `["Yes"]`})
	assert.False(t, ok)
}

func TestMapGammaMarket_HappyPath(t *testing.T) {
	g := gammaMarket{
		ConditionID:  "0xabc",
		Question:     "Will it rain?",
		Category:     "Weather",
		EndDateISO:   "2026-06-01T00:00:00Z",
		Volume24h:    json.Number("1234.5"),
		Active:       true,
		ClobTokenIDs: `["tok_yes", "tok_no"]`,
		Outcomes:     `["Yes", "No"]`,
	}
	m, ok := mapGammaMarket(g)
	assert.True(t, ok)
	assert.Equal(t, "0xabc", m.ConditionID)
	assert.Equal(t, "tok_yes", m.Tokens[0].TokenID)
	assert.Equal(t, "tok_no", m.Tokens[1].TokenID)
	assert.InDelta(t, 1234.5, m.Volume24h.InexactFloat64(), 0.001)
}

func TestMapCategory_KnownAndUnknown(t *testing.T) {
	assert.Equal(t, 3, int(mapCategory("crypto"))) // domain.CategoryCrypto
	assert.Equal(t, 0, int(mapCategory("something-else")))
}

func TestParseGammaTime_FallsBackToZero(t *testing.T) {
	assert.True(t, parseGammaTime("").IsZero())
	assert.True(t, parseGammaTime("not-a-date").IsZero())
	assert.False(t, parseGammaTime("2026-01-01").IsZero())
}

func TestDecodeStringArray_MalformedReturnsNil(t *testing.T) {
	assert.Nil(t, decodeStringArray(""))
	assert.Nil(t, decodeStringArray("not json"))
	assert.Equal(t, []string{"a", "b"}, decodeStringArray(`["a", "b"]`))
}

func TestMapBookEntries_DropsNonPositiveLevels(t *testing.T) {
	entries := mapBookEntries([]bookEntryRaw{
		{Price: "0.5", Size: "10"},
		{Price: "0", Size: "10"},
		{Price: "0.3", Size: "0"},
		{Price: "bad", Size: "10"},
	}, true)
	assert.Len(t, entries, 1)
}

