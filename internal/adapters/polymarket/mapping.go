package polymarket

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/alejandrodnm/polyagent/internal/domain"
)

// mapGammaMarket converts a single Gamma DTO into a domain.Market. Markets
// missing a parseable token pair are skipped by the caller rather than
// returned half-built.
func mapGammaMarket(g gammaMarket) (domain.Market, bool) {
	tokenIDs := decodeStringArray(g.ClobTokenIDs)
	outcomes := decodeStringArray(g.Outcomes)
	if len(tokenIDs) < 2 || len(outcomes) < 2 {
		return domain.Market{}, false
	}

	var volume24h domain.Decimal
	if v, err := domain.ParseDecimal(g.Volume24h.String()); err == nil {
		volume24h = v
	}

	m := domain.Market{
		ConditionID: g.ConditionID,
		Question:    g.Question,
		Category:    mapCategory(g.Category),
		OtherLabel:  g.Category,
		Volume24h:   volume24h,
		Active:      g.Active,
		EndDate:     parseGammaTime(g.EndDateISO),
	}
	m.Tokens[0] = domain.Token{TokenID: tokenIDs[0], Outcome: outcomes[0]}
	m.Tokens[1] = domain.Token{TokenID: tokenIDs[1], Outcome: outcomes[1]}
	return m, true
}

func mapCategory(label string) domain.Category {
	switch strings.ToLower(label) {
	case "crypto", "cryptocurrency":
		return domain.CategoryCrypto
	case "sports":
		return domain.CategorySports
	case "politics", "elections":
		return domain.CategoryPolitics
	case "weather", "climate":
		return domain.CategoryWeather
	default:
		return domain.CategoryOther
	}
}

// parseGammaTime tries the handful of ISO-8601 variants Gamma has shipped.
func parseGammaTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05.000Z",
		"2006-01-02T15:04:05Z",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// decodeStringArray decodes Gamma's double-encoded JSON-string-array fields
// (e.g. `"[\"Yes\", \"No\"]"`), returning nil on any malformed input rather
// than erroring — callers treat a short result as "unusable".
func decodeStringArray(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

// mapOrderBooks converts the /books batch response into a tokenID-keyed map
// of domain.OrderBookSnapshot, sorting each side into the contract bids
// expect (bids descending, asks ascending).
func mapOrderBooks(raw []orderBookResponse, observedAt time.Time) map[string]domain.OrderBookSnapshot {
	result := make(map[string]domain.OrderBookSnapshot, len(raw))
	for _, r := range raw {
		result[r.AssetID] = domain.OrderBookSnapshot{
			TokenID:    r.AssetID,
			Bids:       mapBookEntries(r.Bids, false),
			Asks:       mapBookEntries(r.Asks, true),
			ObservedAt: observedAt,
		}
	}
	return result
}

func mapBookEntries(raw []bookEntryRaw, ascending bool) []domain.BookEntry {
	entries := make([]domain.BookEntry, 0, len(raw))
	for _, r := range raw {
		price, err := domain.ParseDecimal(r.Price)
		if err != nil || !price.IsPositive() {
			continue
		}
		size, err := domain.ParseDecimal(r.Size)
		if err != nil || !size.IsPositive() {
			continue
		}
		entries = append(entries, domain.BookEntry{Price: price, Size: size})
	}
	sort.Slice(entries, func(i, j int) bool {
		if ascending {
			return entries[i].Price.LessThan(entries[j].Price)
		}
		return entries[i].Price.GreaterThan(entries[j].Price)
	})
	return entries
}
