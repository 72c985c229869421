package polymarket

import "encoding/json"

// Raw DTOs for the Gamma and CLOB APIs. Conversion to domain entities lives
// in mapping.go; nothing outside this package sees these shapes.

// gammaMarket is Gamma's /markets representation of a single market.
// Numeric fields arrive as JSON strings, so they decode through
// json.Number rather than float64.
type gammaMarket struct {
	ConditionID   string      `json:"conditionId"`
	Question      string      `json:"question"`
	Category      string      `json:"category"`
	EndDateISO    string      `json:"endDateIso"`
	Volume24h     json.Number `json:"volume24hr"`
	Active        bool        `json:"active"`
	Closed        bool        `json:"closed"`
	Resolved      bool        `json:"resolved"`
	OutcomePrices string      `json:"outcomePrices"` // JSON-encoded string: "[\"1\", \"0\"]"
	ClobTokenIDs  string      `json:"clobTokenIds"`  // JSON-encoded string: "[\"123\", \"456\"]"
	Outcomes      string      `json:"outcomes"`      // JSON-encoded string: "[\"Yes\", \"No\"]"
}

// orderBookRequest is the body of a single entry in POST /books.
type orderBookRequest struct {
	TokenID string `json:"token_id"`
}

// orderBookResponse is one item of the POST /books batch response.
type orderBookResponse struct {
	AssetID string         `json:"asset_id"`
	Bids    []bookEntryRaw `json:"bids"`
	Asks    []bookEntryRaw `json:"asks"`
}

// bookEntryRaw is a single price level, encoded as strings for precision.
type bookEntryRaw struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}
