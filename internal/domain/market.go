package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category tags the subject matter of a market. Drives which DataSources
// are relevant to it.
type Category int

const (
	CategoryOther Category = iota
	CategoryWeather
	CategorySports
	CategoryCrypto
	CategoryPolitics
)

func (c Category) String() string {
	switch c {
	case CategoryWeather:
		return "Weather"
	case CategorySports:
		return "Sports"
	case CategoryCrypto:
		return "Crypto"
	case CategoryPolitics:
		return "Politics"
	default:
		return "Other"
	}
}

// Market is an immutable snapshot of a binary-outcome prediction market as
// discovered by a single scan. It is not re-fetched mid-cycle.
type Market struct {
	ConditionID string
	Question    string // untrusted, may contain adversarial text
	Category    Category
	// OtherLabel holds the upstream category label when Category == CategoryOther.
	OtherLabel string
	EndDate    time.Time
	Volume24h  decimal.Decimal
	Active     bool
	Tokens     [2]Token
}

// Token is one of the two sides of a binary market.
type Token struct {
	TokenID string
	Outcome string // "Yes" | "No", case-insensitive match required by callers
}

// YesToken returns the token whose outcome case-insensitively matches "yes".
func (m Market) YesToken() Token {
	for _, t := range m.Tokens {
		if equalFoldOutcome(t.Outcome, "yes") {
			return t
		}
	}
	return m.Tokens[0]
}

// NoToken returns the token whose outcome case-insensitively matches "no".
func (m Market) NoToken() Token {
	for _, t := range m.Tokens {
		if equalFoldOutcome(t.Outcome, "no") {
			return t
		}
	}
	return m.Tokens[1]
}

// TokenForSide selects a token by case-insensitive outcome match. Never
// indexes by position — the order of Tokens is not a contract.
func (m Market) TokenForSide(side Side) (Token, bool) {
	want := "no"
	if side == SideYes {
		want = "yes"
	}
	for _, t := range m.Tokens {
		if equalFoldOutcome(t.Outcome, want) {
			return t, true
		}
	}
	return Token{}, false
}

func equalFoldOutcome(outcome, want string) bool {
	if len(outcome) != len(want) {
		return false
	}
	for i := 0; i < len(outcome); i++ {
		a, b := outcome[i], want[i]
		if a >= 'A' && a <= 'Z' {
			a += 'a' - 'A'
		}
		if b >= 'A' && b <= 'Z' {
			b += 'a' - 'A'
		}
		if a != b {
			return false
		}
	}
	return true
}

// HoursToResolution returns hours until EndDate, 0 if already past or unset.
func (m Market) HoursToResolution(now time.Time) float64 {
	if m.EndDate.IsZero() {
		return 0
	}
	h := m.EndDate.Sub(now).Hours()
	if h < 0 {
		return 0
	}
	return h
}

// TruncateQuestion returns Question truncated to maxLen characters, falling
// back to a prefix of conditionID when the question is empty.
func TruncateQuestion(question, conditionID string, maxLen int) string {
	q := question
	if q == "" {
		if len(conditionID) > 20 {
			q = conditionID[:20] + "..."
		} else {
			q = conditionID
		}
	}
	if len(q) > maxLen {
		q = q[:maxLen-3] + "..."
	}
	return q
}
