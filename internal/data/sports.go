package data

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/alejandrodnm/polyagent/internal/ports"
	"github.com/go-resty/resty/v2"
)

// sportEndpoints maps a short sport name to its ESPN scoreboard path.
var sportEndpoints = []struct {
	name string
	path string
}{
	{"nfl", "football/nfl"},
	{"nba", "basketball/nba"},
	{"mlb", "baseball/mlb"},
	{"nhl", "hockey/nhl"},
	{"mma", "mma/ufc"},
	{"soccer", "soccer/usa.1"},
}

// SportsSource polls ESPN's public scoreboard API for games relevant to
// sports-outcome markets.
type SportsSource struct {
	client *resty.Client
}

// NewSportsSource builds a SportsSource with a 10s request timeout.
func NewSportsSource() *SportsSource {
	return &SportsSource{client: resty.New().SetTimeout(10 * time.Second)}
}

type espnScoreboard struct {
	Events []espnEvent `json:"events"`
}

type espnEvent struct {
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
	Date      string `json:"date"`
	Status    struct {
		Type struct {
			State     string `json:"state"`
			Completed bool   `json:"completed"`
		} `json:"type"`
	} `json:"status"`
	Competitions []struct {
		Competitors []struct {
			HomeAway string `json:"homeAway"`
			Score    string `json:"score"`
			Team     struct {
				DisplayName string `json:"displayName"`
			} `json:"team"`
		} `json:"competitors"`
	} `json:"competitions"`
}

func (s *SportsSource) Fetch(ctx context.Context, query ports.DataQuery) ([]domain.DataPoint, error) {
	var points []domain.DataPoint
	now := time.Now()

	for _, sport := range sportEndpoints {
		if !anyQuestionMentionsSport(sport.name, query.Markets) {
			continue
		}

		var board espnScoreboard
		resp, err := s.client.R().
			SetContext(ctx).
			SetResult(&board).
			Get(fmt.Sprintf("https://site.api.espn.com/apis/site/v2/sports/%s/scoreboard", sport.path))
		if err != nil {
			slog.Warn("data/sports: fetch failed", "sport", sport.name, "error", err)
			continue
		}
		if !resp.IsSuccess() {
			continue
		}

		for _, ev := range board.Events {
			payload, err := json.Marshal(ev)
			if err != nil {
				return nil, fmt.Errorf("data/sports: marshal payload: %w", err)
			}
			points = append(points, domain.DataPoint{
				Source:      "espn",
				Category:    domain.CategorySports,
				Timestamp:   now,
				Payload:     payload,
				Confidence:  domain.NewDecimal(0.90),
				RelevanceTo: relevantSportMarkets(sport.name, ev, query.Markets),
			})
		}
	}
	return points, nil
}

func anyQuestionMentionsSport(sport string, markets []ports.MarketRef) bool {
	for _, m := range markets {
		ql := strings.ToLower(m.Question)
		if strings.Contains(ql, sport) || strings.Contains(ql, "game") ||
			strings.Contains(ql, "win") || strings.Contains(ql, "score") ||
			strings.Contains(ql, "championship") {
			return true
		}
	}
	return false
}

func relevantSportMarkets(sport string, ev espnEvent, markets []ports.MarketRef) []string {
	nameLower := strings.ToLower(ev.Name)
	var relevant []string
	for _, m := range markets {
		ql := strings.ToLower(m.Question)
		if strings.Contains(ql, sport) || (nameLower != "" && strings.Contains(ql, nameLower)) {
			relevant = append(relevant, m.ConditionID)
		}
	}
	return relevant
}

func (s *SportsSource) Category() domain.Category { return domain.CategorySports }

func (s *SportsSource) FreshnessWindow() time.Duration { return 5 * time.Minute }

func (s *SportsSource) Name() string { return "espn_sports" }

var _ ports.DataSource = (*SportsSource)(nil)
