package data

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/alejandrodnm/polyagent/internal/ports"
	"github.com/go-resty/resty/v2"
)

// NewsSource pulls headlines from Google News RSS search for each market
// question's key terms, supporting political and general-news markets.
type NewsSource struct {
	client *resty.Client
}

// NewNewsSource builds a NewsSource with a 10s request timeout.
func NewNewsSource() *NewsSource {
	return &NewsSource{client: resty.New().SetTimeout(10 * time.Second)}
}

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title string `xml:"title"`
	Link  string `xml:"link"`
}

func (s *NewsSource) Fetch(ctx context.Context, query ports.DataQuery) ([]domain.DataPoint, error) {
	var points []domain.DataPoint
	now := time.Now()

	for _, m := range query.Markets {
		term := extractSearchTerm(m.Question)
		if term == "" {
			continue
		}

		var feed rssFeed
		resp, err := s.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{"q": term, "hl": "en-US", "gl": "US", "ceid": "US:en"}).
			Get("https://news.google.com/rss/search")
		if err != nil {
			slog.Warn("data/news: fetch failed", "term", term, "error", err)
			continue
		}
		if err := xml.Unmarshal(resp.Body(), &feed); err != nil {
			slog.Warn("data/news: parse failed", "term", term, "error", err)
			continue
		}

		for _, item := range feed.Channel.Items {
			payload, err := json.Marshal(map[string]string{
				"title":       item.Title,
				"link":        item.Link,
				"search_term": term,
			})
			if err != nil {
				return nil, fmt.Errorf("data/news: marshal payload: %w", err)
			}
			points = append(points, domain.DataPoint{
				Source:      "google_news",
				Category:    domain.CategoryPolitics,
				Timestamp:   now,
				Payload:     payload,
				Confidence:  domain.NewDecimal(0.60),
				RelevanceTo: []string{m.ConditionID},
			})
		}
	}
	return points, nil
}

// extractSearchTerm pulls the most distinctive words out of a market
// question for use as a news-search query, dropping filler words that would
// make the search too broad to be useful.
func extractSearchTerm(question string) string {
	stop := map[string]bool{
		"will": true, "the": true, "a": true, "an": true, "by": true, "in": true,
		"on": true, "of": true, "to": true, "be": true, "is": true, "and": true,
		"or": true, "2024": true, "2025": true, "2026": true, "?": true,
	}
	var words []string
	for _, w := range strings.Fields(question) {
		w = strings.Trim(w, "?.,!\"'")
		if w == "" || stop[strings.ToLower(w)] {
			continue
		}
		words = append(words, w)
	}
	if len(words) > 6 {
		words = words[:6]
	}
	return strings.Join(words, " ")
}

func (s *NewsSource) Category() domain.Category { return domain.CategoryPolitics }

func (s *NewsSource) FreshnessWindow() time.Duration { return 15 * time.Minute }

func (s *NewsSource) Name() string { return "google_news" }

var _ ports.DataSource = (*NewsSource)(nil)
