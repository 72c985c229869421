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

// defaultStations are the cities NOAA forecasts are pulled for.
var defaultStations = []struct {
	city string
	lat  float64
	lon  float64
}{
	{"New York", 40.7128, -74.0060},
	{"Los Angeles", 33.9425, -118.2551},
	{"Chicago", 41.8781, -87.6298},
	{"Miami", 25.7617, -80.1918},
	{"Houston", 29.7604, -95.3698},
}

// WeatherSource polls api.weather.gov (NOAA) forecasts for a fixed set of
// major US cities to support weather-outcome markets.
type WeatherSource struct {
	client *resty.Client
}

// NewWeatherSource builds a WeatherSource with a 10s request timeout and the
// required User-Agent header NOAA's API enforces.
func NewWeatherSource() *WeatherSource {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetHeader("User-Agent", "polyagent/0.1 (contact@example.com)")
	return &WeatherSource{client: client}
}

type noaaPoints struct {
	Properties struct {
		Forecast string `json:"forecast"`
	} `json:"properties"`
}

type noaaForecast struct {
	Properties struct {
		Periods []noaaPeriod `json:"periods"`
	} `json:"properties"`
}

type noaaPeriod struct {
	Name              string `json:"name"`
	Temperature       int    `json:"temperature"`
	TemperatureUnit   string `json:"temperatureUnit"`
	WindSpeed         string `json:"windSpeed"`
	ShortForecast     string `json:"shortForecast"`
	DetailedForecast  string `json:"detailedForecast"`
	IsDaytime         bool   `json:"isDaytime"`
	ProbabilityOfPrecipitation struct {
		Value *int `json:"value"`
	} `json:"probabilityOfPrecipitation"`
}

func (s *WeatherSource) fetchForecast(ctx context.Context, lat, lon float64) (*noaaForecast, error) {
	var points noaaPoints
	resp, err := s.client.R().SetContext(ctx).SetResult(&points).
		Get(fmt.Sprintf("https://api.weather.gov/points/%.4f,%.4f", lat, lon))
	if err != nil {
		return nil, fmt.Errorf("noaa points request: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("noaa points returned %d", resp.StatusCode())
	}

	var forecast noaaForecast
	resp, err = s.client.R().SetContext(ctx).SetResult(&forecast).Get(points.Properties.Forecast)
	if err != nil {
		return nil, fmt.Errorf("noaa forecast request: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("noaa forecast returned %d", resp.StatusCode())
	}
	return &forecast, nil
}

func (s *WeatherSource) Fetch(ctx context.Context, query ports.DataQuery) ([]domain.DataPoint, error) {
	var points []domain.DataPoint
	now := time.Now()

	for _, station := range defaultStations {
		cityRelevant := relevantByCity(station.city, query.Markets)

		forecast, err := s.fetchForecast(ctx, station.lat, station.lon)
		if err != nil {
			slog.Warn("data/weather: fetch failed", "city", station.city, "error", err)
			continue
		}

		for _, period := range forecast.Properties.Periods {
			payload, err := json.Marshal(map[string]any{
				"city":                      station.city,
				"period_name":               period.Name,
				"temperature":               period.Temperature,
				"temperature_unit":          period.TemperatureUnit,
				"wind_speed":                period.WindSpeed,
				"short_forecast":            period.ShortForecast,
				"detailed_forecast":         period.DetailedForecast,
				"precipitation_probability": period.ProbabilityOfPrecipitation.Value,
				"is_daytime":                period.IsDaytime,
			})
			if err != nil {
				return nil, fmt.Errorf("data/weather: marshal payload: %w", err)
			}

			relevance := append([]string{}, cityRelevant...)
			relevance = append(relevance, relevantByKeyword(query.Markets, relevance)...)

			points = append(points, domain.DataPoint{
				Source:      "noaa",
				Category:    domain.CategoryWeather,
				Timestamp:   now,
				Payload:     payload,
				Confidence:  domain.NewDecimal(0.90), // NOAA is authoritative
				RelevanceTo: relevance,
			})
		}
	}
	return points, nil
}

func relevantByCity(city string, markets []ports.MarketRef) []string {
	cityLower := strings.ToLower(city)
	var relevant []string
	for _, m := range markets {
		if strings.Contains(strings.ToLower(m.Question), cityLower) {
			relevant = append(relevant, m.ConditionID)
		}
	}
	return relevant
}

func relevantByKeyword(markets []ports.MarketRef, already []string) []string {
	seen := make(map[string]bool, len(already))
	for _, id := range already {
		seen[id] = true
	}
	var relevant []string
	for _, m := range markets {
		if seen[m.ConditionID] {
			continue
		}
		ql := strings.ToLower(m.Question)
		if strings.Contains(ql, "temperature") || strings.Contains(ql, "weather") ||
			strings.Contains(ql, "hurricane") || strings.Contains(ql, "rain") {
			relevant = append(relevant, m.ConditionID)
		}
	}
	return relevant
}

func (s *WeatherSource) Category() domain.Category { return domain.CategoryWeather }

// FreshnessWindow is an hour: NOAA updates hourly.
func (s *WeatherSource) FreshnessWindow() time.Duration { return time.Hour }

func (s *WeatherSource) Name() string { return "noaa_weather" }

var _ ports.DataSource = (*WeatherSource)(nil)
