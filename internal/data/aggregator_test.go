package data

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/alejandrodnm/polyagent/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	name     string
	category domain.Category
	points   []domain.DataPoint
	err      error
}

func (f *fakeSource) Fetch(ctx context.Context, query ports.DataQuery) ([]domain.DataPoint, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.points, nil
}

func (f *fakeSource) Category() domain.Category     { return f.category }
func (f *fakeSource) FreshnessWindow() time.Duration { return time.Minute }
func (f *fakeSource) Name() string                  { return f.name }

func TestAggregator_MergesAcrossSources(t *testing.T) {
	a := NewAggregator(
		&fakeSource{name: "a", category: domain.CategoryCrypto, points: []domain.DataPoint{{Source: "a"}}},
		&fakeSource{name: "b", category: domain.CategoryCrypto, points: []domain.DataPoint{{Source: "b"}, {Source: "b2"}}},
		&fakeSource{name: "c", category: domain.CategorySports, points: []domain.DataPoint{{Source: "c"}}},
	)

	res, err := a.Fetch(context.Background(), ports.DataQuery{Category: domain.CategoryCrypto})
	require.NoError(t, err)
	assert.Equal(t, 2, res.SourcesQueried)
	assert.Equal(t, 2, res.SourcesReturning)
	assert.Len(t, res.Points, 3)
}

func TestAggregator_OneSourceFailingDoesNotBlockOthers(t *testing.T) {
	a := NewAggregator(
		&fakeSource{name: "ok", category: domain.CategoryCrypto, points: []domain.DataPoint{{Source: "ok"}}},
		&fakeSource{name: "bad", category: domain.CategoryCrypto, err: errors.New("boom")},
	)

	res, err := a.Fetch(context.Background(), ports.DataQuery{Category: domain.CategoryCrypto})
	require.NoError(t, err)
	assert.Equal(t, 2, res.SourcesQueried)
	assert.Equal(t, 1, res.SourcesReturning)
	assert.Len(t, res.Points, 1)
}

func TestAggregator_NoMatchingSourcesReturnsEmpty(t *testing.T) {
	a := NewAggregator(&fakeSource{name: "a", category: domain.CategorySports})
	res, err := a.Fetch(context.Background(), ports.DataQuery{Category: domain.CategoryWeather})
	require.NoError(t, err)
	assert.Equal(t, 0, res.SourcesQueried)
	assert.Empty(t, res.Points)
}
