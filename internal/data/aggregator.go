package data

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/alejandrodnm/polyagent/internal/ports"
	"golang.org/x/sync/errgroup"
)

// Aggregator fans a query out to every registered DataSource concurrently
// and merges the results, so one slow or failing source doesn't block the
// others (§5 "parallel fan-out across registered data sources").
type Aggregator struct {
	sources []ports.DataSource
}

// NewAggregator registers the given sources. Fetch runs the matching
// sources concurrently and merges their points in registration order.
func NewAggregator(sources ...ports.DataSource) *Aggregator {
	return &Aggregator{sources: sources}
}

// FetchResult carries the merged points plus the quality-scoring bookkeeping
// the caller needs: how many sources were asked and how many actually answered.
type FetchResult struct {
	Points           []domain.DataPoint
	SourcesQueried   int
	SourcesReturning int
}

// Fetch queries every registered source whose Category equals
// query.Category; sources of any other category are skipped, so a query
// whose category no source covers returns no points. A source that errors
// is logged with slog.Warn and left out of the merge; its error is not
// returned and does not fail the whole fetch — partial data beats no data.
func (a *Aggregator) Fetch(ctx context.Context, query ports.DataQuery) (FetchResult, error) {
	relevant := a.sourcesFor(query.Category)

	g, ctx := errgroup.WithContext(ctx)
	results := make([][]domain.DataPoint, len(relevant))
	errs := make([]error, len(relevant))

	for i, src := range relevant {
		i, src := i, src
		g.Go(func() error {
			points, err := src.Fetch(ctx, query)
			if err != nil {
				errs[i] = fmt.Errorf("data: source %s: %w", src.Name(), err)
				return nil // one source failing doesn't abort the group
			}
			results[i] = points
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return FetchResult{}, err
	}

	var merged []domain.DataPoint
	returning := 0
	for i, points := range results {
		if errs[i] != nil {
			slog.Warn("data: source fetch failed", "error", errs[i])
			continue
		}
		if len(points) > 0 {
			returning++
		}
		merged = append(merged, points...)
	}

	return FetchResult{
		Points:           merged,
		SourcesQueried:   len(relevant),
		SourcesReturning: returning,
	}, nil
}

// sourcesFor returns every registered source whose Category matches the
// query's category.
func (a *Aggregator) sourcesFor(category domain.Category) []ports.DataSource {
	var out []ports.DataSource
	for _, s := range a.sources {
		if s.Category() == category {
			out = append(out, s)
		}
	}
	return out
}
