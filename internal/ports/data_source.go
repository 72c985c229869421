package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/polyagent/internal/domain"
)

// MarketRef is the minimal market identity a DataSource needs to decide
// relevance: enough to match keywords in the question without pulling in
// the full domain.Market.
type MarketRef struct {
	ConditionID string
	Question    string
}

// DataQuery scopes a single DataSource.Fetch call to the candidates the
// current cycle cares about.
type DataQuery struct {
	Markets  []MarketRef
	Category domain.Category
}

// DataSource is the capability set shared by every external-data fetcher
// (§9 "polymorphic data sources"): fetch, category, freshness window, name.
// Concrete sources are registered with the DataAggregator at startup; there
// is no runtime plugin loading.
type DataSource interface {
	Fetch(ctx context.Context, query DataQuery) ([]domain.DataPoint, error)
	Category() domain.Category
	FreshnessWindow() time.Duration
	Name() string
}
