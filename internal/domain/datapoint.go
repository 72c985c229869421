package domain

import (
	"encoding/json"
	"time"
)

// DataPoint is one observation contributed by an external data source:
// a price, a headline, a forecast, a score. The payload is opaque to
// everything except the source that produced it and the prompt builder
// that eventually serializes it.
type DataPoint struct {
	Source      string
	Category    Category
	Timestamp   time.Time
	Payload     json.RawMessage
	Confidence  Decimal // self-reported, in [0,1]
	RelevanceTo []string // condition_ids this point speaks to
}

// RelevantTo reports whether this point was tagged as relevant to conditionID.
func (dp DataPoint) RelevantTo(conditionID string) bool {
	for _, id := range dp.RelevanceTo {
		if id == conditionID {
			return true
		}
	}
	return false
}
