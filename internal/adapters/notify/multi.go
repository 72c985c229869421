package notify

import (
	"context"
	"errors"

	"github.com/alejandrodnm/polyagent/internal/ports"
)

// MultiChannel fans an event out to every channel in the slice, continuing
// past individual failures and joining their errors rather than stopping at
// the first one — matching the rest of this package's best-effort delivery
// stance.
type MultiChannel []ports.AlertChannel

// Notify delivers ev to every channel, returning a joined error if any
// channel failed. Callers in the cycle loop only log this, never treat it
// as fatal.
func (m MultiChannel) Notify(ctx context.Context, ev ports.Event) error {
	var errs []error
	for _, ch := range m {
		if err := ch.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ ports.AlertChannel = MultiChannel(nil)
