package core

import (
	"context"

	"github.com/autopeer-io/fleetpeer/internal/hub/core/model"
)

// ChangeNotifier publishes change-feed events to subscribers.
// Delivery is best effort; subscribers re-poll for the source of truth.
type ChangeNotifier interface {
	Notify(ctx context.Context, event *model.ChangeEvent) error
}
