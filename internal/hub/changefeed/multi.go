package changefeed

import (
	"context"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/autopeer-io/fleetpeer/internal/hub/core"
	"github.com/autopeer-io/fleetpeer/internal/hub/core/model"
)

// Multi notifies every notifier in order and aggregates their errors.
type Multi []core.ChangeNotifier

var _ core.ChangeNotifier = Multi(nil)

func (m Multi) Notify(ctx context.Context, ev *model.ChangeEvent) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return utilerrors.NewAggregate(errs)
}
