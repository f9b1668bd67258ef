package changefeed

import (
	"context"
	"encoding/json"

	"github.com/autopeer-io/fleetpeer/internal/hub/convert"
	"github.com/autopeer-io/fleetpeer/internal/hub/core"
	"github.com/autopeer-io/fleetpeer/internal/hub/core/model"
	"github.com/autopeer-io/fleetpeer/internal/pkg/mqtt/paths"
	pkgmqtt "github.com/autopeer-io/fleetpeer/pkg/mqtt"
	"github.com/autopeer-io/fleetpeer/pkg/mqtt/topic"
)

// MQTTNotifier publishes change events to {root}/changes/positions/{organizationID}.
type MQTTNotifier struct {
	client pkgmqtt.Publisher
	topics *topic.Builder
}

var _ core.ChangeNotifier = (*MQTTNotifier)(nil)

// NewMQTTNotifier publishes through an already started client.
func NewMQTTNotifier(client pkgmqtt.Publisher, topics *topic.Builder) *MQTTNotifier {
	return &MQTTNotifier{client: client, topics: topics}
}

func (n *MQTTNotifier) Notify(ctx context.Context, ev *model.ChangeEvent) error {
	if ev.OrganizationID == "" {
		return nil
	}

	payload, err := json.Marshal(convert.ChangeEvent(ev))
	if err != nil {
		return err
	}

	return n.client.Publish(ctx, n.topics.Build(paths.PositionChanges, ev.OrganizationID), 0, false, payload)
}
