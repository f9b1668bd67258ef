package server

import (
	"time"

	"github.com/autopeer-io/fleetpeer/internal/hub/changefeed"
	"github.com/autopeer-io/fleetpeer/internal/hub/server/http"
	pkgmqtt "github.com/autopeer-io/fleetpeer/pkg/mqtt"
	"github.com/autopeer-io/fleetpeer/pkg/mqtt/topic"
	"github.com/autopeer-io/fleetpeer/pkg/options"
)

type Config struct {
	HttpOptions *options.HttpOptions

	// MqttClient is nil when the MQTT transport is disabled.
	MqttClient pkgmqtt.Client
	Topics     *topic.Builder

	Broker      *changefeed.Broker
	ReadyChecks map[string]http.ReadyCheck

	// SessionPurgeInterval of 0 disables the expired session janitor.
	SessionPurgeInterval time.Duration
}
