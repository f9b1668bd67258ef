package driver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/fleetpeer/internal/pkg/hubclient"
	"github.com/autopeer-io/fleetpeer/internal/pkg/mqtt/paths"
	v1 "github.com/autopeer-io/fleetpeer/pkg/api/v1"
	"github.com/autopeer-io/fleetpeer/pkg/mqtt"
	"github.com/autopeer-io/fleetpeer/pkg/mqtt/topic"
)

// Pusher upserts the driver's position in the hub.
// Failures are returned as *PushError.
type Pusher interface {
	Push(ctx context.Context, pos *v1.Position) error
	Transport() string
}

// HTTPPusher sends PUT /api/v1/positions/me with the session token of the client.
type HTTPPusher struct {
	client *hubclient.Client
}

func NewHTTPPusher(client *hubclient.Client) *HTTPPusher {
	return &HTTPPusher{client: client}
}

func (p *HTTPPusher) Transport() string { return "http" }

func (p *HTTPPusher) Push(ctx context.Context, pos *v1.Position) error {
	_, err := p.client.ReportPosition(ctx, pos)
	if err == nil {
		return nil
	}

	var se *hubclient.StatusError
	if !errors.As(err, &se) {
		return &PushError{Kind: KindNetwork, Err: err}
	}

	switch {
	case se.Code == http.StatusUnauthorized:
		return &PushError{Kind: KindAuth, Err: fmt.Errorf("%w: %s", ErrUnauthorized, se.Message)}
	case se.Code == http.StatusForbidden:
		return &PushError{Kind: KindForbidden, Err: se}
	case se.Code == http.StatusBadRequest:
		return &PushError{Kind: KindInvalid, Err: se}
	case se.Code == http.StatusTooManyRequests || se.Code == http.StatusBadGateway ||
		se.Code == http.StatusServiceUnavailable || se.Code == http.StatusGatewayTimeout:
		return &PushError{Kind: KindNetwork, Err: se}
	default:
		return &PushError{Kind: KindUnknown, Err: se}
	}
}

// expirySkew is how long before its expiry a session stops being used.
const expirySkew = 30 * time.Second

// Session yields the credentials embedded in MQTT reports.
// *hubclient.Client is a Session.
type Session interface {
	Token() string
	// ExpiresAt is zero when the expiry is unknown.
	ExpiresAt() time.Time
}

// MQTTPusher publishes a PositionReport on {root}/position/{driverID}.
// The hub authenticates the report with the embedded token and drops
// reports it cannot verify without replying, so an expired session is
// refused here with KindAuth instead of published.
type MQTTPusher struct {
	client   mqtt.Publisher
	topic    string
	driverID string
	session  Session
	clock    clock.PassiveClock
}

func NewMQTTPusher(client mqtt.Publisher, topics *topic.Builder, driverID string, session Session) *MQTTPusher {
	return &MQTTPusher{
		client:   client,
		topic:    topics.Build(paths.Position, driverID),
		driverID: driverID,
		session:  session,
		clock:    clock.RealClock{},
	}
}

func (p *MQTTPusher) Transport() string { return "mqtt" }

func (p *MQTTPusher) Push(ctx context.Context, pos *v1.Position) error {
	token, expiresAt := p.session.Token(), p.session.ExpiresAt()
	if token == "" {
		return &PushError{Kind: KindAuth, Err: fmt.Errorf("%w: not signed in", ErrUnauthorized)}
	}
	if !expiresAt.IsZero() && !p.clock.Now().Add(expirySkew).Before(expiresAt) {
		return &PushError{Kind: KindAuth, Err: fmt.Errorf("%w: session expired at %s", ErrUnauthorized, expiresAt.Format(time.RFC3339))}
	}

	report := v1.PositionReport{Token: token, Position: *pos}
	report.Position.DriverID = p.driverID

	payload, err := json.Marshal(report)
	if err != nil {
		return &PushError{Kind: KindInvalid, Err: err}
	}
	if err := p.client.Publish(ctx, p.topic, 1, false, payload); err != nil {
		return &PushError{Kind: KindNetwork, Err: err}
	}
	return nil
}
