package admin

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"k8s.io/utils/clock"

	"github.com/autopeer-io/fleetpeer/internal/pkg/mqtt/adapter"
	"github.com/autopeer-io/fleetpeer/internal/pkg/mqtt/paths"
	v1 "github.com/autopeer-io/fleetpeer/pkg/api/v1"
	"github.com/autopeer-io/fleetpeer/pkg/log"
	"github.com/autopeer-io/fleetpeer/pkg/mqtt"
	"github.com/autopeer-io/fleetpeer/pkg/mqtt/topic"
)

const reconnectDelay = 3 * time.Second

// WebsocketFeed reads the hub change feed at /api/v1/changes. A dropped
// connection is re-dialled until the subscription is cancelled.
type WebsocketFeed struct {
	url    string
	token  func() string
	dialer *websocket.Dialer
	clock  clock.Clock
	logger log.Logger
}

func NewWebsocketFeed(url string, token func() string) *WebsocketFeed {
	return &WebsocketFeed{
		url:    url,
		token:  token,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		clock:  clock.RealClock{},
		logger: log.WithName("changefeed-client"),
	}
}

// Subscribe dials once synchronously so a misconfigured feed is reported
// to the caller; later drops are retried in the background.
func (f *WebsocketFeed) Subscribe(ctx context.Context, fn func(v1.ChangeEvent)) (func(), error) {
	conn, err := f.dial(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		f.run(ctx, conn, fn)
	}()

	return func() {
		cancel()
		wg.Wait()
	}, nil
}

func (f *WebsocketFeed) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if f.token != nil {
		header.Set("Authorization", "Bearer "+f.token())
	}
	conn, resp, err := f.dialer.DialContext(ctx, f.url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("change feed handshake failed with %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("failed to dial change feed: %w", err)
	}
	return conn, nil
}

func (f *WebsocketFeed) run(ctx context.Context, conn *websocket.Conn, fn func(v1.ChangeEvent)) {
	for {
		f.read(ctx, conn, fn)
		if ctx.Err() != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-f.clock.After(reconnectDelay):
			}
			c, err := f.dial(ctx)
			if err == nil {
				conn = c
				f.logger.Info("Change feed reconnected")
				break
			}
			f.logger.Warn("Change feed reconnect failed", "error", err)
		}
	}
}

// read consumes events until the connection fails or ctx is done.
func (f *WebsocketFeed) read(ctx context.Context, conn *websocket.Conn, fn func(v1.ChangeEvent)) {
	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer stop()
	defer conn.Close()

	for {
		var ev v1.ChangeEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() == nil {
				f.logger.Warn("Change feed connection lost", "error", err)
			}
			return
		}
		fn(ev)
	}
}

// MQTTFeed subscribes to {root}/changes/positions/{organizationID}. The
// client must be started by the caller.
type MQTTFeed struct {
	client mqtt.Subscriber
	topic  string
	logger log.Logger
}

func NewMQTTFeed(client mqtt.Subscriber, topics *topic.Builder, organizationID string) *MQTTFeed {
	return &MQTTFeed{
		client: client,
		topic:  topics.Build(paths.PositionChanges, organizationID),
		logger: log.WithName("changefeed-mqtt"),
	}
}

func (f *MQTTFeed) Subscribe(ctx context.Context, fn func(v1.ChangeEvent)) (func(), error) {
	handler := adapter.JSONHandler[v1.ChangeEvent](func(_ context.Context, _ string, ev *v1.ChangeEvent) error {
		fn(*ev)
		return nil
	})

	if err := f.client.Subscribe(ctx, f.topic, 0, func(c context.Context, t string, p []byte) {
		if err := handler(c, t, p); err != nil {
			f.logger.Error(err, "Invalid change event", "topic", t)
		}
	}); err != nil {
		return nil, err
	}

	return func() {
		unsubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := f.client.Unsubscribe(unsubCtx, f.topic); err != nil {
			f.logger.Warn("Unsubscribe failed", "topic", f.topic, "error", err)
		}
	}, nil
}
