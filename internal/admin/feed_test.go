package admin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	v1 "github.com/autopeer-io/fleetpeer/pkg/api/v1"
	pkgmqtt "github.com/autopeer-io/fleetpeer/pkg/mqtt"
	"github.com/autopeer-io/fleetpeer/pkg/mqtt/topic"
)

func TestWebsocketFeed(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(v1.ChangeEvent{Table: "positions", Op: "upsert", DriverID: "d-1", OrganizationID: "org-1"})
		// Hold the connection until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	if _, err := NewWebsocketFeed(url, func() string { return "wrong" }).Subscribe(context.Background(), func(v1.ChangeEvent) {}); err == nil {
		t.Fatalf("Subscribe() with a bad token should fail")
	}

	events := make(chan v1.ChangeEvent, 1)
	unsubscribe, err := NewWebsocketFeed(url, func() string { return "tok" }).Subscribe(context.Background(), func(ev v1.ChangeEvent) { events <- ev })
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	select {
	case ev := <-events:
		if ev.DriverID != "d-1" || ev.Table != "positions" {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	done := make(chan struct{})
	go func() {
		unsubscribe()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("unsubscribe did not return")
	}
}

type subscribeRecorder struct {
	mu           sync.Mutex
	topic        string
	qos          int
	handler      pkgmqtt.MessageHandler
	unsubscribed string
}

func (s *subscribeRecorder) Subscribe(_ context.Context, topic string, qos int, h pkgmqtt.MessageHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topic, s.qos, s.handler = topic, qos, h
	return nil
}
func (s *subscribeRecorder) Unsubscribe(_ context.Context, topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsubscribed = topic
	return nil
}

func TestMQTTFeed(t *testing.T) {
	rec := &subscribeRecorder{}
	feed := NewMQTTFeed(rec, topic.NewBuilder("fleet/v1"), "org-1")

	var got []v1.ChangeEvent
	unsubscribe, err := feed.Subscribe(context.Background(), func(ev v1.ChangeEvent) { got = append(got, ev) })
	if err != nil {
		t.Fatal(err)
	}
	if rec.topic != "fleet/v1/changes/positions/org-1" || rec.qos != 0 {
		t.Fatalf("subscribed to %q qos %d", rec.topic, rec.qos)
	}

	rec.handler(context.Background(), rec.topic, []byte(`{"table":"positions","op":"upsert","driverId":"d-9"}`))
	rec.handler(context.Background(), rec.topic, []byte(`not json`))
	if len(got) != 1 || got[0].DriverID != "d-9" {
		t.Errorf("events = %+v", got)
	}

	unsubscribe()
	if rec.unsubscribed != rec.topic {
		t.Errorf("Unsubscribe topic = %q", rec.unsubscribed)
	}
}
