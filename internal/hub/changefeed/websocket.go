package changefeed

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/autopeer-io/fleetpeer/internal/hub/convert"
	"github.com/autopeer-io/fleetpeer/internal/hub/core/model"
	"github.com/autopeer-io/fleetpeer/pkg/log"
)

const (
	pingInterval   = 30 * time.Second
	pongWait       = 60 * time.Second
	writeWait      = 10 * time.Second
	maxMessageSize = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Callers are authenticated by bearer token before the upgrade.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request and streams the change events of an
// organization until either side closes. The caller must already be authenticated.
func (b *Broker) ServeWS(w http.ResponseWriter, r *http.Request, organizationID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error(err, "Websocket upgrade failed")
		return
	}

	events, cancel := b.Subscribe(organizationID)
	logger := log.WithName("changefeed").WithValues("organizationID", organizationID, "remote", r.RemoteAddr)
	logger.Debug("Change feed subscriber connected")

	done := make(chan struct{})
	go readPump(conn, done)
	writePump(conn, events, done)

	cancel()
	_ = conn.Close()
	logger.Debug("Change feed subscriber disconnected")
}

// readPump only consumes control frames; it closes done when the peer goes away.
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("Change feed read error", "error", err.Error())
			}
			return
		}
	}
}

func writePump(conn *websocket.Conn, events <-chan model.ChangeEvent, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return

		case ev, ok := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := conn.WriteJSON(convert.ChangeEvent(&ev)); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
