package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/moneymap/moneymap/internal/pipeline"
	"github.com/moneymap/moneymap/pkg/logger"
)

// RunStreamHandler streams pipeline run lifecycle events over a
// websocket, so an operator dashboard can watch a run progress through
// its stages live.
type RunStreamHandler struct {
	events   *pipeline.Broadcaster
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

// NewRunStreamHandler creates the run event stream handler.
func NewRunStreamHandler(events *pipeline.Broadcaster, log *logger.Logger) *RunStreamHandler {
	return &RunStreamHandler{
		events: events,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Internal operator endpoint; same-origin policy handled upstream.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: log.WithField("module", "ws"),
	}
}

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// Serve upgrades the connection and forwards run events until the
// client disconnects.
func (h *RunStreamHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	events, cancel := h.events.Subscribe()
	defer cancel()

	// Reader goroutine: we never expect client messages, but reading
	// is required to notice a close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				h.logger.WithError(err).Debug("Websocket write failed")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
