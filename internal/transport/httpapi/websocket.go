package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/agentic-layer/observability-dashboard/internal/filter"
)

const (
	closeMalformedRequest = 4400
	closeInternalError    = 4500
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsSink adapts a gorilla websocket connection to the distributor's Sink
// interface. Writes are serialized with a mutex since the distributor may
// call Send from the publish path concurrently with the connection's own
// close handshake.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSink) Send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

type clientFrame struct {
	Type string `json:"type"`
}

// handleWebsocket implements GET /ws: upgrade, parse filter query
// parameters, register with the distributor, send the welcome frame, then
// block reading client frames purely to detect disconnect (per the
// cooperative concurrency model, a subscriber task awaits incoming frames
// until the connection ends).
func (h *handlers) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("httpapi: websocket upgrade failed", "error", err)
		return
	}

	query := r.URL.Query()
	params := map[string]string{
		"conversation_id": query.Get("conversation_id"),
		"workforce":       query.Get("workforce"),
	}
	crit := filter.FromQueryParams(params)

	sink := &wsSink{conn: conn}

	if h.distributor == nil {
		closeWith(conn, closeInternalError, "distributor unavailable")
		return
	}

	handle, err := h.distributor.Subscribe(sink, crit)
	if err != nil {
		slog.Warn("httpapi: welcome frame failed, closing subscriber", "error", err)
		if h.metrics != nil {
			h.metrics.RecordWSDisconnect("welcome_failed")
		}
		h.distributor.Unsubscribe(handle)
		closeWith(conn, closeInternalError, "failed to send welcome frame")
		return
	}

	if h.metrics != nil {
		h.metrics.RecordWSConnection()
		h.metrics.SetSubscribersActive(h.distributor.Count())
	}

	defer func() {
		h.distributor.Unsubscribe(handle)
		if h.metrics != nil {
			h.metrics.SetSubscribersActive(h.distributor.Count())
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if h.metrics != nil {
				h.metrics.RecordWSDisconnect("client_disconnect")
			}
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		if frame.Type == "update_filter" {
			slog.Debug("httpapi: received update_filter frame (reserved, ignored)", "raw", string(data))
		}
	}
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = conn.Close()
}
