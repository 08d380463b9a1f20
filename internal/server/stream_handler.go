package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/events"
)

// writeWait bounds a single websocket write
const writeWait = 10 * time.Second

// StreamHandler relays trade events to websocket clients
type StreamHandler struct {
	manager *events.Manager
	log     zerolog.Logger

	mu     sync.Mutex
	done   chan struct{}
	closed bool
}

// NewStreamHandler creates a stream handler
func NewStreamHandler(manager *events.Manager, log zerolog.Logger) *StreamHandler {
	return &StreamHandler{
		manager: manager,
		log:     log.With().Str("handler", "stream").Logger(),
		done:    make(chan struct{}),
	}
}

// Close disconnects all active stream clients
func (h *StreamHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.closed = true
		close(h.done)
	}
}

// ServeHTTP handles GET /api/stream/trades
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// CORS is enforced by the router middleware
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream terminated")

	sub, unsubscribe := h.manager.Subscribe()
	defer unsubscribe()

	h.log.Debug().Str("remote", r.RemoteAddr).Msg("Stream client connected")

	// CloseRead starts a read pump that surfaces client disconnects
	// through context cancellation.
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-h.done:
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case event, ok := <-sub:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "stream closed")
				return
			}
			if err := h.writeEvent(ctx, conn, event); err != nil {
				h.log.Debug().Err(err).Msg("Stream client write failed")
				return
			}
		}
	}
}

func (h *StreamHandler) writeEvent(ctx context.Context, conn *websocket.Conn, event events.Event) error {
	data, err := json.Marshal(&event)
	if err != nil {
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()

	return conn.Write(writeCtx, websocket.MessageText, data)
}
