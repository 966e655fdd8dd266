package websocket

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chattyhq/chatty/realtime"
)

// DefaultWriteWait caps how long one outbound write may take before that
// delivery is abandoned.
const DefaultWriteWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Browser clients are served from other origins in development.
		return true
	},
}

// Handler upgrades HTTP requests to websocket connections and hands them to
// the realtime gateway.
type Handler struct {
	gateway   *realtime.Gateway
	writeWait time.Duration
	logger    *slog.Logger
}

// NewHandler creates a websocket handler. writeWait of 0 selects
// DefaultWriteWait.
func NewHandler(gateway *realtime.Gateway, writeWait time.Duration, logger *slog.Logger) *Handler {
	if writeWait <= 0 {
		writeWait = DefaultWriteWait
	}
	return &Handler{gateway: gateway, writeWait: writeWait, logger: logger}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := newClient(conn, h.writeWait, h.logger)
	id, err := h.gateway.HandleConnect(c)
	if err != nil {
		// Connection cap reached: refuse the peer before it becomes visible
		// to the rest of the core.
		deadline := time.Now().Add(h.writeWait)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()), deadline)
		conn.Close()
		return
	}
	c.id = id

	go c.writePump()
	go c.readPump(h.gateway)
}
