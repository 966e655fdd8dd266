package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chattyhq/chatty/realtime"
)

const (
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Outbound frames queued per connection before sends start failing.
	sendBufferSize = 256
)

var (
	errSendBufferFull = errors.New("send buffer full")
	errConnClosed     = errors.New("connection closed")
)

// client is one live websocket connection. It implements realtime.Sender.
type client struct {
	id        realtime.ConnectionID
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	writeWait time.Duration
	logger    *slog.Logger
}

func newClient(conn *websocket.Conn, writeWait time.Duration, logger *slog.Logger) *client {
	return &client{
		conn:      conn,
		send:      make(chan []byte, sendBufferSize),
		done:      make(chan struct{}),
		writeWait: writeWait,
		logger:    logger,
	}
}

// Send queues an event frame for the write pump. It never blocks: a full
// queue or an already-closed connection is reported as a failed delivery.
func (c *client) Send(event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}
	frame, err := json.Marshal(realtime.Envelope{Event: event, Data: raw})
	if err != nil {
		return fmt.Errorf("marshal %s frame: %w", event, err)
	}

	select {
	case <-c.done:
		return errConnClosed
	case c.send <- frame:
		return nil
	default:
		return errSendBufferFull
	}
}

func (c *client) shutdown() {
	c.closeOnce.Do(func() { close(c.done) })
}

// readPump pumps frames from the websocket connection to the gateway. It
// owns disconnect signaling: whatever ends the read loop, the gateway hears
// about it exactly through HandleDisconnect (which is itself idempotent).
func (c *client) readPump(gateway *realtime.Gateway) {
	defer func() {
		gateway.HandleDisconnect(c.id)
		c.shutdown()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read failed", "connection_id", c.id, "error", err)
			}
			return
		}
		gateway.HandleFrame(c.id, frame)
	}
}

// writePump pumps queued frames to the websocket connection. Every write
// carries a deadline so a stalled peer is abandoned instead of wedging the
// pump.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, nil)
			return
		}
	}
}
