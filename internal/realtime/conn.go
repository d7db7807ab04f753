package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chatly/chatly/internal/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// sendBuffer is the per-connection event queue. A client that cannot
	// drain this many events is considered dead.
	sendBuffer = 128
)

// Conn wraps a websocket with a buffered outbound queue and a write pump, so
// publishers never block on a slow client.
type Conn struct {
	ws     *websocket.Conn
	send   chan Event
	logger log.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewConn wraps an upgraded websocket. The caller must run WritePump in a
// goroutine and call Close when the read side ends.
func NewConn(ws *websocket.Conn, logger log.Logger) *Conn {
	return &Conn{
		ws:     ws,
		send:   make(chan Event, sendBuffer),
		logger: logger.With("component", "ws-conn", "remote", ws.RemoteAddr().String()),
		done:   make(chan struct{}),
	}
}

// Send queues an event for delivery. Returns false if the connection is
// closed or its buffer is full; the caller drops the event either way.
func (c *Conn) Send(ev Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- ev:
		return true
	default:
		// Buffer full: the client stopped reading. Cut it loose.
		c.Close()
		return false
	}
}

// Close shuts the connection down. Idempotent.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if err := c.ws.Close(); err != nil {
			c.logger.Debug("closing websocket", "error", err)
		}
	})
}

// WritePump drains the send queue to the socket and keeps the connection
// alive with pings. It returns when the connection closes.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return

		case ev := <-c.send:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				c.logger.Error("encoding event", "error", err)
				continue
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.logger.Debug("write failed", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
