package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yohanna4/song-manager/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	WriteWait      = 10 * time.Second
	PongWait       = 60 * time.Second
	PingPeriod     = 30 * time.Second // must be less than PongWait
	MaxMessageSize = 4096
	sendBuffer     = 256
)

// Connection is one websocket listener. Listeners only receive; anything
// they send besides control frames is read and discarded.
type Connection struct {
	ID string

	conn      *websocket.Conn
	send      chan []byte
	active    int32
	closeChan chan struct{}
	closeOnce sync.Once
	createdAt time.Time

	hub *Hub
	log logger.Logger
}

// NewConnection wraps an upgraded websocket.
func NewConnection(id string, conn *websocket.Conn, hub *Hub, log logger.Logger) *Connection {
	return &Connection{
		ID:        id,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		active:    1,
		closeChan: make(chan struct{}),
		createdAt: time.Now(),
		hub:       hub,
		log:       log.WithFields(logger.String("conn_id", id)),
	}
}

// IsActive reports whether the connection is still open.
func (c *Connection) IsActive() bool {
	return atomic.LoadInt32(&c.active) == 1
}

// Close closes the socket once.
func (c *Connection) Close(reason string) {
	c.closeOnce.Do(func() {
		atomic.StoreInt32(&c.active, 0)
		close(c.closeChan)

		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason),
			time.Now().Add(WriteWait),
		)
		_ = c.conn.Close()

		c.log.Debug("event stream closed",
			logger.String("reason", reason),
			logger.Duration("duration", time.Since(c.createdAt)),
		)
	})
}

// Send queues a message. A full buffer closes the connection rather than
// blocking the broadcaster.
func (c *Connection) Send(message []byte) bool {
	if !c.IsActive() {
		return false
	}
	select {
	case c.send <- message:
		return true
	case <-c.closeChan:
		return false
	default:
		c.log.Warn("send buffer full, closing event stream")
		c.Close("send buffer full")
		return false
	}
}

// ReadPump drains incoming frames so pongs and close frames are processed.
// It unregisters the connection when the peer goes away.
func (c *Connection) ReadPump(ctx context.Context) {
	defer c.hub.Unregister(c)

	c.conn.SetReadLimit(MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(PongWait))
	})

	for {
		if ctx.Err() != nil || !c.IsActive() {
			return
		}
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.log.Warn("websocket read error", logger.Error(err))
			}
			return
		}
	}
}

// WritePump writes queued messages and keeps the connection alive with pings.
func (c *Connection) WritePump(ctx context.Context) {
	ticker := time.NewTicker(PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.Close("server shutting down")
			return
		case <-c.closeChan:
			return
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Warn("websocket write error", logger.Error(err))
				c.Close("write failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close("ping failed")
				return
			}
		}
	}
}
