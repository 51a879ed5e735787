package ws

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/harmony/internal/app/notification"
)

const (
	// WriteWait is the time allowed to write a message.
	WriteWait = 10 * time.Second
	// PongWait is the time allowed to read the next pong.
	PongWait = 60 * time.Second
	// PingPeriod must be less than PongWait.
	PingPeriod = 30 * time.Second
	// MaxMessageSize is the largest message accepted from the page.
	MaxMessageSize = 64 * 1024

	sendBuffer = 64
)

var ErrConnectionClosed = errors.New("player connection closed")

// Connection is one websocket connection to a player page.
type Connection struct {
	ID string

	conn      *websocket.Conn
	send      chan []byte
	isActive  int32
	closeChan chan struct{}
	closeOnce sync.Once
	createdAt time.Time
}

// NewConnection wraps an upgraded websocket.
func NewConnection(id string, conn *websocket.Conn) *Connection {
	return &Connection{
		ID:        id,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		isActive:  1,
		closeChan: make(chan struct{}),
		createdAt: time.Now(),
	}
}

// IsActive reports whether the connection is open.
func (c *Connection) IsActive() bool {
	return atomic.LoadInt32(&c.isActive) == 1
}

// Done is closed when the connection closes.
func (c *Connection) Done() <-chan struct{} {
	return c.closeChan
}

// Close closes the connection once.
func (c *Connection) Close(reason string) {
	c.closeOnce.Do(func() {
		atomic.StoreInt32(&c.isActive, 0)
		close(c.closeChan)

		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason),
			time.Now().Add(WriteWait),
		)
		_ = c.conn.Close()

		zlog.Info().Msgf("ws: connection closed: id=%s reason=%s duration=%v", c.ID, reason, time.Since(c.createdAt))
	})
}

// ReadPump reads messages until the connection fails and hands each one to handle.
func (c *Connection) ReadPump(ctx context.Context, handle func([]byte)) {
	defer c.Close("read finished")

	c.conn.SetReadLimit(MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(PongWait))
	})

	for {
		if ctx.Err() != nil {
			return
		}
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				zlog.Warn().Msgf("ws: read failed: id=%s error=%v", c.ID, err)
			}
			return
		}
		handle(message)
	}
}

// WritePump writes queued messages and pings until the connection closes.
func (c *Connection) WritePump(ctx context.Context) {
	ticker := time.NewTicker(PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.Close("server shutdown")
			return
		case <-c.closeChan:
			return
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				zlog.Warn().Msgf("ws: write failed: id=%s error=%v", c.ID, err)
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

// SendJSON queues v for the page. A full buffer closes the connection.
func (c *Connection) SendJSON(v any) error {
	if !c.IsActive() {
		return ErrConnectionClosed
	}
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "failed to encode message")
	}

	select {
	case c.send <- data:
		return nil
	case <-c.closeChan:
		return ErrConnectionClosed
	default:
		zlog.Warn().Msgf("ws: send buffer full, closing: id=%s", c.ID)
		c.Close("send buffer full")
		return ErrConnectionClosed
	}
}

// Send delivers a notice to the page.
func (c *Connection) Send(n *notification.Notice) error {
	return c.SendJSON(Outbound{Type: TypeNotice, Notice: n})
}
