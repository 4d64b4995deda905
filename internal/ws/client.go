package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

// Client is one websocket connection owned by an authenticated user. All
// writes go through the buffered send channel so the write pump is the
// only goroutine touching the connection for output.
type Client struct {
	SocketID string
	UserID   string

	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func NewClient(conn *websocket.Conn, socketID, userID string) *Client {
	return &Client{
		SocketID: socketID,
		UserID:   userID,
		conn:     conn,
		send:     make(chan []byte, 256),
	}
}

// Send marshals payload and queues it. A slow consumer whose buffer is
// full loses the event rather than stalling the broadcaster.
func (c *Client) Send(payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	select {
	case c.send <- b:
	default:
	}
}

// Close stops the write pump. Safe to call more than once.
func (c *Client) Close() {
	c.once.Do(func() { close(c.send) })
}

// WritePump drains the send channel onto the wire and keeps the
// connection alive with pings. Runs until Close or a write failure.
func (c *Client) WritePump(pingInterval, writeDeadline time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case b, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second))
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(time.Second)); err != nil {
				return
			}
		}
	}
}
