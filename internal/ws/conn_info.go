package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type ConnInfo struct {
	ConnID      string
	UserID      string
	Subject     string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

// client is one live socket. gorilla connections allow a single concurrent
// writer, so every write goes through writeMu.
type client struct {
	conn    *websocket.Conn
	info    ConnInfo
	writeMu sync.Mutex
	once    sync.Once
	done    chan struct{}
}

func newClient(conn *websocket.Conn, info ConnInfo) *client {
	return &client{conn: conn, info: info, done: make(chan struct{})}
}

func (c *client) write(messageType int, payload []byte, wait time.Duration) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if wait > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(wait))
	}
	return c.conn.WriteMessage(messageType, payload)
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}
