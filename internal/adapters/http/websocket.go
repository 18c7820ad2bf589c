package http

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

// wsConn adapts a websocket connection to ports.Connection. Writes are
// serialized because the hub and the keep-alive pinger share the socket.
type wsConn struct {
	mu           sync.Mutex
	conn         *websocket.Conn
	writeTimeout time.Duration
	closed       bool
}

// errConnClosed is returned by writes after Close. The underlying
// websocket.Conn is pooled by gofiber once the handler returns, so a closed
// wrapper must never touch it again.
var errConnClosed = errors.New("websocket: connection closed")

func newWSConn(c *websocket.Conn, writeTimeout time.Duration) *wsConn {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &wsConn{conn: c, writeTimeout: writeTimeout}
}

func (w *wsConn) write(messageType int, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errConnClosed
	}
	// A slow client must not stall the broadcast loop.
	_ = w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))
	return w.conn.WriteMessage(messageType, data)
}

// Send implements ports.Connection.
func (w *wsConn) Send(data []byte) error {
	return w.write(websocket.TextMessage, data)
}

// Close implements ports.Connection. Safe to call more than once.
func (w *wsConn) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.conn.Close()
}

// WebSocketHandler registers each client with the broadcast hub and keeps
// the socket alive until the client goes away. Inbound frames are read and
// discarded.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	pingInterval := deps.WSPingInterval
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}

	return func(c *websocket.Conn) {
		conn := newWSConn(c, deps.WSWriteTimeout)
		defer conn.Close()

		id := deps.Hub.Connect(conn)
		log := slog.With("conn_id", id, "remote", c.RemoteAddr().String())
		log.Info("ws client connected", "active", deps.Hub.Len())

		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(pingInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := conn.write(websocket.PingMessage, nil); err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}

		close(done)
		deps.Hub.Disconnect(id)
		log.Info("ws client disconnected", "active", deps.Hub.Len())
	}
}
