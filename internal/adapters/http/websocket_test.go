package http

import (
	"errors"
	"testing"

	"github.com/gofiber/websocket/v2"
)

// Once closed, the wrapper must not reach the pooled socket: conn is nil
// here, so any access would panic.
func TestWSConn_ClosedRejectsWrites(t *testing.T) {
	w := &wsConn{closed: true}

	if err := w.Send([]byte(`{"type":"visit_created"}`)); !errors.Is(err, errConnClosed) {
		t.Errorf("Send: expected errConnClosed, got %v", err)
	}
	if err := w.write(websocket.PingMessage, nil); !errors.Is(err, errConnClosed) {
		t.Errorf("ping: expected errConnClosed, got %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
}
