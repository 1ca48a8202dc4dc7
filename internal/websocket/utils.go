package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

// writeWait bounds a single frame write. The interview stream is long-lived;
// reads carry no deadline because a candidate may sit silent for minutes.
const writeWait = 10 * time.Second

// WriteTyped sends a strongly-typed event payload over the WebSocket.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func WriteError(conn *websocket.Conn, errMsg string) error {
	return WriteTyped(conn, ErrorResponse{
		Event: EventError,
		Error: errMsg,
	})
}
