package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	readWait  = 5 * time.Minute
)

// Conn serializes writes to a gorilla connection, which allows at most one
// concurrent writer.
type Conn struct {
	*websocket.Conn
	mu sync.Mutex
}

// Wrap returns a write-safe Conn.
func Wrap(conn *websocket.Conn) *Conn {
	return &Conn{Conn: conn}
}

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func (c *Conn) WriteTyped(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.SetWriteDeadline(time.Now().Add(writeWait))
	return c.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func (c *Conn) WriteError(requestID, code, msg string, fields map[string]string) error {
	return c.WriteTyped(ErrorResponse{
		Event:     EventError,
		RequestID: requestID,
		Code:      code,
		Error:     msg,
		Fields:    fields,
	})
}

// Close sends a normal-closure frame and closes the socket.
func (c *Conn) Close() error {
	c.mu.Lock()
	_ = c.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.mu.Unlock()
	return c.Conn.Close()
}

// ReadMessage reads one text frame. It sets a read deadline.
func (c *Conn) ReadMessage() ([]byte, error) {
	_ = c.SetReadDeadline(time.Now().Add(readWait))
	_, data, err := c.Conn.ReadMessage()
	return data, err
}
