package models

import (
	"github.com/gorilla/websocket"
)

// Client wraps a single websocket connection from one browser peer. The
// UserID is assigned at connect time and identifies the connection in every
// broadcast; it is never persisted.
type Client struct {
	Conn   *websocket.Conn
	Send   chan []byte
	UserID string
	Done   chan struct{}
}

// QueueSend puts a frame on the client's outbound channel without blocking.
// Frames to a slow consumer are dropped rather than stalling the relay path.
func (c *Client) QueueSend(message []byte) bool {
	select {
	case c.Send <- message:
		return true
	default:
		return false
	}
}
