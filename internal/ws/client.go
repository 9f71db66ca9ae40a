package ws

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/nikhathmuzawar/pickplace-app/internal/model"
)

// defaultSendQueue is the per-client outbound queue length.
const defaultSendQueue = 64

// Client is a browser client connection. Sends are queued and written by the
// handler's write pump, so Send never blocks on the network.
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	mu     sync.Mutex
	closed bool
}

// NewClient creates a new client with an outbound queue of queueSize messages.
func NewClient(conn *websocket.Conn, queueSize int) *Client {
	if queueSize <= 0 {
		queueSize = defaultSendQueue
	}
	return &Client{
		conn: conn,
		send: make(chan []byte, queueSize),
	}
}

// Send queues data for the client. A closed client returns ErrClientClosed;
// a full queue closes the client and returns ErrDeliveryFailed.
func (c *Client) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return model.ErrClientClosed
	}

	select {
	case c.send <- data:
		return nil
	default:
		c.closeLocked()
		return fmt.Errorf("%w: send queue full", model.ErrDeliveryFailed)
	}
}

// Close closes the outbound queue. The write pump then sends a close frame
// and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}

func (c *Client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// IsClosed returns true if the client is closed.
func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Conn returns the underlying WebSocket connection.
func (c *Client) Conn() *websocket.Conn {
	return c.conn
}

// SendChan returns the send channel for the client.
func (c *Client) SendChan() <-chan []byte {
	return c.send
}
