package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DeviceConn is the device's connection. Writes are synchronous so command
// callers learn about delivery failures; each write is bounded by writeWait.
type DeviceConn struct {
	conn      *websocket.Conn
	writeWait time.Duration
	mu        sync.Mutex
}

// NewDeviceConn wraps conn.
func NewDeviceConn(conn *websocket.Conn, writeWait time.Duration) *DeviceConn {
	return &DeviceConn{
		conn:      conn,
		writeWait: writeWait,
	}
}

// Send writes data as one text frame.
func (d *DeviceConn) Send(data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.conn.SetWriteDeadline(time.Now().Add(d.writeWait)); err != nil {
		return err
	}
	return d.conn.WriteMessage(websocket.TextMessage, data)
}

// Close closes the connection.
func (d *DeviceConn) Close() error {
	return d.conn.Close()
}
