package ws

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nikhathmuzawar/pickplace-app/internal/model"
)

// DeviceSession is the registered device connection.
type DeviceSession struct {
	transport   Transport
	connected   atomic.Bool
	connectedAt time.Time
}

func newDeviceSession(t Transport) *DeviceSession {
	d := &DeviceSession{
		transport:   t,
		connectedAt: time.Now(),
	}
	d.connected.Store(true)
	return d
}

// Send writes data to the device. A failure marks the session disconnected
// but leaves it registered; the read loop owns teardown.
func (d *DeviceSession) Send(data []byte) error {
	if err := d.transport.Send(data); err != nil {
		d.connected.Store(false)
		return err
	}
	return nil
}

// Connected reports whether the last write to the device succeeded.
func (d *DeviceSession) Connected() bool {
	return d.connected.Load()
}

// ConnectedAt returns the handshake time.
func (d *DeviceSession) ConnectedAt() time.Time {
	return d.connectedAt
}

// ClientSession is one registered client connection.
type ClientSession struct {
	id        string
	transport Transport
}

// ID returns the session identifier.
func (c *ClientSession) ID() string {
	return c.id
}

// Send writes data to the client.
func (c *ClientSession) Send(data []byte) error {
	return c.transport.Send(data)
}

// Registry tracks the device session and the client sessions.
type Registry struct {
	mu      sync.RWMutex
	device  *DeviceSession
	clients map[string]*ClientSession
	cache   *StateCache
}

// NewRegistry creates a Registry. New clients are caught up from cache.
func NewRegistry(cache *StateCache) *Registry {
	return &Registry{
		clients: make(map[string]*ClientSession),
		cache:   cache,
	}
}

// RegisterDevice makes t the device session, replacing any existing one.
func (r *Registry) RegisterDevice(t Transport) *DeviceSession {
	session := newDeviceSession(t)

	r.mu.Lock()
	previous := r.device
	r.device = session
	r.mu.Unlock()

	if previous != nil {
		log.Printf("Device connected, replacing previous device session from %s", previous.connectedAt.Format(time.RFC3339))
	} else {
		log.Println("Device connected")
	}
	return session
}

// UnregisterDevice clears the device session if it is still session.
// It reports whether the registry changed.
func (r *Registry) UnregisterDevice(session *DeviceSession) bool {
	if session == nil {
		return false
	}

	r.mu.Lock()
	if r.device != session {
		r.mu.Unlock()
		return false
	}
	r.device = nil
	r.mu.Unlock()

	session.connected.Store(false)
	log.Println("Device disconnected")
	return true
}

// Device returns the registered device session, or nil.
func (r *Registry) Device() *DeviceSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.device
}

// HasDevice reports whether a device session is registered.
func (r *Registry) HasDevice() bool {
	return r.Device() != nil
}

// IsCurrentDevice reports whether session is the registered device.
func (r *Registry) IsCurrentDevice(session *DeviceSession) bool {
	return session != nil && r.Device() == session
}

// RegisterClient stores t under a fresh identifier and, if an image update is
// cached, sends it to this client only. If that send fails the client is
// unregistered again; the identifier is still returned.
func (r *Registry) RegisterClient(t Transport) string {
	id := uuid.New().String()
	session := &ClientSession{id: id, transport: t}

	// The catch-up is sent under the lock so a concurrent fan-out cannot
	// reach this client before its (older) catch-up does.
	r.mu.Lock()
	for r.clients[id] != nil {
		id = uuid.New().String()
		session.id = id
	}
	r.clients[id] = session

	var catchUpErr error
	if update, ok := r.cache.Get(); ok {
		data, err := json.Marshal(NewImageUpdateMessage(update))
		if err != nil {
			catchUpErr = err
		} else {
			catchUpErr = session.Send(data)
		}
	}
	r.mu.Unlock()

	if catchUpErr != nil {
		log.Printf("Failed to send catch-up to client %s: %v", id, catchUpErr)
		r.UnregisterClient(id)
	}
	return id
}

// UnregisterClient removes the client session and closes its transport.
// Unknown ids are ignored.
func (r *Registry) UnregisterClient(id string) {
	r.mu.Lock()
	session, ok := r.clients[id]
	if ok {
		delete(r.clients, id)
	}
	r.mu.Unlock()

	if ok {
		session.transport.Close()
	}
}

// Client returns the client session with the given id.
func (r *Registry) Client(id string) (*ClientSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.clients[id]
	return session, ok
}

// Clients returns a snapshot of the registered client sessions.
func (r *Registry) Clients() []*ClientSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.clientsLocked()
}

// ReplaceImageUpdate replaces the cached update and snapshots the clients in
// one critical section. A client registered concurrently either gets the new
// update as its catch-up or is in the snapshot, never both.
func (r *Registry) ReplaceImageUpdate(update model.ImageUpdate) []*ClientSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Set(update)
	return r.clientsLocked()
}

func (r *Registry) clientsLocked() []*ClientSession {
	clients := make([]*ClientSession, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	return clients
}

// ClientCount returns the number of registered clients.
func (r *Registry) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Close closes every client transport and the device transport.
func (r *Registry) Close() {
	r.mu.Lock()
	clients := r.clients
	device := r.device
	r.clients = make(map[string]*ClientSession)
	r.device = nil
	r.mu.Unlock()

	for _, c := range clients {
		c.transport.Close()
	}
	if device != nil {
		device.connected.Store(false)
		device.transport.Close()
	}
}
