package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nikhathmuzawar/pickplace-app/internal/model"
)

// Options configures connection limits and keepalive.
type Options struct {
	// Time allowed to write a message to the peer.
	WriteWait time.Duration

	// Time allowed to read the next pong message from the peer.
	PongWait time.Duration

	// Maximum message size accepted from the device and ingestion sockets.
	// Frames are base64 images, so this is much larger than MaxClientMessageSize.
	MaxMessageSize int64

	// Maximum message size accepted from client sockets.
	MaxClientMessageSize int64

	// Per-client outbound queue length.
	SendQueue int

	// CheckOrigin overrides the upgrader's origin check. Nil allows all origins.
	CheckOrigin func(r *http.Request) bool
}

// DefaultOptions returns the default connection options.
func DefaultOptions() Options {
	return Options{
		WriteWait:            10 * time.Second,
		PongWait:             60 * time.Second,
		MaxMessageSize:       16 << 20,
		MaxClientMessageSize: 64 << 10,
		SendQueue:            defaultSendQueue,
	}
}

// pingPeriod must be less than PongWait.
func (o Options) pingPeriod() time.Duration {
	return (o.PongWait * 9) / 10
}

// FrameSink receives raw ingestion payloads.
type FrameSink interface {
	Ingest(data []byte)
}

// CommandHandler executes a device command submitted over a client socket.
type CommandHandler interface {
	HandleCommand(ctx context.Context, msg *Message) error
}

// Handler upgrades and serves the device, client and ingestion sockets.
type Handler struct {
	registry *Registry
	relay    *Relay
	frames   FrameSink
	opts     Options
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	commands CommandHandler
}

// NewHandler creates a new WebSocket handler.
func NewHandler(relay *Relay, frames FrameSink, opts Options) *Handler {
	defaults := DefaultOptions()
	if opts.WriteWait <= 0 {
		opts.WriteWait = defaults.WriteWait
	}
	if opts.PongWait <= 0 {
		opts.PongWait = defaults.PongWait
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = defaults.MaxMessageSize
	}
	if opts.MaxClientMessageSize <= 0 {
		opts.MaxClientMessageSize = defaults.MaxClientMessageSize
	}
	if opts.SendQueue <= 0 {
		opts.SendQueue = defaults.SendQueue
	}

	checkOrigin := opts.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &Handler{
		registry: relay.Registry(),
		relay:    relay,
		frames:   frames,
		opts:     opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
	}
}

// SetCommandHandler sets the handler for commands arriving on client sockets.
func (h *Handler) SetCommandHandler(c CommandHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commands = c
}

func (h *Handler) commandHandler() CommandHandler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.commands
}

// HandleDevice upgrades the connection and registers it as the device session,
// replacing any existing device. Messages are relayed until the connection fails.
func (h *Handler) HandleDevice(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	session := h.registry.RegisterDevice(NewDeviceConn(conn, h.opts.WriteWait))
	go h.deviceReadLoop(conn, session)
	return nil
}

func (h *Handler) deviceReadLoop(conn *websocket.Conn, session *DeviceSession) {
	stop := h.startPinger(conn)
	defer func() {
		stop()
		h.registry.UnregisterDevice(session)
		conn.Close()
	}()

	h.prepareRead(conn, h.opts.MaxMessageSize)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Device WebSocket error: %v", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(h.opts.PongWait))

		if !h.registry.IsCurrentDevice(session) {
			log.Printf("Dropping message from superseded device session")
			continue
		}

		if err := h.relay.OnDeviceMessage(data); err != nil {
			log.Printf("Invalid message received from device: %v", err)
		}
	}
}

// HandleClient upgrades the connection and registers it as a client session.
func (h *Handler) HandleClient(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := NewClient(conn, h.opts.SendQueue)

	// The write pump must be running before registration queues the catch-up.
	go h.writePump(client)

	id := h.registry.RegisterClient(client)
	log.Printf("Client %s connected (%d total)", id, h.registry.ClientCount())

	go h.clientReadPump(client, id)
	return nil
}

// clientReadPump reads client messages until the connection fails, then
// unregisters the client.
func (h *Handler) clientReadPump(client *Client, id string) {
	conn := client.Conn()
	defer func() {
		h.registry.UnregisterClient(id)
		conn.Close()
		log.Printf("Client %s disconnected", id)
	}()

	h.prepareRead(conn, h.opts.MaxClientMessageSize)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Client %s WebSocket error: %v", id, err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(h.opts.PongWait))

		reply := h.handleClientMessage(data)
		if reply == nil {
			continue
		}
		if err := h.replyTo(client, reply); err != nil {
			log.Printf("Failed to reply to client %s: %v", id, err)
			return
		}
	}
}

// handleClientMessage processes one client message and returns the reply to
// send back, if any.
func (h *Handler) handleClientMessage(data []byte) *Message {
	msg, err := DecodeMessage(data)
	if err != nil {
		return &Message{Type: MessageTypeError, Error: err.Error()}
	}

	switch {
	case msg.Type == MessageTypePing:
		return &Message{Type: MessageTypePong}
	case msg.Type.IsCommand():
		commands := h.commandHandler()
		if commands == nil {
			return &Message{Type: MessageTypeError, Error: "commands are not accepted on this connection"}
		}
		ctx, cancel := context.WithTimeout(context.Background(), h.opts.WriteWait)
		defer cancel()
		if err := commands.HandleCommand(ctx, msg); err != nil {
			return &Message{Type: MessageTypeError, Error: err.Error()}
		}
		return nil
	default:
		return nil
	}
}

func (h *Handler) replyTo(client *Client, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := client.Send(data); err != nil {
		if errors.Is(err, model.ErrClientClosed) {
			return nil
		}
		return err
	}
	return nil
}

// writePump pumps queued messages to the WebSocket connection and keeps it
// alive with pings.
func (h *Handler) writePump(client *Client) {
	ticker := time.NewTicker(h.opts.pingPeriod())
	conn := client.Conn()
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.SendChan():
			conn.SetWriteDeadline(time.Now().Add(h.opts.WriteWait))
			if !ok {
				// The registry closed the queue
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// Each message goes in its own frame so the browser can JSON.parse it
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(h.opts.WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// HandleIngest upgrades the connection and feeds every received payload to the
// frame sink.
func (h *Handler) HandleIngest(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	go h.ingestReadLoop(conn)
	return nil
}

func (h *Handler) ingestReadLoop(conn *websocket.Conn) {
	stop := h.startPinger(conn)
	defer func() {
		stop()
		conn.Close()
	}()

	h.prepareRead(conn, h.opts.MaxMessageSize)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Ingest WebSocket error: %v", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(h.opts.PongWait))

		h.frames.Ingest(data)
	}
}

func (h *Handler) prepareRead(conn *websocket.Conn, limit int64) {
	conn.SetReadLimit(limit)
	conn.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(h.opts.PongWait))
		return nil
	})
}

// startPinger pings conn until the returned stop function is called.
// WriteControl may run concurrently with other writes.
func (h *Handler) startPinger(conn *websocket.Conn) (stop func()) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(h.opts.pingPeriod())
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				deadline := time.Now().Add(h.opts.WriteWait)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// Registry returns the handler's session registry.
func (h *Handler) Registry() *Registry {
	return h.registry
}
