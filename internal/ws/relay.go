package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/nikhathmuzawar/pickplace-app/internal/model"
)

// Relay fans device messages out to clients and forwards commands to the device.
type Relay struct {
	registry *Registry
	cache    *StateCache
}

// NewRelay creates a Relay over registry and cache.
func NewRelay(registry *Registry, cache *StateCache) *Relay {
	return &Relay{
		registry: registry,
		cache:    cache,
	}
}

// OnDeviceMessage handles one message received from the device. An
// image_update replaces the cached state before it is broadcast; every other
// known kind is broadcast unchanged. Malformed messages return
// ErrMalformedMessage and nothing is delivered.
func (r *Relay) OnDeviceMessage(data []byte) error {
	msg, err := DecodeMessage(data)
	if err != nil {
		return err
	}

	var clients []*ClientSession
	switch msg.Type {
	case MessageTypeImageUpdate:
		clients = r.registry.ReplaceImageUpdate(msg.ImageUpdate())
	default:
		// Relayed as-is, no cache mutation.
		clients = r.registry.Clients()
	}

	r.deliver(clients, data)
	return nil
}

// Broadcast delivers data once to every client registered when the sweep
// starts. Clients whose delivery fails are unregistered after the sweep.
// It returns the ids of the removed clients.
func (r *Relay) Broadcast(data []byte) []string {
	return r.deliver(r.registry.Clients(), data)
}

func (r *Relay) deliver(clients []*ClientSession, data []byte) []string {
	var failed []string
	for _, c := range clients {
		if err := c.Send(data); err != nil {
			log.Printf("Delivery to client %s failed: %v", c.ID(), err)
			failed = append(failed, c.ID())
		}
	}

	for _, id := range failed {
		r.registry.UnregisterClient(id)
	}
	return failed
}

// BroadcastMessage encodes msg and broadcasts it.
func (r *Relay) BroadcastMessage(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	r.Broadcast(data)
	return nil
}

// SendToDevice forwards msg to the registered device. It returns
// ErrDeviceNotConnected when no device is registered and wraps transport
// failures with ErrDeliveryFailed. A failed send does not unregister the
// device; its read loop will observe the broken connection.
func (r *Relay) SendToDevice(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	device := r.registry.Device()
	if device == nil {
		return model.ErrDeviceNotConnected
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode %s message: %w", msg.Type, err)
	}

	if err := device.Send(data); err != nil {
		log.Printf("Failed to send %s to device: %v", msg.Type, err)
		return fmt.Errorf("%w: %v", model.ErrDeliveryFailed, err)
	}
	return nil
}

// Cache returns the relay's state cache.
func (r *Relay) Cache() *StateCache {
	return r.cache
}

// Registry returns the relay's session registry.
func (r *Relay) Registry() *Registry {
	return r.registry
}
