// Package command validates operator commands and forwards them to the device.
package command

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/nikhathmuzawar/pickplace-app/internal/model"
	"github.com/nikhathmuzawar/pickplace-app/internal/ws"
)

// Sender forwards a message to the device.
type Sender interface {
	SendToDevice(ctx context.Context, msg *ws.Message) error
}

// ImageCache provides the last image update published by the device.
type ImageCache interface {
	Get() (model.ImageUpdate, bool)
}

// Gateway is the single entry point for device commands. Validation happens
// here, so invalid commands never reach the relay.
type Gateway struct {
	sender Sender
	cache  ImageCache

	mu     sync.RWMutex
	mode   model.Mode
	status model.Status
}

// NewGateway creates a Gateway. Mode and status start at the device's
// defaults, auto and stop.
func NewGateway(sender Sender, cache ImageCache) *Gateway {
	return &Gateway{
		sender: sender,
		cache:  cache,
		mode:   model.ModeAuto,
		status: model.StatusStop,
	}
}

// ConfirmPoints sends the operator's confirmed points to the device.
func (g *Gateway) ConfirmPoints(ctx context.Context, points []model.Point) error {
	if err := model.ValidatePoints(points); err != nil {
		return err
	}

	normalized := make([]model.Point, len(points))
	copy(normalized, points)

	return g.forward(ctx, &ws.Message{
		Type:   ws.MessageTypeConfirmPoints,
		Points: normalized,
	})
}

// ChangeMode switches the device between manual and auto.
func (g *Gateway) ChangeMode(ctx context.Context, mode model.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: invalid mode %q", model.ErrInvalidArgument, mode)
	}

	if err := g.forward(ctx, &ws.Message{Type: ws.MessageTypeModeChange, Mode: mode}); err != nil {
		return err
	}

	g.mu.Lock()
	g.mode = mode
	g.mu.Unlock()
	log.Printf("Mode changed to %s", mode)
	return nil
}

// ChangeStatus starts or stops the device.
func (g *Gateway) ChangeStatus(ctx context.Context, status model.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: invalid status %q", model.ErrInvalidArgument, status)
	}

	if err := g.forward(ctx, &ws.Message{Type: ws.MessageTypeStatusChange, Status: status}); err != nil {
		return err
	}

	g.mu.Lock()
	g.status = status
	g.mu.Unlock()
	log.Printf("Status changed to %s", status)
	return nil
}

// CachedImage returns the last image update, or ErrNoImage.
func (g *Gateway) CachedImage() (model.ImageUpdate, error) {
	update, ok := g.cache.Get()
	if !ok {
		return model.ImageUpdate{}, model.ErrNoImage
	}
	return update, nil
}

// Mode returns the last accepted mode.
func (g *Gateway) Mode() model.Mode {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.mode
}

// Status returns the last accepted status.
func (g *Gateway) Status() model.Status {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.status
}

// HandleCommand executes a command that arrived as a relay message.
func (g *Gateway) HandleCommand(ctx context.Context, msg *ws.Message) error {
	switch msg.Type {
	case ws.MessageTypeConfirmPoints:
		return g.ConfirmPoints(ctx, msg.Points)
	case ws.MessageTypeModeChange:
		return g.ChangeMode(ctx, msg.Mode)
	case ws.MessageTypeStatusChange:
		return g.ChangeStatus(ctx, msg.Status)
	}
	return fmt.Errorf("%w: %q is not a command", model.ErrInvalidArgument, msg.Type)
}

func (g *Gateway) forward(ctx context.Context, msg *ws.Message) error {
	err := g.sender.SendToDevice(ctx, msg)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, model.ErrDeviceNotConnected):
		return err
	case errors.Is(err, model.ErrDeliveryFailed):
		return err
	default:
		return fmt.Errorf("%w: %v", model.ErrDeliveryFailed, err)
	}
}
