package ws

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/nikhathmuzawar/pickplace-app/internal/model"
)

// MessageType represents the type of a relay message.
type MessageType string

const (
	// Device -> clients
	MessageTypeImageUpdate MessageType = "image_update"

	// Relay -> device
	MessageTypeConfirmPoints MessageType = "confirm_points"
	MessageTypeModeChange    MessageType = "mode_change"
	MessageTypeStatusChange  MessageType = "status_change"

	// Client <-> relay
	MessageTypePing  MessageType = "ping"
	MessageTypePong  MessageType = "pong"
	MessageTypeError MessageType = "error"
)

// Known reports whether t is one of the relay's message kinds.
func (t MessageType) Known() bool {
	switch t {
	case MessageTypeImageUpdate,
		MessageTypeConfirmPoints,
		MessageTypeModeChange,
		MessageTypeStatusChange,
		MessageTypePing,
		MessageTypePong,
		MessageTypeError:
		return true
	}
	return false
}

// IsCommand reports whether t is a command addressed to the device.
func (t MessageType) IsCommand() bool {
	return t == MessageTypeConfirmPoints || t == MessageTypeModeChange || t == MessageTypeStatusChange
}

// Message is a relay message. Only the fields belonging to Type are
// meaningful; MarshalJSON emits exactly those.
type Message struct {
	Type   MessageType   `json:"type"`
	Image  string        `json:"image,omitempty"`
	Points []model.Point `json:"points,omitempty"`
	Mode   model.Mode    `json:"mode,omitempty"`
	Status model.Status  `json:"status,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// NewImageUpdateMessage builds an image_update message.
func NewImageUpdateMessage(update model.ImageUpdate) *Message {
	return &Message{
		Type:   MessageTypeImageUpdate,
		Image:  update.Image,
		Points: update.Points,
	}
}

// ImageUpdate returns the image and points carried by an image_update.
func (m *Message) ImageUpdate() model.ImageUpdate {
	points := make([]model.Point, len(m.Points))
	copy(points, m.Points)
	return model.ImageUpdate{Image: m.Image, Points: points}
}

// MarshalJSON encodes the fields of m's kind. Point lists are always present
// for kinds that carry them, even when empty.
func (m Message) MarshalJSON() ([]byte, error) {
	points := m.Points
	if points == nil {
		points = []model.Point{}
	}

	switch m.Type {
	case MessageTypeImageUpdate:
		return json.Marshal(struct {
			Type   MessageType   `json:"type"`
			Image  string        `json:"image"`
			Points []model.Point `json:"points"`
		}{m.Type, m.Image, points})
	case MessageTypeConfirmPoints:
		return json.Marshal(struct {
			Type   MessageType   `json:"type"`
			Points []model.Point `json:"points"`
		}{m.Type, points})
	case MessageTypeModeChange:
		return json.Marshal(struct {
			Type MessageType `json:"type"`
			Mode model.Mode  `json:"mode"`
		}{m.Type, m.Mode})
	case MessageTypeStatusChange:
		return json.Marshal(struct {
			Type   MessageType  `json:"type"`
			Status model.Status `json:"status"`
		}{m.Type, m.Status})
	case MessageTypePing, MessageTypePong:
		return json.Marshal(struct {
			Type MessageType `json:"type"`
		}{m.Type})
	case MessageTypeError:
		return json.Marshal(struct {
			Type  MessageType `json:"type"`
			Error string      `json:"error"`
		}{m.Type, m.Error})
	}
	return nil, fmt.Errorf("%w: unknown message type %q", model.ErrMalformedMessage, m.Type)
}

// DecodeMessage parses a relay message. Payloads that are not JSON objects,
// fail to decode, or carry an unknown type return ErrMalformedMessage.
func DecodeMessage(data []byte) (*Message, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: payload is not a JSON object", model.ErrMalformedMessage)
	}

	var msg Message
	if err := json.Unmarshal(trimmed, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedMessage, err)
	}
	if !msg.Type.Known() {
		return nil, fmt.Errorf("%w: unknown message type %q", model.ErrMalformedMessage, msg.Type)
	}
	return &msg, nil
}
