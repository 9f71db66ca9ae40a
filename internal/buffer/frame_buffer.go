// Package buffer holds the latest-value slots fed by the raw ingestion socket.
package buffer

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/nikhathmuzawar/pickplace-app/internal/model"
)

// defaultCoordinatesString is reported before any coordinates are ingested.
const defaultCoordinatesString = "x:0 y:0 z:0"

// FrameBuffer keeps the most recent frame, status string and coordinates.
// Each slot is replaced independently; there is no history.
//
// Readers may observe slots from different ingestions. The slots are not a
// single record, so this is not a consistency problem.
type FrameBuffer struct {
	mu sync.RWMutex

	frame             *string
	statusString      *string
	coordinates       *model.Coordinates
	coordinatesString string
}

// NewFrameBuffer creates an empty FrameBuffer.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{
		coordinatesString: defaultCoordinatesString,
	}
}

// ingestPacket is the structured form of a raw ingestion message.
// Raw and pointer fields distinguish absent keys from explicit nulls.
type ingestPacket struct {
	Frame       json.RawMessage    `json:"frame"`
	StringData  json.RawMessage    `json:"string_data"`
	Coordinates *model.Coordinates `json:"coordinates"`
}

// stringSlot is the decoded form of an optional string field.
type stringSlot struct {
	present bool
	value   *string
}

// decodeStringSlot decodes a raw field. An absent key leaves the slot alone,
// null clears it and a string replaces it. Any other JSON type is an error.
func decodeStringSlot(raw json.RawMessage) (stringSlot, error) {
	if raw == nil {
		return stringSlot{}, nil
	}
	if bytes.Equal(raw, []byte("null")) {
		return stringSlot{present: true}, nil
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return stringSlot{}, err
	}
	return stringSlot{present: true, value: &v}, nil
}

// Ingest applies one received payload. Present fields overwrite their slot,
// an explicit null clears it, and absent fields are left untouched. A payload
// that is not a JSON object is stored whole as the raw frame.
func (b *FrameBuffer) Ingest(data []byte) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		b.SetFrame(string(data))
		return
	}

	var pkt ingestPacket
	if err := json.Unmarshal(trimmed, &pkt); err != nil {
		b.SetFrame(string(data))
		return
	}
	frame, err := decodeStringSlot(pkt.Frame)
	if err != nil {
		b.SetFrame(string(data))
		return
	}
	status, err := decodeStringSlot(pkt.StringData)
	if err != nil {
		b.SetFrame(string(data))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if frame.present {
		b.frame = frame.value
	}
	if status.present {
		b.statusString = status.value
	}
	if pkt.Coordinates != nil {
		c := *pkt.Coordinates
		b.coordinates = &c
		b.coordinatesString = c.String()
	}
}

// SetFrame replaces the latest frame.
func (b *FrameBuffer) SetFrame(frame string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frame = &frame
}

// Frame returns the latest frame in its transport encoding.
func (b *FrameBuffer) Frame() (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.frame == nil {
		return "", false
	}
	return *b.frame, true
}

// StatusString returns the latest free-form status string.
func (b *FrameBuffer) StatusString() (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.statusString == nil {
		return "", false
	}
	return *b.statusString, true
}

// Coordinates returns the latest raw coordinates.
func (b *FrameBuffer) Coordinates() (model.Coordinates, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.coordinates == nil {
		return model.Coordinates{}, false
	}
	return *b.coordinates, true
}

// CoordinatesString returns the display form of the latest coordinates.
func (b *FrameBuffer) CoordinatesString() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.coordinatesString
}
