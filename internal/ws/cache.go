package ws

import (
	"sync"

	"github.com/nikhathmuzawar/pickplace-app/internal/model"
)

// StateCache holds the last image update broadcast by the device. It is
// replaced wholesale; there is no history.
type StateCache struct {
	mu     sync.RWMutex
	update *model.ImageUpdate
}

// NewStateCache creates an empty StateCache.
func NewStateCache() *StateCache {
	return &StateCache{}
}

// Set replaces the cached update. An update without an image empties the
// cache, so it is neither replayed to new clients nor served.
func (c *StateCache) Set(update model.ImageUpdate) {
	if update.Image == "" {
		c.mu.Lock()
		c.update = nil
		c.mu.Unlock()
		return
	}

	points := make([]model.Point, len(update.Points))
	copy(points, update.Points)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.update = &model.ImageUpdate{Image: update.Image, Points: points}
}

// Get returns a copy of the cached update.
func (c *StateCache) Get() (model.ImageUpdate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.update == nil {
		return model.ImageUpdate{}, false
	}
	points := make([]model.Point, len(c.update.Points))
	copy(points, c.update.Points)
	return model.ImageUpdate{Image: c.update.Image, Points: points}, true
}
