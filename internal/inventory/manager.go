// Package inventory manages device inventory records.
package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nikhathmuzawar/pickplace-app/internal/model"
	"github.com/nikhathmuzawar/pickplace-app/internal/repository"
)

// Manager manages device records.
type Manager struct {
	repo       *repository.DeviceRepository
	maxDevices int
}

// Config holds configuration for the inventory manager.
type Config struct {
	MaxDevices int
}

// NewManager creates a new inventory manager.
func NewManager(repo *repository.DeviceRepository, config Config) *Manager {
	if config.MaxDevices == 0 {
		config.MaxDevices = 100 // Default limit
	}

	return &Manager{
		repo:       repo,
		maxDevices: config.MaxDevices,
	}
}

// Create validates req and stores a new device.
func (m *Manager) Create(ctx context.Context, req *model.DeviceRequest) (*model.Device, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	existing, err := m.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count devices: %w", err)
	}
	if len(existing) >= m.maxDevices {
		return nil, fmt.Errorf("%w: maximum %d devices", model.ErrDeviceLimit, m.maxDevices)
	}

	now := time.Now()
	device := &model.Device{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Desc:      req.Desc,
		Status:    req.Status,
		Username:  req.Username,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := m.repo.Create(ctx, device); err != nil {
		return nil, fmt.Errorf("failed to persist device: %w", err)
	}

	return device, nil
}

// Get retrieves a device by ID.
func (m *Manager) Get(ctx context.Context, id string) (*model.Device, error) {
	return m.repo.GetByID(ctx, id)
}

// List retrieves all devices.
func (m *Manager) List(ctx context.Context) ([]*model.Device, error) {
	return m.repo.List(ctx)
}

// Update replaces the fields of an existing device.
func (m *Manager) Update(ctx context.Context, id string, req *model.DeviceRequest) (*model.Device, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	device, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	device.Name = req.Name
	device.Desc = req.Desc
	device.Status = req.Status
	device.Username = req.Username

	if err := m.repo.Update(ctx, device); err != nil {
		return nil, err
	}
	return device, nil
}

// Delete removes a device.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.repo.Delete(ctx, id)
}
