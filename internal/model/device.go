package model

import "time"

// Device is an inventory record for a robot rig.
type Device struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Desc      string    `json:"desc"`
	Status    bool      `json:"status"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DeviceRequest represents a request to create or replace a device record.
type DeviceRequest struct {
	Name     string `json:"name" binding:"required"`
	Desc     string `json:"desc"`
	Status   bool   `json:"status"`
	Username string `json:"username"`
}

// Validate validates the device request.
func (r *DeviceRequest) Validate() error {
	if r.Name == "" {
		return ErrNameRequired
	}
	return nil
}
