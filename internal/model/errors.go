package model

import "errors"

var (
	// ErrInvalidArgument is returned when a command carries an out-of-range point
	// or an unknown mode/status value.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDeviceNotConnected is returned when a command needs the device but no
	// device session is registered.
	ErrDeviceNotConnected = errors.New("device not connected")

	// ErrDeliveryFailed is returned when a message could not be written to a
	// connection.
	ErrDeliveryFailed = errors.New("delivery failed")

	// ErrMalformedMessage is returned when an inbound relay message cannot be
	// decoded or carries an unknown type.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrNoImage is returned when no image update has been cached yet.
	ErrNoImage = errors.New("no image available")

	// ErrDeviceNotFound is returned when a device inventory record is not found.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrNameRequired is returned when a device record is missing its name.
	ErrNameRequired = errors.New("name is required")

	// ErrClientClosed is returned when sending to a client whose connection is closed.
	ErrClientClosed = errors.New("client closed")
)

// ErrDeviceLimit is returned when the inventory already holds the maximum
// number of devices.
var ErrDeviceLimit = errors.New("device limit reached")
