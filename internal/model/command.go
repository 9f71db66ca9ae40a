package model

import "fmt"

// Point is a normalized image-plane coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Normalized reports whether the point lies in [0,1]x[0,1].
func (p Point) Normalized() bool {
	return p.X >= 0 && p.X <= 1 && p.Y >= 0 && p.Y <= 1
}

// Coordinates is the device's reported position.
type Coordinates struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// String renders the coordinates with two decimal places.
func (c Coordinates) String() string {
	return fmt.Sprintf("x:%.2f y:%.2f z:%.2f", c.X, c.Y, c.Z)
}

// Mode is the device's operating mode.
type Mode string

const (
	ModeManual Mode = "manual"
	ModeAuto   Mode = "auto"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeManual || m == ModeAuto
}

// Status is the device's run status.
type Status string

const (
	StatusStart Status = "start"
	StatusStop  Status = "stop"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusStart || s == StatusStop
}

// ImageUpdate is the last image and its suggested target points published by
// the device.
type ImageUpdate struct {
	Image  string  `json:"image"`
	Points []Point `json:"points"`
}

// ValidatePoints returns ErrInvalidArgument if any point is outside the unit square.
func ValidatePoints(points []Point) error {
	for i, p := range points {
		if !p.Normalized() {
			return fmt.Errorf("%w: point %d (%g, %g) must be normalized between 0 and 1", ErrInvalidArgument, i, p.X, p.Y)
		}
	}
	return nil
}
