// Package calibration converts pointer clicks into frame pixels and derives the
// pixels-per-unit ratio used to scale measurements.
package calibration

import (
	"errors"
	"math"
)

// ErrNotReady is returned while the display rectangle or the frame has no
// size yet. It is not fatal; the caller retries on the next frame.
var ErrNotReady = errors.New("display or frame not ready")

// Point is a coordinate in frame-pixel space.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Distance returns the euclidean distance between two points.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Rect is the on-screen bounding box of the element displaying the frame.
type Rect struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// MapToFrame converts display-space pointer coordinates into frame-pixel space.
// The axes are scaled independently, so a stretched display maps correctly.
func MapToFrame(pointerX, pointerY float64, rect Rect, frameWidth, frameHeight int) (Point, error) {
	if rect.Width <= 0 || rect.Height <= 0 || frameWidth <= 0 || frameHeight <= 0 {
		return Point{}, ErrNotReady
	}
	scaleX := float64(frameWidth) / rect.Width
	scaleY := float64(frameHeight) / rect.Height
	return Point{
		X: (pointerX - rect.Left) * scaleX,
		Y: (pointerY - rect.Top) * scaleY,
	}, nil
}
