package video

import (
	"errors"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"facegauge/overlay"
)

var _ overlay.Canvas = (*MatCanvas)(nil)

// errUnsupportedFrame is returned by Blit for frames not captured here.
var errUnsupportedFrame = errors.New("video: frame is not a captured frame")

// MatCanvas is an overlay.Canvas backed by a BGR Mat.
type MatCanvas struct {
	mat gocv.Mat
}

func NewMatCanvas() *MatCanvas {
	return &MatCanvas{mat: gocv.NewMat()}
}

func (c *MatCanvas) Size() (int, int) {
	if c.mat.Empty() {
		return 0, 0
	}
	return c.mat.Cols(), c.mat.Rows()
}

// Resize reallocates the backing Mat. Contents are discarded.
func (c *MatCanvas) Resize(width, height int) {
	c.mat.Close()
	c.mat = gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
}

func (c *MatCanvas) Blit(f overlay.Frame) error {
	frame, ok := f.(*Frame)
	if !ok {
		return errUnsupportedFrame
	}
	w, h := c.Size()
	if fw, fh := frame.Size(); fw == w && fh == h {
		frame.mat.CopyTo(&c.mat)
		return nil
	}
	gocv.Resize(frame.mat, &c.mat, image.Pt(w, h), 0, 0, gocv.InterpolationLinear)
	return nil
}

func (c *MatCanvas) Circle(center image.Point, radius int, col color.RGBA, thickness int) {
	gocv.Circle(&c.mat, center, radius, col, thickness)
}

func (c *MatCanvas) Line(from, to image.Point, col color.RGBA, thickness int) {
	gocv.Line(&c.mat, from, to, col, thickness)
}

func (c *MatCanvas) Ellipse(center, axes image.Point, col color.RGBA, thickness int) {
	gocv.Ellipse(&c.mat, center, axes, 0, 0, 360, col, thickness)
}

func (c *MatCanvas) Text(s string, org image.Point, scale float64, col color.RGBA, thickness int) {
	gocv.PutText(&c.mat, s, org, gocv.FontHersheySimplex, scale, col, thickness)
}

// Mat exposes the drawn image for display.
func (c *MatCanvas) Mat() gocv.Mat { return c.mat }

func (c *MatCanvas) Close() error { return c.mat.Close() }
