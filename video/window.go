package video

import (
	"image"

	"gocv.io/x/gocv"
)

// Keys returned by Window.WaitKey.
const (
	KeyNone   = -1
	KeyEscape = 27
	KeySpace  = ' '
)

// Window shows the rendered canvas scaled to the configured display size.
type Window struct {
	win    *gocv.Window
	scaled gocv.Mat
	width  int
	height int
}

func NewWindow(title string, width, height int) *Window {
	win := gocv.NewWindow(title)
	win.ResizeWindow(width, height)
	return &Window{win: win, scaled: gocv.NewMat(), width: width, height: height}
}

// Show displays the canvas at the display size.
func (w *Window) Show(c *MatCanvas) {
	if c.mat.Empty() {
		return
	}
	gocv.Resize(c.mat, &w.scaled, image.Pt(w.width, w.height), 0, 0, gocv.InterpolationLinear)
	w.win.IMShow(w.scaled)
}

// WaitKey pumps the window event loop and returns the pressed key with
// modifier bits stripped, or KeyNone.
func (w *Window) WaitKey(delayMs int) int {
	key := w.win.WaitKey(delayMs)
	if key < 0 {
		return KeyNone
	}
	return key & 0xff
}

func (w *Window) IsOpen() bool { return w.win.IsOpen() }

func (w *Window) Close() error {
	w.scaled.Close()
	return w.win.Close()
}
