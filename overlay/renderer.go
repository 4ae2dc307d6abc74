package overlay

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"go.uber.org/zap"

	"facegauge/calibration"
	"facegauge/session"
)

// Frame is the current video frame as seen by the renderer.
type Frame interface {
	Size() (width, height int)
}

// Canvas is the 2D drawing surface the overlay is rendered onto. A thickness
// of Filled fills the shape.
type Canvas interface {
	Size() (width, height int)
	Resize(width, height int)
	Blit(f Frame) error
	Circle(center image.Point, radius int, c color.RGBA, thickness int)
	Line(from, to image.Point, c color.RGBA, thickness int)
	Ellipse(center, axes image.Point, c color.RGBA, thickness int)
	Text(s string, org image.Point, scale float64, c color.RGBA, thickness int)
}

// Filled is the thickness value that fills a shape.
const Filled = -1

var (
	pointRed   = color.RGBA{231, 76, 60, 230}
	lineRed    = color.RGBA{231, 76, 60, 255}
	faceBlue   = color.RGBA{52, 152, 219, 255}
	guideWhite = color.RGBA{255, 255, 255, 180}
	white      = color.RGBA{255, 255, 255, 255}
	black      = color.RGBA{0, 0, 0, 255}
	statusBlue = color.RGBA{0, 150, 255, 255}
)

// Options toggles the optional overlay layers.
type Options struct {
	StatusOverlay   bool // calibration ratio and accuracy in the lower-left corner
	TerminalOverlay bool // recent notifications in the upper-left corner
}

// Renderer draws calibration points, the positioning guide and measurements.
// It only reads the session snapshot.
type Renderer struct {
	logger *zap.Logger
	opts   Options

	lastWidth  int
	lastHeight int
}

// NewRenderer creates a renderer.
func NewRenderer(logger *zap.Logger, opts Options) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{logger: logger, opts: opts}
}

// Render draws one frame. The canvas is resized to the frame's native
// resolution whenever it differs.
func (r *Renderer) Render(c Canvas, f Frame, snap session.Snapshot, messages []string) error {
	fw, fh := f.Size()
	if fw <= 0 || fh <= 0 {
		return calibration.ErrNotReady
	}
	if cw, ch := c.Size(); cw != fw || ch != fh {
		c.Resize(fw, fh)
		r.logger.Debug("overlay surface resized",
			zap.Int("from_width", cw), zap.Int("from_height", ch),
			zap.Int("width", fw), zap.Int("height", fh))
	}
	r.lastWidth, r.lastHeight = fw, fh

	if err := c.Blit(f); err != nil {
		return fmt.Errorf("draw frame: %w", err)
	}

	switch snap.State {
	case session.ManualCalibrating:
		r.drawCalibrationPoints(c, snap.Pending)
	case session.CountingDown:
		r.drawPositionGuide(c, fw, fh)
		r.drawCountdown(c, fw, fh, snap.CountdownLeft)
	case session.Measuring, session.Completed:
		r.drawPositionGuide(c, fw, fh)
		if snap.Measurement != nil {
			r.drawMeasurements(c, fw, fh, snap)
		}
		if snap.State == session.Completed {
			r.drawCompletion(c, fw, fh)
		}
	}

	if r.opts.StatusOverlay {
		r.drawStatus(c, fh, snap)
	}
	if r.opts.TerminalOverlay {
		r.drawTerminal(c, messages)
	}
	return nil
}

// LastSize returns the frame size used by the most recent Render.
func (r *Renderer) LastSize() (int, int) {
	return r.lastWidth, r.lastHeight
}

func (r *Renderer) drawCalibrationPoints(c Canvas, pts []calibration.Point) {
	for _, p := range pts {
		c.Circle(toImage(p), 8, pointRed, Filled)
		c.Circle(toImage(p), 8, white, 2)
	}
	if len(pts) < 2 {
		return
	}
	a, b := toImage(pts[0]), toImage(pts[1])
	c.Line(a, b, pointRed, 3)

	mid := image.Pt((a.X+b.X)/2, (a.Y+b.Y)/2-15)
	outlinedText(c, fmt.Sprintf("%.1f px", pts[0].Distance(pts[1])), mid, 0.7)
}

func (r *Renderer) drawPositionGuide(c Canvas, w, h int) {
	center := image.Pt(w/2, h/2)
	radius := int(float64(min(w, h)) * 0.2)
	drawDashedCircle(c, center, radius, guideWhite, 2, 5)

	c.Line(image.Pt(center.X-10, center.Y), image.Pt(center.X+10, center.Y), white, 2)
	c.Line(image.Pt(center.X, center.Y-10), image.Pt(center.X, center.Y+10), white, 2)
}

func (r *Renderer) drawCountdown(c Canvas, w, h, remaining int) {
	outlinedText(c, fmt.Sprintf("%d", remaining), image.Pt(w/2-12, h/2-int(float64(min(w, h))*0.2)-20), 1.6)
}

// drawMeasurements draws the face outline, eyes and the three measurement
// lines. Shape sizes follow the frame, scaled from a 500 px reference.
func (r *Renderer) drawMeasurements(c Canvas, w, h int, snap session.Snapshot) {
	m := snap.Measurement
	center := image.Pt(w/2, h/2)
	scale := float64(min(w, h)) / 500

	faceW := int(130 * scale)
	faceH := int(170 * scale)
	eyeR := int(15 * scale)
	eyeDX := int(45 * scale)
	eyeDY := int(30 * scale)

	c.Ellipse(center, image.Pt(faceW, faceH), faceBlue, 3)

	leftEye := image.Pt(center.X-eyeDX, center.Y-eyeDY)
	rightEye := image.Pt(center.X+eyeDX, center.Y-eyeDY)
	c.Circle(leftEye, eyeR, faceBlue, Filled)
	c.Circle(rightEye, eyeR, faceBlue, Filled)

	c.Line(leftEye, rightEye, lineRed, 2)
	outlinedText(c, cm(m.EyeDistance), image.Pt(center.X, center.Y-eyeDY-20), 0.6)

	c.Line(image.Pt(center.X-faceW, center.Y), image.Pt(center.X+faceW, center.Y), lineRed, 2)
	outlinedText(c, cm(m.FaceWidth), image.Pt(center.X, center.Y+20), 0.6)

	c.Line(image.Pt(center.X, center.Y-faceH), image.Pt(center.X, center.Y+faceH), lineRed, 2)
	outlinedText(c, cm(m.FaceHeight), image.Pt(center.X+faceW+10, center.Y), 0.6)
}

func (r *Renderer) drawCompletion(c Canvas, w, h int) {
	outlinedText(c, "Measurement complete - press V to view results", image.Pt(20, h-50), 0.6)
}

func (r *Renderer) drawStatus(c Canvas, h int, snap session.Snapshot) {
	line := fmt.Sprintf("%s | uncalibrated", snap.State)
	if snap.Calibration != nil {
		line = fmt.Sprintf("%s | %.2f px/cm | accuracy %.1f%% | precision %d/10",
			snap.State, snap.Calibration.PixelsPerUnit, snap.Calibration.AccuracyEstimate, snap.Settings.PrecisionLevel)
	}
	if !snap.DeviceAvailable {
		line += " | CAMERA UNAVAILABLE"
	}
	c.Text(line, image.Pt(10, h-15), 0.5, statusBlue, 1)
}

func (r *Renderer) drawTerminal(c Canvas, lines []string) {
	for i, l := range lines {
		c.Text(l, image.Pt(10, 20+i*18), 0.45, white, 1)
	}
}

// drawDashedCircle approximates a dashed stroke with short chords.
func drawDashedCircle(c Canvas, center image.Point, radius int, col color.RGBA, thickness, dash int) {
	if radius <= 0 {
		return
	}
	circumference := 2 * math.Pi * float64(radius)
	segments := int(circumference / float64(dash))
	if segments < 2 {
		segments = 2
	}
	step := 2 * math.Pi / float64(segments)
	for i := 0; i < segments; i += 2 {
		a0, a1 := float64(i)*step, float64(i+1)*step
		c.Line(polar(center, radius, a0), polar(center, radius, a1), col, thickness)
	}
}

func polar(center image.Point, radius int, angle float64) image.Point {
	return image.Pt(
		center.X+int(math.Round(float64(radius)*math.Cos(angle))),
		center.Y+int(math.Round(float64(radius)*math.Sin(angle))),
	)
}

// outlinedText draws white text over a black outline.
func outlinedText(c Canvas, s string, org image.Point, scale float64) {
	c.Text(s, org, scale, black, 4)
	c.Text(s, org, scale, white, 2)
}

func toImage(p calibration.Point) image.Point {
	return image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
}

func cm(v float64) string {
	return fmt.Sprintf("%.2f cm", v)
}
