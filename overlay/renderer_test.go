package overlay

import (
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"facegauge/calibration"
	"facegauge/measurement"
	"facegauge/session"
)

type fakeFrame struct{ w, h int }

func (f fakeFrame) Size() (int, int) { return f.w, f.h }

type recordingCanvas struct {
	w, h     int
	resizes  int
	blits    int
	circles  []image.Point
	lines    int
	ellipses []image.Point
	texts    []string
}

func (c *recordingCanvas) Size() (int, int) { return c.w, c.h }
func (c *recordingCanvas) Resize(w, h int) {
	c.w, c.h = w, h
	c.resizes++
}
func (c *recordingCanvas) Blit(Frame) error { c.blits++; return nil }
func (c *recordingCanvas) Circle(center image.Point, _ int, _ color.RGBA, _ int) {
	c.circles = append(c.circles, center)
}
func (c *recordingCanvas) Line(_, _ image.Point, _ color.RGBA, _ int) { c.lines++ }
func (c *recordingCanvas) Ellipse(_, axes image.Point, _ color.RGBA, _ int) {
	c.ellipses = append(c.ellipses, axes)
}
func (c *recordingCanvas) Text(s string, _ image.Point, _ float64, _ color.RGBA, _ int) {
	c.texts = append(c.texts, s)
}

func (c *recordingCanvas) hasText(sub string) bool {
	for _, t := range c.texts {
		if strings.Contains(t, sub) {
			return true
		}
	}
	return false
}

func TestRenderResizesToFrame(t *testing.T) {
	r := NewRenderer(zap.NewNop(), Options{})
	c := &recordingCanvas{w: 300, h: 150}

	require.NoError(t, r.Render(c, fakeFrame{640, 480}, session.Snapshot{}, nil))
	require.NoError(t, r.Render(c, fakeFrame{640, 480}, session.Snapshot{}, nil))
	assert.Equal(t, 1, c.resizes)

	require.NoError(t, r.Render(c, fakeFrame{480, 640}, session.Snapshot{}, nil))
	assert.Equal(t, 2, c.resizes)
	w, h := c.Size()
	assert.Equal(t, 480, w)
	assert.Equal(t, 640, h)
	assert.Equal(t, 3, c.blits)
}

func TestRenderNotReady(t *testing.T) {
	r := NewRenderer(nil, Options{})
	err := r.Render(&recordingCanvas{}, fakeFrame{0, 0}, session.Snapshot{}, nil)
	assert.ErrorIs(t, err, calibration.ErrNotReady)
}

func TestIdleDrawsOnlyFrame(t *testing.T) {
	r := NewRenderer(nil, Options{})
	c := &recordingCanvas{}
	snap := session.Snapshot{
		State:       session.Idle,
		Pending:     []calibration.Point{{X: 1, Y: 1}},
		Measurement: &measurement.Reported{FaceWidth: 14},
	}
	require.NoError(t, r.Render(c, fakeFrame{640, 480}, snap, nil))
	assert.Equal(t, 1, c.blits)
	assert.Empty(t, c.circles)
	assert.Zero(t, c.lines)
	assert.Empty(t, c.texts)
}

func TestManualCalibrationDrawsPointsAndDistance(t *testing.T) {
	r := NewRenderer(nil, Options{})
	c := &recordingCanvas{}

	one := session.Snapshot{State: session.ManualCalibrating, Pending: []calibration.Point{{X: 10, Y: 20}}}
	require.NoError(t, r.Render(c, fakeFrame{640, 480}, one, nil))
	assert.Equal(t, []image.Point{{10, 20}, {10, 20}}, c.circles)
	assert.Zero(t, c.lines)

	c = &recordingCanvas{}
	two := session.Snapshot{State: session.ManualCalibrating, Pending: []calibration.Point{{X: 0, Y: 0}, {X: 30, Y: 40}}}
	require.NoError(t, r.Render(c, fakeFrame{640, 480}, two, nil))
	assert.Len(t, c.circles, 4)
	assert.Equal(t, 1, c.lines)
	assert.True(t, c.hasText("50.0 px"))
}

func TestMeasuringDrawsGuideAndMeasurements(t *testing.T) {
	r := NewRenderer(nil, Options{})
	c := &recordingCanvas{}
	snap := session.Snapshot{
		State:       session.Measuring,
		Measurement: &measurement.Reported{FaceWidth: 14.21, FaceHeight: 20.5, EyeDistance: 6.333},
	}
	require.NoError(t, r.Render(c, fakeFrame{1000, 500}, snap, nil))

	// scale = 500/500: face ellipse axes are 130x170.
	assert.Equal(t, []image.Point{{130, 170}}, c.ellipses)
	assert.True(t, c.hasText("14.21 cm"))
	assert.True(t, c.hasText("20.50 cm"))
	assert.True(t, c.hasText("6.33 cm"))
	assert.Greater(t, c.lines, 5, "guide dashes, crosshair and measurement lines")
}

func TestMeasuringWithoutSampleDrawsGuideOnly(t *testing.T) {
	r := NewRenderer(nil, Options{})
	c := &recordingCanvas{}
	require.NoError(t, r.Render(c, fakeFrame{640, 480}, session.Snapshot{State: session.Measuring}, nil))
	assert.Empty(t, c.ellipses)
	assert.Greater(t, c.lines, 2)
}

func TestCountdownShowsRemaining(t *testing.T) {
	r := NewRenderer(nil, Options{})
	c := &recordingCanvas{}
	require.NoError(t, r.Render(c, fakeFrame{640, 480}, session.Snapshot{State: session.CountingDown, CountdownLeft: 3}, nil))
	assert.True(t, c.hasText("3"))
	assert.Empty(t, c.ellipses)
}

func TestStatusAndTerminalOverlays(t *testing.T) {
	r := NewRenderer(nil, Options{StatusOverlay: true, TerminalOverlay: true})
	c := &recordingCanvas{}
	snap := session.Snapshot{
		State:       session.Idle,
		Calibration: &calibration.Result{PixelsPerUnit: 42.126, AccuracyEstimate: 98.4},
	}
	snap.Settings.PrecisionLevel = 7
	require.NoError(t, r.Render(c, fakeFrame{640, 480}, snap, []string{"calibration-completed"}))
	assert.True(t, c.hasText("42.13 px/cm"))
	assert.True(t, c.hasText("98.4%"))
	assert.True(t, c.hasText("CAMERA UNAVAILABLE"))
	assert.True(t, c.hasText("calibration-completed"))
}
