// Package video connects the guide to OpenCV: camera capture, the drawing
// surface and the display window.
package video

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"facegauge/timeutil"
)

// ErrDeviceUnavailable is returned when the camera cannot be opened or read.
var ErrDeviceUnavailable = errors.New("camera unavailable")

// Frame is one captured image. The receiver owns it and must Close it.
type Frame struct {
	mat      gocv.Mat
	Sequence int64
	Time     time.Time
}

// Size returns the native frame resolution.
func (f *Frame) Size() (int, int) {
	if f == nil || f.mat.Ptr() == nil {
		return 0, 0
	}
	return f.mat.Cols(), f.mat.Rows()
}

func (f *Frame) Mat() gocv.Mat { return f.mat }

func (f *Frame) Close() error {
	if f == nil || f.mat.Ptr() == nil {
		return nil
	}
	return f.mat.Close()
}

// StatusFunc is called from the capture goroutine when the device goes away
// (err != nil) or comes back (err == nil).
type StatusFunc func(err error)

// Capture reads frames from a camera and reopens it after read failures.
type Capture struct {
	device    string
	reconnect time.Duration
	clock     timeutil.Clock
	logger    *zap.Logger

	webcam *gocv.VideoCapture
}

// NewCapture prepares a capture; the device is opened by Open.
func NewCapture(device string, reconnect time.Duration, clock timeutil.Clock, logger *zap.Logger) *Capture {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Capture{device: device, reconnect: reconnect, clock: clock, logger: logger}
}

// ParseDevice turns "0" into a camera index and leaves anything else as a
// file or stream URL.
func ParseDevice(device string) any {
	if id, err := strconv.Atoi(device); err == nil {
		return id
	}
	return device
}

// Open opens the device and reads one frame to confirm it works.
func (c *Capture) Open() (width, height int, err error) {
	webcam, err := gocv.OpenVideoCapture(ParseDevice(c.device))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: open %s: %v", ErrDeviceUnavailable, c.device, err)
	}
	webcam.Set(gocv.VideoCaptureBufferSize, 1)

	img := gocv.NewMat()
	defer img.Close()
	if ok := webcam.Read(&img); !ok || img.Empty() {
		webcam.Close()
		return 0, 0, fmt.Errorf("%w: could not read first frame from %s", ErrDeviceUnavailable, c.device)
	}
	c.webcam = webcam
	c.logger.Info("camera opened", zap.String("device", c.device),
		zap.Int("width", img.Cols()), zap.Int("height", img.Rows()))
	return img.Cols(), img.Rows(), nil
}

// Run reads frames into out until ctx is done. A full channel drops the
// frame. On a read failure the device is closed, status is told, and the
// device is reopened every reconnect interval until it works again.
func (c *Capture) Run(ctx context.Context, out chan<- *Frame, status StatusFunc) error {
	var seq int64
	for {
		if ctx.Err() != nil {
			c.Close()
			return nil
		}
		if c.webcam == nil {
			if err := c.reopen(ctx, status); err != nil {
				return nil
			}
		}

		img := gocv.NewMat()
		if ok := c.webcam.Read(&img); !ok {
			img.Close()
			c.Close()
			err := fmt.Errorf("%w: failed to read frame from %s", ErrDeviceUnavailable, c.device)
			c.logger.Warn("camera read failed", zap.Error(err))
			if status != nil {
				status(err)
			}
			continue
		}
		if img.Empty() {
			img.Close()
			continue
		}

		f := &Frame{mat: img, Sequence: seq, Time: c.clock.Now()}
		select {
		case out <- f:
			seq++
		case <-ctx.Done():
			f.Close()
		default:
			f.Close()
		}
	}
}

// reopen blocks until the device opens or ctx is done.
func (c *Capture) reopen(ctx context.Context, status StatusFunc) error {
	for {
		timer := c.clock.NewTimer(c.reconnect)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C():
		}
		if _, _, err := c.Open(); err != nil {
			c.logger.Debug("camera reopen failed", zap.Error(err))
			continue
		}
		if status != nil {
			status(nil)
		}
		return nil
	}
}

func (c *Capture) Close() {
	if c.webcam != nil {
		c.webcam.Close()
		c.webcam = nil
	}
}
