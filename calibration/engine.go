package calibration

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"facegauge/settings"
)

var (
	// ErrNotCollecting is returned when a point arrives outside manual calibration.
	ErrNotCollecting = errors.New("manual calibration not active")
	// ErrInvalidRatio is returned when two points produce a zero or non-finite ratio.
	ErrInvalidRatio = errors.New("calibration ratio must be positive and finite")
)

// Calibration methods recorded on a Result.
const (
	MethodManual = "manual"
	MethodAuto   = "auto"
)

const (
	autoBaseRatio  = 38.0
	autoRatioSlope = 2.0
	autoJitter     = 2.0
)

// Result is a published calibration.
type Result struct {
	PixelsPerUnit    float64   `yaml:"pixels_per_unit"`
	AccuracyEstimate float64   `yaml:"accuracy_estimate"`
	Method           string    `yaml:"method"`
	DistancePx       float64   `yaml:"distance_px,omitempty"`
	Points           []Point   `yaml:"points,omitempty"`
	Timestamp        time.Time `yaml:"timestamp"`
}

// ManualAccuracy is the confidence reported for a two-point calibration.
func ManualAccuracy(precision int) float64 {
	return 90 + float64(precision)*1.2
}

// AutoAccuracy is the confidence reported for an automatic estimate.
func AutoAccuracy(precision int) float64 {
	return 85 + float64(precision)*1.5
}

// Engine holds the pending two-point sample and the published result.
// It is not safe for concurrent use; the session event loop owns it.
type Engine struct {
	logger *zap.Logger
	rng    *rand.Rand
	now    func() time.Time

	collecting bool
	pending    []Point
	result     *Result
}

// NewEngine creates an uncalibrated engine. A nil rng seeds one from the runtime.
func NewEngine(logger *zap.Logger, rng *rand.Rand) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Engine{
		logger:  logger,
		rng:     rng,
		now:     time.Now,
		pending: make([]Point, 0, 2),
	}
}

// BeginManual clears any pending points and starts collecting a new pair.
func (e *Engine) BeginManual() {
	e.collecting = true
	e.pending = e.pending[:0]
	e.logger.Debug("manual calibration started")
}

// CancelManual stops collecting without touching the published result.
func (e *Engine) CancelManual() {
	e.collecting = false
	e.pending = e.pending[:0]
}

// RecordPoint appends p to the pending sample. The second point completes the
// calibration: the result is published and returned, and the sample is cleared
// so the next pair starts fresh. A nil result means more points are needed.
func (e *Engine) RecordPoint(p Point, s settings.Settings) (*Result, error) {
	if !e.collecting {
		return nil, ErrNotCollecting
	}
	if len(e.pending) == 1 {
		// Check before accepting the second point so the first is kept on error.
		if err := settings.ValidateReferenceLength(s.KnownReferenceLength); err != nil {
			return nil, err
		}
	}
	e.pending = append(e.pending, p)
	if len(e.pending) < 2 {
		e.logger.Debug("calibration point recorded", zap.Float64("x", p.X), zap.Float64("y", p.Y))
		return nil, nil
	}

	p0, p1 := e.pending[0], e.pending[1]
	distancePx := p0.Distance(p1)
	ratio := distancePx / s.KnownReferenceLength

	e.collecting = false
	e.pending = e.pending[:0]

	if ratio <= 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return nil, fmt.Errorf("%w: %.3f px over %.3f", ErrInvalidRatio, distancePx, s.KnownReferenceLength)
	}

	res := &Result{
		PixelsPerUnit:    ratio,
		AccuracyEstimate: ManualAccuracy(s.PrecisionLevel),
		Method:           MethodManual,
		DistancePx:       distancePx,
		Points:           []Point{p0, p1},
		Timestamp:        e.now(),
	}
	e.result = res
	e.logger.Info("manual calibration completed",
		zap.Float64("distance_px", distancePx),
		zap.Float64("pixels_per_unit", ratio),
		zap.Float64("accuracy", res.AccuracyEstimate))
	return res, nil
}

// AutoEstimate publishes a synthetic ratio of 38 + 2*precision with a bounded
// jitter of ±2. It never reads pointer input.
func (e *Engine) AutoEstimate(precision int) (Result, error) {
	if err := settings.ValidatePrecision(precision); err != nil {
		return Result{}, err
	}
	jitter := e.rng.Float64()*2*autoJitter - autoJitter
	res := Result{
		PixelsPerUnit:    autoBaseRatio + autoRatioSlope*float64(precision) + jitter,
		AccuracyEstimate: AutoAccuracy(precision),
		Method:           MethodAuto,
		Timestamp:        e.now(),
	}
	e.collecting = false
	e.pending = e.pending[:0]
	e.result = &res
	e.logger.Info("auto calibration completed",
		zap.Int("precision", precision),
		zap.Float64("pixels_per_unit", res.PixelsPerUnit),
		zap.Float64("accuracy", res.AccuracyEstimate))
	return res, nil
}

// Reset clears the pending sample and the published result.
func (e *Engine) Reset() {
	e.collecting = false
	e.pending = e.pending[:0]
	e.result = nil
}

func (e *Engine) Calibrated() bool { return e.result != nil }

func (e *Engine) Collecting() bool { return e.collecting }

// Result returns a copy of the published calibration, or nil.
func (e *Engine) Result() *Result {
	if e.result == nil {
		return nil
	}
	r := *e.result
	r.Points = append([]Point(nil), e.result.Points...)
	return &r
}

// Pending returns a copy of the points collected so far.
func (e *Engine) Pending() []Point {
	return append([]Point(nil), e.pending...)
}
