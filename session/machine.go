// Package session owns the calibration-and-measurement state machine.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"facegauge/calibration"
	"facegauge/detection"
	"facegauge/measurement"
	"facegauge/settings"
)

const (
	DefaultTickInterval = time.Second
	CountdownTicks      = 5
	MeasurementTicks    = 5
	AutoCalibrateTicks  = 2
)

// Config wires a Machine to its collaborators.
type Config struct {
	Logger    *zap.Logger
	Engine    *calibration.Engine
	Pipeline  *measurement.Pipeline
	Source    detection.MeasurementSource
	Scheduler Scheduler
	Settings  settings.Settings

	// TickInterval is the length of one countdown/measurement tick.
	TickInterval time.Duration

	// NewRunID names each measurement run. Defaults to uuid.NewString.
	NewRunID func() string
	Now      func() time.Time
}

// Machine orchestrates calibration and measurement. Transitions run under a
// mutex; listeners are invoked after the mutex is released, in emission order.
type Machine struct {
	mu sync.Mutex

	logger    *zap.Logger
	engine    *calibration.Engine
	pipeline  *measurement.Pipeline
	source    detection.MeasurementSource
	scheduler Scheduler
	tick      time.Duration
	newRunID  func() string
	now       func() time.Time

	settings  settings.Settings
	listeners []Listener
	outbox    []Event

	state     State
	countdown int
	elapsed   int
	deviceOK  bool

	latest  *measurement.Reported
	run     *measurement.Run
	summary *measurement.Summary

	cancelTimer Cancel
	timerGen    uint64
}

// NewMachine creates a machine in Idle. Settings are validated.
func NewMachine(cfg Config) (*Machine, error) {
	if cfg.Engine == nil || cfg.Source == nil || cfg.Scheduler == nil {
		return nil, fmt.Errorf("session: engine, source and scheduler are required")
	}
	if err := cfg.Settings.Validate(); err != nil {
		return nil, err
	}
	m := &Machine{
		logger:    cfg.Logger,
		engine:    cfg.Engine,
		pipeline:  cfg.Pipeline,
		source:    cfg.Source,
		scheduler: cfg.Scheduler,
		tick:      cfg.TickInterval,
		newRunID:  cfg.NewRunID,
		now:       cfg.Now,
		settings:  cfg.Settings,
		state:     Idle,
		deviceOK:  true,
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if m.pipeline == nil {
		m.pipeline = measurement.NewPipeline()
	}
	if m.tick <= 0 {
		m.tick = DefaultTickInterval
	}
	if m.newRunID == nil {
		m.newRunID = uuid.NewString
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m, nil
}

// Subscribe registers a listener for all subsequent events.
func (m *Machine) Subscribe(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// do runs fn under the lock and then delivers the events it queued.
func (m *Machine) do(fn func() error) error {
	m.mu.Lock()
	err := fn()
	events := m.outbox
	m.outbox = nil
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	for _, ev := range events {
		for _, l := range listeners {
			l(ev)
		}
	}
	return err
}

func (m *Machine) emit(ev Event) {
	ev.Time = m.now()
	m.outbox = append(m.outbox, ev)
}

// fail queues an error event and returns err unchanged.
func (m *Machine) fail(err error) error {
	kind := KindOf(err)
	m.logger.Debug("action rejected", zap.String("kind", string(kind)), zap.Stringer("state", m.state), zap.Error(err))
	m.emit(Event{Kind: EventError, ErrKind: kind, Message: err.Error(), From: m.state, To: m.state})
	return err
}

func (m *Machine) changeState(next State) {
	if m.state == next {
		return
	}
	prev := m.state
	m.state = next
	m.logger.Debug("state changed", zap.Stringer("from", prev), zap.Stringer("to", next))
	m.emit(Event{Kind: EventStateChanged, From: prev, To: next})
}

// startTimer cancels any running timer before installing the new one, so at
// most one timer is ever active.
func (m *Machine) startTimer(schedule func(fn func()) Cancel, fn func()) {
	m.stopTimer()
	gen := m.timerGen
	m.cancelTimer = schedule(func() {
		_ = m.do(func() error {
			if gen != m.timerGen {
				return nil
			}
			fn()
			return nil
		})
	})
}

// stopTimer cancels the active timer and invalidates callbacks already queued.
func (m *Machine) stopTimer() {
	if m.cancelTimer != nil {
		m.cancelTimer()
		m.cancelTimer = nil
	}
	m.timerGen++
}

func (m *Machine) transitionError(action string) error {
	return fmt.Errorf("%w: %s during %s", ErrInvalidTransition, action, m.state)
}

// BeginManual enters manual calibration. Calling it again restarts the pair.
func (m *Machine) BeginManual() error {
	return m.do(func() error {
		if m.state != Idle && m.state != ManualCalibrating {
			return m.fail(m.transitionError("manual calibration"))
		}
		if !m.deviceOK {
			return m.fail(ErrDeviceUnavailable)
		}
		m.engine.BeginManual()
		m.changeState(ManualCalibrating)
		m.emit(Event{Kind: EventCalibrationStarted, Method: calibration.MethodManual})
		return nil
	})
}

// BeginAuto starts the automatic estimate, published after AutoCalibrateTicks.
func (m *Machine) BeginAuto() error {
	return m.do(func() error {
		if m.state != Idle {
			return m.fail(m.transitionError("auto calibration"))
		}
		if !m.deviceOK {
			return m.fail(ErrDeviceUnavailable)
		}
		m.changeState(AutoCalibrating)
		m.emit(Event{Kind: EventCalibrationStarted, Method: calibration.MethodAuto})
		m.startTimer(func(fn func()) Cancel {
			return m.scheduler.After(AutoCalibrateTicks*m.tick, fn)
		}, m.finishAuto)
		return nil
	})
}

func (m *Machine) finishAuto() {
	if m.state != AutoCalibrating {
		return
	}
	m.stopTimer()
	res, err := m.engine.AutoEstimate(m.settings.PrecisionLevel)
	m.changeState(Idle)
	if err != nil {
		_ = m.fail(err)
		return
	}
	m.emit(Event{Kind: EventCalibrationCompleted, Method: res.Method, Calibration: &res})
}

// Click maps a display-space click into the frame and records it. Clicks
// outside manual calibration are ignored.
func (m *Machine) Click(clientX, clientY float64, rect calibration.Rect, frameWidth, frameHeight int) error {
	return m.do(func() error {
		if m.state != ManualCalibrating {
			return nil
		}
		p, err := calibration.MapToFrame(clientX, clientY, rect, frameWidth, frameHeight)
		if err != nil {
			return m.fail(err)
		}
		return m.recordPoint(p)
	})
}

// RecordPoint records a frame-space calibration point.
func (m *Machine) RecordPoint(p calibration.Point) error {
	return m.do(func() error {
		return m.recordPoint(p)
	})
}

func (m *Machine) recordPoint(p calibration.Point) error {
	if m.state != ManualCalibrating {
		return m.fail(m.transitionError("calibration point"))
	}
	res, err := m.engine.RecordPoint(p, m.settings)
	if err != nil {
		if !m.engine.Collecting() {
			// The pair was consumed; collect a fresh one.
			m.engine.BeginManual()
		}
		return m.fail(err)
	}
	m.emit(Event{Kind: EventPointRecorded, Point: &p})
	if res == nil {
		return nil
	}
	m.changeState(Idle)
	m.emit(Event{Kind: EventCalibrationCompleted, Method: res.Method, Calibration: res})
	return nil
}

// ToggleDetection starts the countdown from Idle, or stops a countdown or
// measurement in progress.
func (m *Machine) ToggleDetection() error {
	return m.do(func() error {
		switch m.state {
		case Idle:
			return m.startCountdown()
		case CountingDown, Measuring:
			m.stopTimer()
			m.run = nil
			m.changeState(Idle)
			m.emit(Event{Kind: EventMeasurementStopped})
			return nil
		default:
			return m.fail(m.transitionError("toggle detection"))
		}
	})
}

func (m *Machine) startCountdown() error {
	if !m.engine.Calibrated() {
		return m.fail(measurement.ErrUncalibrated)
	}
	if !m.deviceOK {
		return m.fail(ErrDeviceUnavailable)
	}
	m.countdown = CountdownTicks
	m.elapsed = 0
	m.changeState(CountingDown)
	m.emit(Event{Kind: EventCountdown, SecondsRemaining: m.countdown})
	m.startTimer(func(fn func()) Cancel {
		return m.scheduler.Every(m.tick, fn)
	}, m.onTick)
	return nil
}

func (m *Machine) onTick() {
	switch m.state {
	case CountingDown:
		m.countdown--
		m.emit(Event{Kind: EventCountdown, SecondsRemaining: m.countdown})
		if m.countdown <= 0 {
			m.run = measurement.NewRun(m.newRunID())
			m.elapsed = 0
			m.changeState(Measuring)
			m.emit(Event{Kind: EventMeasurementStarted, RunID: m.run.ID()})
		}
	case Measuring:
		m.elapsed++
		m.sample()
		m.emit(Event{
			Kind:             EventMeasurementProgress,
			SecondsRemaining: MeasurementTicks - m.elapsed,
			RunID:            m.run.ID(),
			Measurement:      m.latestCopy(),
		})
		if m.elapsed >= MeasurementTicks {
			m.stopTimer()
			s := m.run.Summary()
			m.summary = &s
			m.changeState(Completed)
			m.emit(Event{Kind: EventMeasurementCompleted, RunID: m.run.ID(), Measurement: m.latestCopy()})
		}
	}
}

func (m *Machine) sample() {
	raw, err := m.source.Sample()
	if err != nil {
		m.logger.Warn("measurement sample failed", zap.Error(err))
		_ = m.fail(err)
		return
	}
	rep, err := m.pipeline.Convert(raw, m.engine.Result(), m.settings)
	if err != nil {
		_ = m.fail(err)
		return
	}
	m.latest = &rep
	m.run.Add(rep)
}

// ViewResults dismisses the completion view. Calibration and the last
// measurement remain available.
func (m *Machine) ViewResults() (Results, error) {
	var res Results
	err := m.do(func() error {
		if m.state != Completed {
			return m.fail(m.transitionError("view results"))
		}
		res = m.results()
		m.changeState(Idle)
		m.emit(Event{Kind: EventResultsViewed, Results: &res, RunID: res.Summary.RunID})
		return nil
	})
	return res, err
}

func (m *Machine) results() Results {
	res := Results{
		Calibration: m.engine.Result(),
		Measurement: m.latestCopy(),
		Settings:    m.settings,
	}
	if m.summary != nil {
		s := *m.summary
		res.Summary = &s
	} else {
		res.Summary = &measurement.Summary{}
	}
	return res
}

// Reset returns to Idle from any state, clearing calibration, pending points,
// measurements and every timer.
func (m *Machine) Reset() {
	_ = m.do(func() error {
		m.stopTimer()
		m.engine.Reset()
		m.latest = nil
		m.run = nil
		m.summary = nil
		m.countdown = 0
		m.elapsed = 0
		m.changeState(Idle)
		m.emit(Event{Kind: EventReset})
		m.logger.Info("session reset")
		return nil
	})
}

// DeviceLost returns to Idle and blocks new work until DeviceRecovered.
// The calibration is kept.
func (m *Machine) DeviceLost(reason error) {
	_ = m.do(func() error {
		if !m.deviceOK {
			return nil
		}
		m.deviceOK = false
		m.stopTimer()
		m.engine.CancelManual()
		m.run = nil
		m.changeState(Idle)
		m.emit(Event{Kind: EventDeviceLost})
		err := ErrDeviceUnavailable
		if reason != nil {
			err = fmt.Errorf("%w: %v", ErrDeviceUnavailable, reason)
		}
		m.logger.Warn("video device lost", zap.Error(reason))
		_ = m.fail(err)
		return nil
	})
}

func (m *Machine) DeviceRecovered() {
	_ = m.do(func() error {
		if m.deviceOK {
			return nil
		}
		m.deviceOK = true
		m.logger.Info("video device recovered")
		m.emit(Event{Kind: EventDeviceRecovered})
		return nil
	})
}

// SetPrecision updates the precision level; invalid values keep the old one.
func (m *Machine) SetPrecision(level int) error {
	return m.updateSettings(func(s settings.Settings) (settings.Settings, error) {
		return s.WithPrecision(level)
	})
}

func (m *Machine) SetDistortion(factor float64) error {
	return m.updateSettings(func(s settings.Settings) (settings.Settings, error) {
		return s.WithDistortion(factor)
	})
}

func (m *Machine) SetReferenceLength(length float64) error {
	return m.updateSettings(func(s settings.Settings) (settings.Settings, error) {
		return s.WithReferenceLength(length)
	})
}

func (m *Machine) updateSettings(fn func(settings.Settings) (settings.Settings, error)) error {
	return m.do(func() error {
		next, err := fn(m.settings)
		if err != nil {
			return m.fail(err)
		}
		m.settings = next
		s := next
		m.emit(Event{Kind: EventSettingsChanged, Settings: &s})
		return nil
	})
}

// Latest returns a copy of the last reported measurement, or nil.
func (m *Machine) Latest() *measurement.Reported {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latestCopy()
}

func (m *Machine) latestCopy() *measurement.Reported {
	if m.latest == nil {
		return nil
	}
	r := *m.latest
	return &r
}

// Snapshot is a read-only view of the machine for renderers.
type Snapshot struct {
	State            State
	CountdownLeft    int
	ElapsedTicks     int
	Pending          []calibration.Point
	Calibration      *calibration.Result
	Measurement      *measurement.Reported
	Summary          *measurement.Summary
	Settings         settings.Settings
	DeviceAvailable  bool
	TimerActive      bool
	SecondsRemaining int
}

// Snapshot copies the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := Snapshot{
		State:           m.state,
		CountdownLeft:   m.countdown,
		ElapsedTicks:    m.elapsed,
		Pending:         m.engine.Pending(),
		Calibration:     m.engine.Result(),
		Measurement:     m.latestCopy(),
		Settings:        m.settings,
		DeviceAvailable: m.deviceOK,
		TimerActive:     m.cancelTimer != nil,
	}
	if m.state == Measuring {
		snap.SecondsRemaining = MeasurementTicks - m.elapsed
	}
	if m.summary != nil {
		s := *m.summary
		snap.Summary = &s
	}
	return snap
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) Settings() settings.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}
