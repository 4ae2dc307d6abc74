package session

import (
	"errors"
	"time"

	"facegauge/calibration"
	"facegauge/measurement"
	"facegauge/settings"
)

var (
	// ErrDeviceUnavailable is returned while the video source is down.
	ErrDeviceUnavailable = errors.New("video device unavailable")
	// ErrInvalidTransition is returned for a trigger the current state does not accept.
	ErrInvalidTransition = errors.New("action not allowed in current state")
)

// EventKind names a lifecycle event for the notification layer.
type EventKind string

const (
	EventCalibrationStarted   EventKind = "calibration-started"
	EventPointRecorded        EventKind = "calibration-point"
	EventCalibrationCompleted EventKind = "calibration-completed"
	EventCountdown            EventKind = "countdown"
	EventMeasurementStarted   EventKind = "measurement-started"
	EventMeasurementProgress  EventKind = "measurement-progress"
	EventMeasurementCompleted EventKind = "measurement-completed"
	EventMeasurementStopped   EventKind = "measurement-stopped"
	EventResultsViewed        EventKind = "results-viewed"
	EventSettingsChanged      EventKind = "settings-changed"
	EventStateChanged         EventKind = "state-changed"
	EventReset                EventKind = "reset"
	EventDeviceLost           EventKind = "device-lost"
	EventDeviceRecovered      EventKind = "device-recovered"
	EventError                EventKind = "error"
)

// ErrorKind classifies errors surfaced to the user. All kinds are recoverable.
type ErrorKind string

const (
	KindNotReady           ErrorKind = "not-ready"
	KindUncalibrated       ErrorKind = "uncalibrated"
	KindInvalidSettings    ErrorKind = "invalid-settings"
	KindInvalidCalibration ErrorKind = "invalid-calibration"
	KindDeviceUnavailable  ErrorKind = "device-unavailable"
	KindInvalidTransition  ErrorKind = "invalid-transition"
	KindSourceFailure      ErrorKind = "source-failure"
)

// KindOf maps an error to the kind reported in error events.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, calibration.ErrNotReady):
		return KindNotReady
	case errors.Is(err, measurement.ErrUncalibrated):
		return KindUncalibrated
	case errors.Is(err, settings.ErrInvalidSettings):
		return KindInvalidSettings
	case errors.Is(err, calibration.ErrInvalidRatio):
		return KindInvalidCalibration
	case errors.Is(err, ErrDeviceUnavailable):
		return KindDeviceUnavailable
	case errors.Is(err, ErrInvalidTransition):
		return KindInvalidTransition
	default:
		return KindSourceFailure
	}
}

// Event is emitted on every lifecycle step. Only the fields relevant to Kind
// are set.
type Event struct {
	Kind EventKind
	Time time.Time

	From, To State

	// SecondsRemaining is set on countdown and progress events.
	SecondsRemaining int
	RunID            string

	Method      string
	Point       *calibration.Point
	Calibration *calibration.Result
	Measurement *measurement.Reported
	Results     *Results
	Settings    *settings.Settings

	ErrKind ErrorKind
	Message string
}

// Listener receives events after the triggering transition has completed.
type Listener func(Event)

// Results is what the completion view shows.
type Results struct {
	Calibration *calibration.Result   `yaml:"calibration"`
	Measurement *measurement.Reported `yaml:"measurement"`
	Summary     *measurement.Summary  `yaml:"summary"`
	Settings    settings.Settings     `yaml:"settings"`
}
