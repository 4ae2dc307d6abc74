package notify

import (
	"fmt"

	"go.uber.org/zap"

	"facegauge/calibration"
	"facegauge/session"
)

// Console turns session events into log entries and terminal messages.
type Console struct {
	logger  *zap.Logger
	history *History
}

func NewConsole(logger *zap.Logger, history *History) *Console {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Console{logger: logger, history: history}
}

// Listener returns the function to subscribe to a session.Machine.
func (c *Console) Listener() session.Listener {
	return c.Handle
}

// Handle records one event.
func (c *Console) Handle(ev session.Event) {
	msg, ok := Message(ev)
	if !ok {
		c.logger.Debug("session event", zap.String("kind", string(ev.Kind)),
			zap.Stringer("from", ev.From), zap.Stringer("to", ev.To))
		return
	}
	if ev.Kind == session.EventError {
		c.logger.Warn(msg, zap.String("kind", string(ev.ErrKind)))
	} else {
		c.logger.Info(msg, zap.String("kind", string(ev.Kind)), zap.String("run_id", ev.RunID))
	}
	if c.history != nil {
		c.history.Add(msg)
	}
}

// Message renders the user-facing text for an event. State changes and
// individual countdown ticks are not shown.
func Message(ev session.Event) (string, bool) {
	switch ev.Kind {
	case session.EventCalibrationStarted:
		if ev.Method == calibration.MethodAuto {
			return "Running automatic calibration...", true
		}
		return "Calibration mode: click both ends of the reference object", true
	case session.EventPointRecorded:
		if ev.Point == nil {
			return "", false
		}
		return fmt.Sprintf("Point recorded at (%.0f, %.0f)", ev.Point.X, ev.Point.Y), true
	case session.EventCalibrationCompleted:
		if ev.Calibration == nil {
			return "Calibration complete", true
		}
		return fmt.Sprintf("Calibration complete: %.2f px/cm (accuracy %.1f%%)",
			ev.Calibration.PixelsPerUnit, ev.Calibration.AccuracyEstimate), true
	case session.EventMeasurementStarted:
		return "Hold still, measuring...", true
	case session.EventMeasurementProgress:
		return fmt.Sprintf("Measuring... %d seconds remaining", ev.SecondsRemaining), true
	case session.EventMeasurementCompleted:
		return "Measurement complete. Press V to view results", true
	case session.EventMeasurementStopped:
		return "Detection stopped", true
	case session.EventResultsViewed:
		return "Results ready", true
	case session.EventSettingsChanged:
		if ev.Settings == nil {
			return "", false
		}
		return fmt.Sprintf("Settings: precision %d/10, distortion %.2f, reference %.2f cm",
			ev.Settings.PrecisionLevel, ev.Settings.DistortionCorrection, ev.Settings.KnownReferenceLength), true
	case session.EventReset:
		return "System reset. Ready for calibration", true
	case session.EventDeviceLost:
		return "Camera unavailable", true
	case session.EventDeviceRecovered:
		return "Camera reconnected", true
	case session.EventError:
		if ev.ErrKind == session.KindUncalibrated {
			return "Calibrate first before measuring", true
		}
		return fmt.Sprintf("Error (%s): %s", ev.ErrKind, ev.Message), true
	}
	return "", false
}
