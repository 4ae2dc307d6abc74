package detection

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrUnknownSource is returned when no factory is registered under a name.
var ErrUnknownSource = errors.New("unknown measurement source")

// RawMeasurement is one sample in source units (centimetre-equivalent base
// scale). Sources produce a fresh value per call.
type RawMeasurement struct {
	FaceWidth   float64
	FaceHeight  float64
	EyeDistance float64
}

// MeasurementSource produces raw face measurements. Implementations must keep
// the three-field shape and unit convention so the pipeline stays source-agnostic.
type MeasurementSource interface {
	Sample() (RawMeasurement, error)
	Info() SourceInfo
	Close() error
}

// SourceInfo describes the active source.
type SourceInfo struct {
	Name     string        // registry name, e.g. "simulator"
	Kind     string        // "simulated" or "detector"
	InitTime time.Duration // time taken to construct the source
}

// Factory builds a source.
type Factory func() (MeasurementSource, error)

// SourceManager selects a measurement source by name and falls back to the
// simulator when the requested source is unknown or fails to start.
type SourceManager struct {
	logger    *zap.Logger
	factories map[string]Factory
	current   MeasurementSource
	info      SourceInfo
}

// NewSourceManager creates a manager with the simulator registered.
func NewSourceManager(logger *zap.Logger) *SourceManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	pm := &SourceManager{
		logger:    logger,
		factories: make(map[string]Factory),
	}
	pm.Register(SimulatorName, func() (MeasurementSource, error) {
		return NewSimulator(nil), nil
	})
	return pm
}

// Register adds or replaces a factory.
func (pm *SourceManager) Register(name string, f Factory) {
	pm.factories[name] = f
}

// Initialize starts the named source, falling back to the simulator.
func (pm *SourceManager) Initialize(name string) error {
	if name == "" {
		name = SimulatorName
	}
	if name != SimulatorName {
		err := pm.start(name)
		if err == nil {
			return nil
		}
		pm.logger.Warn("measurement source failed, falling back to simulator",
			zap.String("source", name), zap.Error(err))
	}
	if err := pm.start(SimulatorName); err != nil {
		return fmt.Errorf("simulator failed to start: %w", err)
	}
	return nil
}

func (pm *SourceManager) start(name string) error {
	f, ok := pm.factories[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSource, name)
	}
	startTime := time.Now()
	src, err := f()
	if err != nil {
		return err
	}
	if _, err := src.Sample(); err != nil {
		src.Close()
		return fmt.Errorf("test sample failed: %w", err)
	}
	if pm.current != nil {
		pm.current.Close()
	}
	pm.current = src
	pm.info = src.Info()
	pm.info.InitTime = time.Since(startTime)
	pm.logger.Info("measurement source initialized",
		zap.String("source", pm.info.Name),
		zap.String("kind", pm.info.Kind),
		zap.Duration("init_time", pm.info.InitTime))
	return nil
}

// Source returns the active source, or nil before Initialize.
func (pm *SourceManager) Source() MeasurementSource {
	return pm.current
}

func (pm *SourceManager) Info() SourceInfo {
	return pm.info
}

// Close closes the active source.
func (pm *SourceManager) Close() error {
	if pm.current != nil {
		return pm.current.Close()
	}
	return nil
}
