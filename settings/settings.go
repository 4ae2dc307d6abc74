// Package settings holds the user-adjustable measurement parameters.
package settings

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidSettings is returned when a setting is outside its allowed range.
// The action that supplied the value must be rejected and prior state kept.
var ErrInvalidSettings = errors.New("invalid settings")

const (
	MinPrecision = 1
	MaxPrecision = 10

	// DefaultPrecision and DefaultDistortion match the initial slider/input
	// values of the measurement guide.
	DefaultPrecision  = 7
	DefaultDistortion = 0.95

	// DefaultReferenceLength is the width of an ID-1 card (credit card) in cm.
	// It is only used when configuration omits the reference length.
	DefaultReferenceLength = 8.56
)

// Settings are the parameters read by calibration and the measurement pipeline.
type Settings struct {
	PrecisionLevel       int     `yaml:"precision_level"`
	DistortionCorrection float64 `yaml:"distortion_correction"`
	KnownReferenceLength float64 `yaml:"known_reference_length"`
}

// Default returns the settings the guide starts with.
func Default() Settings {
	return Settings{
		PrecisionLevel:       DefaultPrecision,
		DistortionCorrection: DefaultDistortion,
		KnownReferenceLength: DefaultReferenceLength,
	}
}

// Validate checks every field.
func (s Settings) Validate() error {
	if err := ValidatePrecision(s.PrecisionLevel); err != nil {
		return err
	}
	if err := ValidateDistortion(s.DistortionCorrection); err != nil {
		return err
	}
	return ValidateReferenceLength(s.KnownReferenceLength)
}

// PrecisionFactor returns the precision level as a blend weight in [0.1, 1].
func (s Settings) PrecisionFactor() float64 {
	return float64(s.PrecisionLevel) / float64(MaxPrecision)
}

func ValidatePrecision(level int) error {
	if level < MinPrecision || level > MaxPrecision {
		return fmt.Errorf("%w: precision level %d outside [%d,%d]", ErrInvalidSettings, level, MinPrecision, MaxPrecision)
	}
	return nil
}

func ValidateDistortion(factor float64) error {
	if !positiveFinite(factor) {
		return fmt.Errorf("%w: distortion correction must be > 0, got %v", ErrInvalidSettings, factor)
	}
	return nil
}

func ValidateReferenceLength(length float64) error {
	if !positiveFinite(length) {
		return fmt.Errorf("%w: known reference length must be > 0, got %v", ErrInvalidSettings, length)
	}
	return nil
}

// WithPrecision returns a copy with the precision level replaced, or an error
// leaving the receiver untouched.
func (s Settings) WithPrecision(level int) (Settings, error) {
	if err := ValidatePrecision(level); err != nil {
		return s, err
	}
	s.PrecisionLevel = level
	return s, nil
}

func (s Settings) WithDistortion(factor float64) (Settings, error) {
	if err := ValidateDistortion(factor); err != nil {
		return s, err
	}
	s.DistortionCorrection = factor
	return s, nil
}

func (s Settings) WithReferenceLength(length float64) (Settings, error) {
	if err := ValidateReferenceLength(length); err != nil {
		return s, err
	}
	s.KnownReferenceLength = length
	return s, nil
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
