// Package measurement turns raw source samples into reported physical values.
package measurement

import (
	"errors"
	"fmt"

	"facegauge/calibration"
	"facegauge/detection"
	"facegauge/settings"
)

// ErrUncalibrated is returned when a conversion is requested with no
// calibration. No measurement is produced.
var ErrUncalibrated = errors.New("calibrate before measuring")

// Reported is a measurement in physical units (cm).
type Reported struct {
	FaceWidth   float64 `yaml:"face_width_cm"`
	FaceHeight  float64 `yaml:"face_height_cm"`
	EyeDistance float64 `yaml:"eye_distance_cm"`

	// PixelsPerUnit is the calibration ratio the value was produced under.
	PixelsPerUnit float64 `yaml:"pixels_per_unit"`
}

// Extents is a measurement expressed in frame pixels.
type Extents struct {
	FaceWidth   float64 `yaml:"face_width_px"`
	FaceHeight  float64 `yaml:"face_height_px"`
	EyeDistance float64 `yaml:"eye_distance_px"`
}

// Pixels scales the measurement back into frame pixels.
func (r Reported) Pixels() Extents {
	return Extents{
		FaceWidth:   r.FaceWidth * r.PixelsPerUnit,
		FaceHeight:  r.FaceHeight * r.PixelsPerUnit,
		EyeDistance: r.EyeDistance * r.PixelsPerUnit,
	}
}

// Pipeline converts raw samples. It holds no state between calls.
type Pipeline struct {
	baseline detection.RawMeasurement
}

// NewPipeline returns a pipeline blending toward the simulator baseline.
func NewPipeline() *Pipeline {
	return &Pipeline{baseline: detection.Baseline}
}

// Convert applies horizontal distortion correction to width and eye distance,
// then blends each field toward its baseline by the precision factor. Height
// is never distortion-corrected.
func (p *Pipeline) Convert(raw detection.RawMeasurement, cal *calibration.Result, s settings.Settings) (Reported, error) {
	if cal == nil {
		return Reported{}, ErrUncalibrated
	}
	if err := s.Validate(); err != nil {
		return Reported{}, fmt.Errorf("convert measurement: %w", err)
	}

	correctedWidth := raw.FaceWidth * s.DistortionCorrection
	correctedEyes := raw.EyeDistance * s.DistortionCorrection

	w := s.PrecisionFactor()
	return Reported{
		FaceWidth:     blend(correctedWidth, p.baseline.FaceWidth, w),
		FaceHeight:    blend(raw.FaceHeight, p.baseline.FaceHeight, w),
		EyeDistance:   blend(correctedEyes, p.baseline.EyeDistance, w),
		PixelsPerUnit: cal.PixelsPerUnit,
	}, nil
}

func blend(v, base, weight float64) float64 {
	if weight == 1 {
		return v
	}
	return v*weight + base*(1-weight)
}
