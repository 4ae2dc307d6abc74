package measurement

import (
	"gonum.org/v1/gonum/stat"
)

// FieldStats is the mean and sample standard deviation of one field.
type FieldStats struct {
	Mean   float64 `yaml:"mean"`
	StdDev float64 `yaml:"stddev"`
}

// Summary aggregates the samples of one measurement run.
type Summary struct {
	RunID       string     `yaml:"run_id"`
	Samples     int        `yaml:"samples"`
	FaceWidth   FieldStats `yaml:"face_width_cm"`
	FaceHeight  FieldStats `yaml:"face_height_cm"`
	EyeDistance FieldStats `yaml:"eye_distance_cm"`
}

// Run collects reported values for one measuring phase.
type Run struct {
	id     string
	widths []float64
	height []float64
	eyes   []float64
}

func NewRun(id string) *Run {
	return &Run{id: id}
}

func (r *Run) ID() string { return r.id }

func (r *Run) Add(m Reported) {
	r.widths = append(r.widths, m.FaceWidth)
	r.height = append(r.height, m.FaceHeight)
	r.eyes = append(r.eyes, m.EyeDistance)
}

func (r *Run) Len() int { return len(r.widths) }

// Summary computes per-field statistics. A single sample has zero deviation.
func (r *Run) Summary() Summary {
	return Summary{
		RunID:       r.id,
		Samples:     r.Len(),
		FaceWidth:   fieldStats(r.widths),
		FaceHeight:  fieldStats(r.height),
		EyeDistance: fieldStats(r.eyes),
	}
}

func fieldStats(xs []float64) FieldStats {
	switch len(xs) {
	case 0:
		return FieldStats{}
	case 1:
		return FieldStats{Mean: xs[0]}
	}
	mean, std := stat.MeanStdDev(xs, nil)
	return FieldStats{Mean: mean, StdDev: std}
}
