package measurement

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facegauge/calibration"
	"facegauge/detection"
	"facegauge/settings"
)

var testCal = &calibration.Result{PixelsPerUnit: 40, AccuracyEstimate: 95, Method: calibration.MethodAuto}

func TestConvertIdentityAtFullPrecision(t *testing.T) {
	p := NewPipeline()
	sim := detection.NewSimulator(rand.New(rand.NewPCG(1, 2)))
	s := settings.Settings{PrecisionLevel: 10, DistortionCorrection: 1.0, KnownReferenceLength: 8.56}

	for i := 0; i < 100; i++ {
		raw, err := sim.Sample()
		require.NoError(t, err)
		got, err := p.Convert(raw, testCal, s)
		require.NoError(t, err)
		assert.Equal(t, raw.FaceWidth, got.FaceWidth)
		assert.Equal(t, raw.FaceHeight, got.FaceHeight)
		assert.Equal(t, raw.EyeDistance, got.EyeDistance)
	}
}

func TestConvertNeverCorrectsHeight(t *testing.T) {
	p := NewPipeline()
	raw := detection.RawMeasurement{FaceWidth: 15, FaceHeight: 21.2, EyeDistance: 6.5}
	for _, d := range []float64{0.5, 0.95, 1, 1.3, 4} {
		s := settings.Settings{PrecisionLevel: 10, DistortionCorrection: d, KnownReferenceLength: 1}
		got, err := p.Convert(raw, testCal, s)
		require.NoError(t, err)
		assert.Equal(t, raw.FaceHeight, got.FaceHeight, "distortion %v", d)
		assert.InDelta(t, raw.FaceWidth*d, got.FaceWidth, 1e-12)
		assert.InDelta(t, raw.EyeDistance*d, got.EyeDistance, 1e-12)
	}
}

func TestConvertBlendsTowardBaseline(t *testing.T) {
	p := NewPipeline()
	raw := detection.RawMeasurement{FaceWidth: 15, FaceHeight: 21, EyeDistance: 6.5}
	s := settings.Settings{PrecisionLevel: 7, DistortionCorrection: 0.95, KnownReferenceLength: 8.56}

	got, err := p.Convert(raw, testCal, s)
	require.NoError(t, err)

	want := Reported{
		FaceWidth:     15*0.95*0.7 + 14.5*0.3,
		FaceHeight:    21*0.7 + 20.5*0.3,
		EyeDistance:   6.5*0.95*0.7 + 6.3*0.3,
		PixelsPerUnit: 40,
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("Convert mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, math.IsNaN(got.EyeDistance))
}

func TestConvertUncalibrated(t *testing.T) {
	got, err := NewPipeline().Convert(detection.Baseline, nil, settings.Default())
	assert.ErrorIs(t, err, ErrUncalibrated)
	assert.Equal(t, Reported{}, got)
}

func TestConvertInvalidSettings(t *testing.T) {
	s := settings.Default()
	s.DistortionCorrection = 0
	_, err := NewPipeline().Convert(detection.Baseline, testCal, s)
	assert.ErrorIs(t, err, settings.ErrInvalidSettings)
}

func TestReportedPixels(t *testing.T) {
	r := Reported{FaceWidth: 14, FaceHeight: 20, EyeDistance: 6, PixelsPerUnit: 10}
	assert.Equal(t, Extents{FaceWidth: 140, FaceHeight: 200, EyeDistance: 60}, r.Pixels())
}
