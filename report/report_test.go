package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facegauge/calibration"
	"facegauge/measurement"
	"facegauge/session"
	"facegauge/settings"
)

func sampleResults() session.Results {
	return session.Results{
		Calibration: &calibration.Result{
			PixelsPerUnit:    50,
			AccuracyEstimate: 98.4,
			Method:           calibration.MethodManual,
			DistancePx:       428,
			Timestamp:        time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		Measurement: &measurement.Reported{FaceWidth: 14.2, FaceHeight: 20.1, EyeDistance: 6.2, PixelsPerUnit: 50},
		Summary: &measurement.Summary{
			RunID:     "run-1",
			Samples:   5,
			FaceWidth: measurement.FieldStats{Mean: 14.1, StdDev: 0.2},
		},
		Settings: settings.Default(),
	}
}

func TestWriteAndRead(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")
	w := NewWriter(dir, nil)
	w.now = func() time.Time { return time.Date(2024, 3, 1, 12, 5, 0, 0, time.UTC) }

	path, err := w.Write(sampleResults())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run-1.yaml"), path)

	doc, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "run-1", doc.RunID)
	assert.True(t, doc.GeneratedAt.Equal(w.now()))
	if diff := cmp.Diff(sampleResults(), doc.Results); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteGeneratesRunID(t *testing.T) {
	dir := t.TempDir()
	res := sampleResults()
	res.Summary = nil

	path, err := NewWriter(dir, nil).Write(res)
	require.NoError(t, err)
	name := filepath.Base(path)
	assert.Len(t, name, len("xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx.yaml"))
}

func TestWriteWithoutDirectory(t *testing.T) {
	_, err := NewWriter("", nil).Write(sampleResults())
	assert.ErrorIs(t, err, ErrNoDirectory)
}

func TestListenerOnlyWritesResultsViewed(t *testing.T) {
	dir := t.TempDir()
	l := NewWriter(dir, nil).Listener()

	l(session.Event{Kind: session.EventMeasurementCompleted})
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	res := sampleResults()
	l(session.Event{Kind: session.EventResultsViewed, Results: &res})
	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "run-1.yaml", entries[0].Name())
}
