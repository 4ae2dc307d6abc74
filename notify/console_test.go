package notify

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"facegauge/calibration"
	"facegauge/session"
)

func fixedHistory(n int) *History {
	h := NewHistory(n)
	h.now = func() time.Time { return time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC) }
	return h
}

func TestHistoryRing(t *testing.T) {
	h := fixedHistory(3)
	assert.Empty(t, h.Recent())
	assert.Equal(t, "", h.Last())

	for i := 1; i <= 5; i++ {
		h.Add(fmt.Sprintf("m%d", i))
	}
	assert.Equal(t, []string{"[09:30:00] m3", "[09:30:00] m4", "[09:30:00] m5"}, h.Recent())
	assert.Equal(t, "[09:30:00] m5", h.Last())
}

func TestHistoryPartial(t *testing.T) {
	h := fixedHistory(4)
	h.Add("a")
	h.Add("b")
	assert.Equal(t, []string{"[09:30:00] a", "[09:30:00] b"}, h.Recent())
}

func TestConsoleLogsAndRecords(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := fixedHistory(5)
	c := NewConsole(zap.New(core), h)
	l := c.Listener()

	l(session.Event{Kind: session.EventStateChanged, From: session.Idle, To: session.CountingDown})
	l(session.Event{Kind: session.EventCalibrationCompleted, Calibration: &calibration.Result{PixelsPerUnit: 10, AccuracyEstimate: 98.4}})
	l(session.Event{Kind: session.EventError, ErrKind: session.KindUncalibrated, Message: "calibrate before measuring"})

	assert.Equal(t, []string{
		"[09:30:00] Calibration complete: 10.00 px/cm (accuracy 98.4%)",
		"[09:30:00] Calibrate first before measuring",
	}, h.Recent())

	assert.Equal(t, 3, logs.Len())
	warn := logs.FilterLevelExact(zapcore.WarnLevel).All()
	if assert.Len(t, warn, 1) {
		assert.Equal(t, "uncalibrated", warn[0].ContextMap()["kind"])
	}
}

func TestMessageProgress(t *testing.T) {
	msg, ok := Message(session.Event{Kind: session.EventMeasurementProgress, SecondsRemaining: 3})
	assert.True(t, ok)
	assert.Equal(t, "Measuring... 3 seconds remaining", msg)

	_, ok = Message(session.Event{Kind: session.EventCountdown})
	assert.False(t, ok)
}
