package detection

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type brokenSource struct{ closed bool }

func (b *brokenSource) Sample() (RawMeasurement, error) {
	return RawMeasurement{}, errors.New("no camera")
}
func (b *brokenSource) Info() SourceInfo { return SourceInfo{Name: "broken", Kind: "detector"} }
func (b *brokenSource) Close() error     { b.closed = true; return nil }

func TestSimulatorStaysWithinBounds(t *testing.T) {
	sim := NewSimulator(rand.New(rand.NewPCG(42, 42)))
	for i := 0; i < 1000; i++ {
		m, err := sim.Sample()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, m.FaceWidth, BaseFaceWidth-FaceWidthNoise)
		assert.Less(t, m.FaceWidth, BaseFaceWidth+FaceWidthNoise)
		assert.GreaterOrEqual(t, m.FaceHeight, BaseFaceHeight-FaceHeightNoise)
		assert.Less(t, m.FaceHeight, BaseFaceHeight+FaceHeightNoise)
		assert.GreaterOrEqual(t, m.EyeDistance, BaseEyeDistance-EyeDistanceNoise)
		assert.Less(t, m.EyeDistance, BaseEyeDistance+EyeDistanceNoise)
	}
}

func TestManagerDefaultsToSimulator(t *testing.T) {
	pm := NewSourceManager(zap.NewNop())
	require.NoError(t, pm.Initialize(""))
	require.NotNil(t, pm.Source())
	assert.Equal(t, SimulatorName, pm.Info().Name)
}

func TestManagerFallsBackOnUnknownSource(t *testing.T) {
	pm := NewSourceManager(zap.NewNop())
	require.NoError(t, pm.Initialize("landmarks"))
	assert.Equal(t, SimulatorName, pm.Info().Name)
}

func TestManagerFallsBackWhenTestSampleFails(t *testing.T) {
	pm := NewSourceManager(zap.NewNop())
	broken := &brokenSource{}
	pm.Register("broken", func() (MeasurementSource, error) { return broken, nil })

	require.NoError(t, pm.Initialize("broken"))
	assert.True(t, broken.closed)
	assert.Equal(t, SimulatorName, pm.Info().Name)
	require.NoError(t, pm.Close())
}
