package detection

import "math/rand/v2"

// SimulatorName is the registry name of the default source.
const SimulatorName = "simulator"

// Base values and half-widths of the uniform noise, in cm.
const (
	BaseFaceWidth   = 14.5
	BaseFaceHeight  = 20.5
	BaseEyeDistance = 6.3

	FaceWidthNoise   = 0.75
	FaceHeightNoise  = 1.0
	EyeDistanceNoise = 0.3
)

// Baseline is the noise-free sample the simulator centres on.
var Baseline = RawMeasurement{
	FaceWidth:   BaseFaceWidth,
	FaceHeight:  BaseFaceHeight,
	EyeDistance: BaseEyeDistance,
}

// Simulator stands in for a face detector by drawing each field from its base
// value plus independent uniform noise.
type Simulator struct {
	rng *rand.Rand
}

// NewSimulator returns a simulator. A nil rng is seeded from the runtime.
func NewSimulator(rng *rand.Rand) *Simulator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Simulator{rng: rng}
}

func (s *Simulator) Sample() (RawMeasurement, error) {
	return RawMeasurement{
		FaceWidth:   BaseFaceWidth + s.noise(FaceWidthNoise),
		FaceHeight:  BaseFaceHeight + s.noise(FaceHeightNoise),
		EyeDistance: BaseEyeDistance + s.noise(EyeDistanceNoise),
	}, nil
}

// noise returns a value in [-halfWidth, halfWidth).
func (s *Simulator) noise(halfWidth float64) float64 {
	return s.rng.Float64()*2*halfWidth - halfWidth
}

func (s *Simulator) Info() SourceInfo {
	return SourceInfo{Name: SimulatorName, Kind: "simulated"}
}

func (s *Simulator) Close() error { return nil }
