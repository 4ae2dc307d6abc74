package session

// State is the session mode. Exactly one is active at a time.
type State int

const (
	Idle State = iota
	ManualCalibrating
	AutoCalibrating
	CountingDown
	Measuring
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case ManualCalibrating:
		return "MANUAL_CALIBRATING"
	case AutoCalibrating:
		return "AUTO_CALIBRATING"
	case CountingDown:
		return "COUNTING_DOWN"
	case Measuring:
		return "MEASURING"
	case Completed:
		return "COMPLETED"
	default:
		return "UNKNOWN"
	}
}

// Timed reports whether the state owns a running timer.
func (s State) Timed() bool {
	return s == AutoCalibrating || s == CountingDown || s == Measuring
}
