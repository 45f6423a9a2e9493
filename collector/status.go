package collector

import "time"

// State is the collection state of one harvester.
type State uint8

// Harvester states.
const (
	StateIdle State = iota
	StateCollecting
	StateSuccess
	StateError
	StateDisabled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCollecting:
		return "collecting"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Status describes the runtime state of one harvester. Snapshots
// returned by the collector are copies and safe to retain.
type Status struct {
	Name     string
	State    State
	Enabled  bool
	LastBits int
	LastRun  time.Time
	ErrMsg   string
}
