package sim

import (
	"fmt"

	"evacsim/internal/geo"
)

// DistinguishedID is the reserved id of the tracked agent.
const DistinguishedID = -1

// Status is the travel state of an agent.
type Status uint8

const (
	// EnRoute agents are still moving along their path.
	EnRoute Status = iota
	// Safe agents have reached the end of their path and no longer move.
	Safe
)

func (s Status) String() string {
	switch s {
	case EnRoute:
		return "en_route"
	case Safe:
		return "safe"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// MarshalText renders the status for JSON payloads.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Agent is a single evacuee moving along a fixed path.
// Position and Status are derived from Progress after every tick.
type Agent struct {
	ID            int       `json:"id"`
	Position      geo.Point `json:"position"`
	Path          geo.Path  `json:"path"`
	Progress      float64   `json:"progress"`
	Speed         float64   `json:"speed"`
	Status        Status    `json:"status"`
	Distinguished bool      `json:"distinguished,omitempty"`

	// progress is recomputed as start+steps*Speed so repeated ticks do not
	// accumulate rounding error.
	start float64
	steps int
}

// NewAgent builds an en-route agent at the start of path.
func NewAgent(id int, path geo.Path, speed float64, distinguished bool) (*Agent, error) {
	if err := path.Validate(); err != nil {
		return nil, fmt.Errorf("%w: agent %d: %v", ErrInvalidArgument, id, err)
	}
	if !(speed > 0) {
		return nil, fmt.Errorf("%w: agent %d: speed %v must be positive", ErrInvalidArgument, id, speed)
	}
	return &Agent{
		ID:            id,
		Position:      path.First(),
		Path:          path,
		Speed:         speed,
		Status:        EnRoute,
		Distinguished: distinguished,
	}, nil
}

// NewSafeAgent builds an agent that is already at rest at pt.
func NewSafeAgent(id int, pt geo.Point) *Agent {
	return &Agent{
		ID:       id,
		Position: pt,
		Path:     geo.Path{pt, pt},
		Progress: 1,
		Status:   Safe,
		start:    1,
	}
}

// Step advances the agent by one tick. Safe agents are left untouched.
// It reports whether the agent moved.
func (a *Agent) Step() bool {
	if a.Status == Safe {
		return false
	}

	// Agents built outside the constructors may already carry progress.
	if a.steps == 0 {
		a.start = a.Progress
	}
	a.steps++
	progress := a.start + float64(a.steps)*a.Speed
	if progress > 1 {
		progress = 1
	}

	a.Position = geo.Interpolate(a.Path, progress)
	a.Progress = progress
	if progress >= 1 {
		a.Status = Safe
	}
	return true
}
