// Package mode implements the agent's operating-mode state machine and the
// pathfinder capabilities each mode enables.
package mode

import (
	"strings"

	"github.com/ChamsBouzaiene/nora/internal/world"
)

// Mode is one of the five operating modes.
type Mode string

const (
	Guardian Mode = "Guardian"
	Tycoon   Mode = "Tycoon"
	Teacher  Mode = "Teacher"
	Sister   Mode = "Sister"
	Explorer Mode = "Explorer"

	// Unrecognized marks an oracle value outside the enum. It is never a
	// valid current mode.
	Unrecognized Mode = "unrecognized"
)

// Initial is the mode a fresh process starts in.
const Initial = Explorer

// All lists the valid modes in prompt order.
var All = []Mode{Guardian, Tycoon, Teacher, Sister, Explorer}

// Parse maps an oracle string to a Mode. Empty input is ("", true): the
// field was absent. Unknown values are (Unrecognized, false).
func Parse(s string) (Mode, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", true
	}
	for _, m := range All {
		if strings.EqualFold(s, string(m)) {
			return m, true
		}
	}
	// "Caring Sister" is how the persona prompt introduces the mode.
	if strings.EqualFold(s, "Caring Sister") {
		return Sister, true
	}
	return Unrecognized, false
}

// Valid reports whether m is one of the five modes.
func (m Mode) Valid() bool {
	for _, v := range All {
		if m == v {
			return true
		}
	}
	return false
}

// Movements returns the pathfinder flags for m.
func (m Mode) Movements() world.Movements {
	switch m {
	case Tycoon:
		return world.Movements{CanDig: true, AllowParkour: false}
	case Explorer:
		return world.Movements{CanDig: true, AllowParkour: true}
	case Guardian:
		return world.Movements{CanDig: false, AllowParkour: true}
	default:
		return world.Movements{}
	}
}

// MovementConfigurer is the slice of world.Locomotion the machine needs.
type MovementConfigurer interface {
	SetMovements(m world.Movements) error
}

// Machine holds exactly one current mode. Not safe for concurrent use.
type Machine struct {
	current Mode
}

// NewMachine starts in Initial.
func NewMachine() *Machine {
	return &Machine{current: Initial}
}

// Current returns the active mode.
func (m *Machine) Current() Mode { return m.current }

// Transition switches to next and reconfigures loco. It returns false, and
// touches nothing, when next is the current mode or not a valid mode.
func (m *Machine) Transition(next Mode, loco MovementConfigurer) (bool, error) {
	if !next.Valid() || next == m.current {
		return false, nil
	}
	m.current = next
	if loco == nil {
		return true, nil
	}
	return true, loco.SetMovements(next.Movements())
}

// Apply pushes the current mode's flags to a freshly spawned pathfinder.
func (m *Machine) Apply(loco MovementConfigurer) error {
	return loco.SetMovements(m.current.Movements())
}
