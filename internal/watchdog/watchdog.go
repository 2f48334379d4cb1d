// Package watchdog detects a pathfinder that claims progress while the
// agent stays in place, and nudges it loose.
package watchdog

import (
	"time"

	"github.com/ChamsBouzaiene/nora/internal/world"
)

const (
	// Interval is the sampling cadence.
	Interval = 2 * time.Second
	// MinDisplacement is the per-tick movement that counts as progress.
	MinDisplacement = 0.2
	// Threshold is the number of stalled ticks tolerated; the next one triggers.
	Threshold = 5
)

// Watchdog is not safe for concurrent use; the agent loop owns it.
type Watchdog struct {
	last    world.Vec3
	hasLast bool
	stalled int
	trips   int
}

func New() *Watchdog { return &Watchdog{} }

// Check records one tick and reports whether recovery should run now.
// Ticks without an active path goal, and the first tick after Reset, only
// reset the counter.
func (w *Watchdog) Check(pos world.Vec3, pathActive bool) bool {
	prev, had := w.last, w.hasLast
	w.last, w.hasLast = pos, true

	if !pathActive || !had {
		w.stalled = 0
		return false
	}
	if pos.DistanceTo(prev) >= MinDisplacement {
		w.stalled = 0
		return false
	}
	w.stalled++
	if w.stalled > Threshold {
		w.stalled = 0
		w.trips++
		return true
	}
	return false
}

// Reset forgets the last position and the counter, as on a fresh spawn.
func (w *Watchdog) Reset() {
	w.last, w.hasLast, w.stalled = world.Vec3{}, false, 0
}

// Stalled is the current consecutive stalled-tick count.
func (w *Watchdog) Stalled() int { return w.stalled }

// Trips counts recoveries since construction.
func (w *Watchdog) Trips() int { return w.trips }

// Recover presses jump and then clears every control state, which also
// cancels whatever movement input was wedged.
func Recover(c world.Connection) error {
	if err := c.SetControlState(world.ControlJump, true); err != nil {
		return err
	}
	return c.ClearControlStates()
}
