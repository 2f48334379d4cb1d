// Package idle produces the small look-around and hop gestures the agent
// performs between decisions.
package idle

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/ChamsBouzaiene/nora/internal/world"
)

const (
	Interval = 60 * time.Second
	// JumpChance is the probability of a hop on a grounded tick.
	JumpChance = 0.3
	JumpHold   = 200 * time.Millisecond
)

// Gesture is what one idle tick did.
type Gesture struct {
	Yaw    float64
	Jumped bool
}

// Animator is not safe for concurrent use.
type Animator struct {
	rng *rand.Rand
}

// New uses rng for every draw; nil seeds from the runtime source.
func New(rng *rand.Rand) *Animator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Animator{rng: rng}
}

// Tick turns the head to a random yaw in [-π/2, π/2) with level pitch and,
// with JumpChance while grounded, presses jump. The caller releases jump
// after JumpHold when Jumped is set.
func (a *Animator) Tick(c world.Connection) (Gesture, error) {
	yaw := a.rng.Float64()*math.Pi - math.Pi/2
	if err := c.Look(yaw, 0); err != nil {
		return Gesture{}, err
	}
	g := Gesture{Yaw: yaw}
	if a.rng.Float64() > 1-JumpChance && c.OnGround() {
		if err := c.SetControlState(world.ControlJump, true); err != nil {
			return g, err
		}
		g.Jumped = true
	}
	return g, nil
}

// Release lets go of jump.
func Release(c world.Connection) error {
	return c.SetControlState(world.ControlJump, false)
}
