// Package perception builds the per-cycle snapshot of what the agent can sense.
package perception

import (
	"time"

	"github.com/ChamsBouzaiene/nora/internal/world"
)

const (
	// DangerRadius is how close a hostile must be to raise the danger flag.
	DangerRadius = 15.0
	// SocialRadius is how close a player must be to count as visible.
	SocialRadius = 30.0
)

// Snapshot is immutable and rebuilt every cycle.
type Snapshot struct {
	Timestamp     time.Time
	Health        float64
	Food          float64
	Position      world.Vec3
	TimeOfDay     int64
	Danger        bool
	PlayerVisible bool
}

// Sample reads the connection without side effects. Callers must only
// sample a spawned session.
func Sample(conn world.Connection, now time.Time) Snapshot {
	pos := conn.Position()
	_, danger := conn.NearestEntity(within(world.KindHostile, pos, DangerRadius))
	_, social := conn.NearestEntity(within(world.KindPlayer, pos, SocialRadius))
	return Snapshot{
		Timestamp:     now,
		Health:        conn.Health(),
		Food:          conn.Food(),
		Position:      pos,
		TimeOfDay:     conn.TimeOfDay(),
		Danger:        danger,
		PlayerVisible: social,
	}
}

func within(kind world.EntityKind, origin world.Vec3, radius float64) func(world.Entity) bool {
	return func(e world.Entity) bool {
		return e.Kind == kind && e.Position.DistanceTo(origin) < radius
	}
}
