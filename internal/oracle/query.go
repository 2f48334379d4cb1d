package oracle

import (
	"github.com/ChamsBouzaiene/nora/internal/memory"
	"github.com/ChamsBouzaiene/nora/internal/mode"
	"github.com/ChamsBouzaiene/nora/internal/perception"
	"github.com/ChamsBouzaiene/nora/internal/world"
)

// Query is the structured context sent upstream each cycle.
type Query struct {
	Timestamp    int64           `json:"timestamp"`
	Self         SelfState       `json:"self"`
	Surroundings Surroundings    `json:"surroundings"`
	Discovery    DiscoveryState  `json:"discovery"`
	Memory       memory.Snapshot `json:"memory"`
	CurrentState mode.Mode       `json:"current_state"`
}

type SelfState struct {
	Health   float64    `json:"health"`
	Food     float64    `json:"food"`
	Position world.Vec3 `json:"position"`
}

type Surroundings struct {
	Time          int64 `json:"time"`
	Danger        bool  `json:"danger"`
	PlayerVisible bool  `json:"player_visible"`
}

type DiscoveryState struct {
	AvailableCommands []string `json:"available_commands"`
	KnownPlugins      []string `json:"known_plugins"`
}

// NewQuery assembles a query. commands should already be capped by the
// registry; nil slices are sent as empty arrays.
func NewQuery(snap perception.Snapshot, commands, plugins []string, mem memory.Snapshot, current mode.Mode) Query {
	if commands == nil {
		commands = []string{}
	}
	if plugins == nil {
		plugins = []string{}
	}
	if mem.ShortTerm == nil {
		mem.ShortTerm = []memory.Event{}
	}
	return Query{
		Timestamp: snap.Timestamp.UnixMilli(),
		Self: SelfState{
			Health:   snap.Health,
			Food:     snap.Food,
			Position: snap.Position,
		},
		Surroundings: Surroundings{
			Time:          snap.TimeOfDay,
			Danger:        snap.Danger,
			PlayerVisible: snap.PlayerVisible,
		},
		Discovery: DiscoveryState{
			AvailableCommands: commands,
			KnownPlugins:      plugins,
		},
		Memory:       mem,
		CurrentState: current,
	}
}
