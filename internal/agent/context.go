package agent

import (
	"github.com/ChamsBouzaiene/nora/internal/discovery"
	"github.com/ChamsBouzaiene/nora/internal/idle"
	"github.com/ChamsBouzaiene/nora/internal/memory"
	"github.com/ChamsBouzaiene/nora/internal/mode"
	"github.com/ChamsBouzaiene/nora/internal/safety"
	"github.com/ChamsBouzaiene/nora/internal/watchdog"
	"github.com/ChamsBouzaiene/nora/internal/world"
)

// AgentContext is every piece of mutable agent state. Only the runtime loop
// goroutine touches it.
type AgentContext struct {
	Mode     *mode.Machine
	Memory   *memory.Store
	Registry *discovery.Registry
	Guard    *safety.Guard
	Watchdog *watchdog.Watchdog
	Idle     *idle.Animator

	// Session is nil between a disconnect and the next successful dial.
	Session world.Session
	Spawned bool
	// InFlight is set while an oracle round-trip is outstanding.
	InFlight bool

	// gen increments on every connect and disconnect so events from an
	// older session are recognizable.
	gen uint64
	// spawns counts spawn events; a death respawns within the same session.
	spawns uint64
}

// Status is a point-in-time summary for the health endpoint.
type Status struct {
	Connected  bool      `json:"connected"`
	Spawned    bool      `json:"spawned"`
	Mode       mode.Mode `json:"mode"`
	Memory     int       `json:"memory"`
	Commands   int       `json:"commands"`
	Plugins    []string  `json:"plugins"`
	Reconnects int       `json:"reconnects"`
}

func (ac *AgentContext) status(reconnects int) Status {
	return Status{
		Connected:  ac.Session != nil,
		Spawned:    ac.Spawned,
		Mode:       ac.Mode.Current(),
		Memory:     ac.Memory.Len(),
		Commands:   ac.Registry.CommandCount(),
		Plugins:    ac.Registry.Plugins(),
		Reconnects: reconnects,
	}
}
