package agent

import (
	"context"

	"github.com/ChamsBouzaiene/nora/internal/action"
	"github.com/ChamsBouzaiene/nora/internal/memory"
	"github.com/ChamsBouzaiene/nora/internal/mode"
	"github.com/ChamsBouzaiene/nora/internal/oracle"
	"github.com/ChamsBouzaiene/nora/internal/perception"
	"github.com/ChamsBouzaiene/nora/internal/safety"
	"github.com/ChamsBouzaiene/nora/internal/world"
)

// Hook observes the runtime. Every method is called on the loop goroutine
// and must not block.
type Hook interface {
	OnConnected(ctx context.Context)
	OnDialFailed(ctx context.Context, err error)
	OnSpawn(ctx context.Context, username string)
	OnDisconnected(ctx context.Context, kind world.EventKind, reason string)
	OnCycleStart(ctx context.Context, cycleID string, snap perception.Snapshot)
	OnCycleSkipped(ctx context.Context, reason string)
	OnOracleFailure(ctx context.Context, cycleID string, err error)
	OnDecision(ctx context.Context, cycleID string, d oracle.Decision, out action.Outcome)
	OnModeChange(ctx context.Context, from, to mode.Mode)
	OnSafetyRejection(ctx context.Context, msg string, v safety.Verdict)
	OnStallRecovery(ctx context.Context, pos world.Vec3)
	OnMemory(ctx context.Context, ev memory.Event)
}

// NopHook lets you implement only the hooks you need.
type NopHook struct{}

func (NopHook) OnConnected(context.Context)                                         {}
func (NopHook) OnDialFailed(context.Context, error)                                 {}
func (NopHook) OnSpawn(context.Context, string)                                     {}
func (NopHook) OnDisconnected(context.Context, world.EventKind, string)             {}
func (NopHook) OnCycleStart(context.Context, string, perception.Snapshot)           {}
func (NopHook) OnCycleSkipped(context.Context, string)                              {}
func (NopHook) OnOracleFailure(context.Context, string, error)                      {}
func (NopHook) OnDecision(context.Context, string, oracle.Decision, action.Outcome) {}
func (NopHook) OnModeChange(context.Context, mode.Mode, mode.Mode)                  {}
func (NopHook) OnSafetyRejection(context.Context, string, safety.Verdict)           {}
func (NopHook) OnStallRecovery(context.Context, world.Vec3)                         {}
func (NopHook) OnMemory(context.Context, memory.Event)                              {}

// Hooks fans out to every hook in order.
type Hooks []Hook

func (hs Hooks) OnConnected(ctx context.Context) {
	for _, h := range hs {
		h.OnConnected(ctx)
	}
}
func (hs Hooks) OnDialFailed(ctx context.Context, err error) {
	for _, h := range hs {
		h.OnDialFailed(ctx, err)
	}
}
func (hs Hooks) OnSpawn(ctx context.Context, username string) {
	for _, h := range hs {
		h.OnSpawn(ctx, username)
	}
}
func (hs Hooks) OnDisconnected(ctx context.Context, kind world.EventKind, reason string) {
	for _, h := range hs {
		h.OnDisconnected(ctx, kind, reason)
	}
}
func (hs Hooks) OnCycleStart(ctx context.Context, id string, snap perception.Snapshot) {
	for _, h := range hs {
		h.OnCycleStart(ctx, id, snap)
	}
}
func (hs Hooks) OnCycleSkipped(ctx context.Context, reason string) {
	for _, h := range hs {
		h.OnCycleSkipped(ctx, reason)
	}
}
func (hs Hooks) OnOracleFailure(ctx context.Context, id string, err error) {
	for _, h := range hs {
		h.OnOracleFailure(ctx, id, err)
	}
}
func (hs Hooks) OnDecision(ctx context.Context, id string, d oracle.Decision, out action.Outcome) {
	for _, h := range hs {
		h.OnDecision(ctx, id, d, out)
	}
}
func (hs Hooks) OnModeChange(ctx context.Context, from, to mode.Mode) {
	for _, h := range hs {
		h.OnModeChange(ctx, from, to)
	}
}
func (hs Hooks) OnSafetyRejection(ctx context.Context, msg string, v safety.Verdict) {
	for _, h := range hs {
		h.OnSafetyRejection(ctx, msg, v)
	}
}
func (hs Hooks) OnStallRecovery(ctx context.Context, pos world.Vec3) {
	for _, h := range hs {
		h.OnStallRecovery(ctx, pos)
	}
}
func (hs Hooks) OnMemory(ctx context.Context, ev memory.Event) {
	for _, h := range hs {
		h.OnMemory(ctx, ev)
	}
}
