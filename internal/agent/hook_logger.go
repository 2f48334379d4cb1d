package agent

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ChamsBouzaiene/nora/internal/action"
	"github.com/ChamsBouzaiene/nora/internal/memory"
	"github.com/ChamsBouzaiene/nora/internal/mode"
	"github.com/ChamsBouzaiene/nora/internal/oracle"
	"github.com/ChamsBouzaiene/nora/internal/perception"
	"github.com/ChamsBouzaiene/nora/internal/safety"
	"github.com/ChamsBouzaiene/nora/internal/world"
)

// LoggerHook writes every runtime callback to a zap logger. Chat rejections
// are Debug here; the guard itself warns on blacklist hits.
type LoggerHook struct{ L *zap.Logger }

func (h LoggerHook) OnConnected(context.Context) {
	h.L.Info("connected to bridge")
}
func (h LoggerHook) OnDialFailed(_ context.Context, err error) {
	h.L.Warn("dial failed", zap.Error(err))
}
func (h LoggerHook) OnSpawn(_ context.Context, username string) {
	h.L.Info("spawned, services active", zap.String("username", username))
}
func (h LoggerHook) OnDisconnected(_ context.Context, kind world.EventKind, reason string) {
	h.L.Warn("connection lost", zap.String("event", string(kind)), zap.String("reason", reason))
}
func (h LoggerHook) OnCycleStart(_ context.Context, id string, snap perception.Snapshot) {
	h.L.Debug("cycle start",
		zap.String("cycle", id),
		zap.Float64("health", snap.Health),
		zap.Bool("danger", snap.Danger),
		zap.Bool("player_visible", snap.PlayerVisible))
}
func (h LoggerHook) OnCycleSkipped(_ context.Context, reason string) {
	h.L.Debug("cycle skipped", zap.String("reason", reason))
}
func (h LoggerHook) OnOracleFailure(_ context.Context, id string, err error) {
	fields := []zap.Field{zap.String("cycle", id), zap.Error(err)}
	var oe *oracle.Error
	if errors.As(err, &oe) {
		fields = append(fields, zap.String("kind", string(oe.Kind)))
		if oe.HTTPStatus != 0 {
			fields = append(fields, zap.Int("status", oe.HTTPStatus))
		}
	}
	h.L.Warn("oracle failure, cycle skipped", fields...)
}
func (h LoggerHook) OnDecision(_ context.Context, id string, d oracle.Decision, out action.Outcome) {
	h.L.Info("decision",
		zap.String("cycle", id),
		zap.String("thought", d.Thought),
		zap.String("mode", string(out.To)),
		zap.String("action", string(out.Action)),
		zap.String("result", string(out.Result)),
		zap.String("detail", out.Detail))
	if d.PluginDiscoveryNote != "" {
		h.L.Info("discovery note", zap.String("cycle", id), zap.String("note", d.PluginDiscoveryNote))
	}
}
func (h LoggerHook) OnModeChange(_ context.Context, from, to mode.Mode) {
	h.L.Info("mode change", zap.String("from", string(from)), zap.String("to", string(to)))
}
func (h LoggerHook) OnSafetyRejection(_ context.Context, msg string, v safety.Verdict) {
	h.L.Debug("chat not sent", zap.String("verdict", string(v)), zap.String("msg", msg))
}
func (h LoggerHook) OnStallRecovery(_ context.Context, pos world.Vec3) {
	h.L.Info("detected stuck, jumping and resetting controls",
		zap.Float64("x", pos.X), zap.Float64("y", pos.Y), zap.Float64("z", pos.Z))
}
func (h LoggerHook) OnMemory(_ context.Context, ev memory.Event) {
	h.L.Debug("memory", zap.String("type", ev.Type), zap.String("content", ev.Content))
}
