// Package action executes validated oracle decisions against the world,
// gating capabilities by the current mode.
package action

import (
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ChamsBouzaiene/nora/internal/mode"
	"github.com/ChamsBouzaiene/nora/internal/oracle"
	"github.com/ChamsBouzaiene/nora/internal/safety"
	"github.com/ChamsBouzaiene/nora/internal/world"
)

const (
	// FollowRange is how close a follow goal keeps the agent to its target.
	FollowRange = 1.0
	// MineSearchRadius bounds the block search for mine.
	MineSearchRadius = 32.0
)

// Result classifies what happened to the decision's action.
type Result string

const (
	Executed     Result = "executed"
	Unresolved   Result = "unresolved"
	Unauthorized Result = "unauthorized"
	Rejected     Result = "rejected"
	Reserved     Result = "reserved"
	Failed       Result = "failed"
)

// Outcome summarizes one Execute call for logs and the journal.
type Outcome struct {
	ModeChanged bool
	From, To    mode.Mode
	Chat        safety.Verdict // empty when the decision had no chat
	Action      oracle.Action
	Result      Result
	Detail      string
}

// Env is the slice of agent state a decision may touch. Nothing in it is
// retained past the call.
type Env struct {
	Conn  world.Connection
	Loco  world.Locomotion
	Mode  *mode.Machine
	Guard *safety.Guard
}

// Dispatcher is stateless apart from its logger.
type Dispatcher struct {
	log *zap.Logger
}

func NewDispatcher(log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{log: log}
}

var coordPattern = regexp.MustCompile(`-?\d+`)

// Execute applies d: mode transition, then chat, then the action.
func (x *Dispatcher) Execute(env Env, d oracle.Decision) Outcome {
	out := Outcome{Action: d.Action, From: env.Mode.Current(), To: env.Mode.Current()}

	if d.Playstyle == mode.Unrecognized {
		x.log.Warn("ignoring unrecognized playstyle", zap.String("playstyle", d.RawPlaystyle))
	} else if d.Playstyle != "" {
		changed, err := env.Mode.Transition(d.Playstyle, env.Loco)
		if err != nil {
			x.log.Warn("reconfigure movements", zap.Error(err))
		}
		out.ModeChanged = changed
		out.To = env.Mode.Current()
	}

	if d.Chat != "" {
		out.Chat = env.Guard.Send(env.Conn, d.Chat)
	}

	out.Result, out.Detail = x.act(env, d)
	return out
}

func (x *Dispatcher) act(env Env, d oracle.Decision) (Result, string) {
	switch d.Action {
	case oracle.ActionUseCommand:
		if d.Meta.Cmd == "" {
			return Unresolved, "no cmd"
		}
		if v := env.Guard.Send(env.Conn, d.Meta.Cmd); v != safety.Sent {
			return Rejected, string(v)
		}
		return Executed, d.Meta.Cmd

	case oracle.ActionMoveTo, oracle.ActionFollow:
		return x.move(env, d.Meta.Target)

	case oracle.ActionAttack:
		if env.Mode.Current() != mode.Guardian {
			return Unauthorized, "attack requires Guardian"
		}
		return x.attack(env)

	case oracle.ActionMine:
		if env.Mode.Current() != mode.Tycoon {
			return Unauthorized, "mine requires Tycoon"
		}
		return x.mine(env, d.Meta.Target)

	case oracle.ActionSit:
		if err := env.Loco.ClearGoal(); err != nil {
			return Failed, err.Error()
		}
		if err := env.Conn.Look(env.Conn.Yaw(), 0); err != nil {
			return Failed, err.Error()
		}
		return Executed, ""

	case oracle.ActionCollect, oracle.ActionExplore, oracle.ActionNone:
		return Reserved, ""

	default:
		x.log.Warn("ignoring unrecognized action", zap.String("action", d.RawAction))
		return Unresolved, "unrecognized action " + d.RawAction
	}
}

func (x *Dispatcher) move(env Env, target string) (Result, string) {
	if target == "" {
		return Unresolved, "no target"
	}
	if p, ok := env.Conn.Player(target); ok {
		if err := env.Loco.SetGoal(world.FollowGoal{Target: p, Range: FollowRange, Dynamic: true}); err != nil {
			return Failed, err.Error()
		}
		return Executed, "follow " + p.Name
	}
	x0, y0, z0, ok := parseCoords(target)
	if !ok {
		return Unresolved, "target " + target
	}
	if err := env.Loco.SetGoal(world.BlockGoal{X: x0, Y: y0, Z: z0}); err != nil {
		return Failed, err.Error()
	}
	return Executed, "goto " + strconv.Itoa(x0) + " " + strconv.Itoa(y0) + " " + strconv.Itoa(z0)
}

func (x *Dispatcher) attack(env Env) (Result, string) {
	mob, ok := env.Conn.NearestEntity(func(e world.Entity) bool { return e.Kind == world.KindHostile })
	if !ok {
		return Unresolved, "no hostile"
	}
	for _, it := range env.Conn.Items() {
		if strings.Contains(it.Name, "sword") {
			if err := env.Conn.Equip(it, "hand"); err != nil {
				x.log.Debug("equip sword", zap.Error(err))
			}
			break
		}
	}
	if err := env.Conn.Attack(mob); err != nil {
		return Failed, err.Error()
	}
	return Executed, mob.Name
}

func (x *Dispatcher) mine(env Env, target string) (Result, string) {
	if target == "" || !env.Conn.KnownBlock(target) {
		return Unresolved, "block " + target
	}
	b, ok := env.Conn.FindBlock(target, MineSearchRadius)
	if !ok {
		return Unresolved, "none nearby: " + target
	}
	if err := env.Conn.CollectBlock(b); err != nil {
		return Failed, err.Error()
	}
	return Executed, target
}

// parseCoords takes the first three signed integers in s.
func parseCoords(s string) (int, int, int, bool) {
	nums := coordPattern.FindAllString(s, 3)
	if len(nums) < 3 {
		return 0, 0, 0, false
	}
	var v [3]int
	for i, n := range nums {
		parsed, err := strconv.Atoi(n)
		if err != nil {
			return 0, 0, 0, false
		}
		v[i] = parsed
	}
	return v[0], v[1], v[2], true
}
