// Package agent runs the decision loop. A single goroutine owns the
// AgentContext and consumes world events, timer ticks and oracle results in
// arrival order; blocking work happens elsewhere and reports back as events.
package agent

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ChamsBouzaiene/nora/internal/action"
	"github.com/ChamsBouzaiene/nora/internal/discovery"
	"github.com/ChamsBouzaiene/nora/internal/idle"
	"github.com/ChamsBouzaiene/nora/internal/journal"
	"github.com/ChamsBouzaiene/nora/internal/memory"
	"github.com/ChamsBouzaiene/nora/internal/mode"
	"github.com/ChamsBouzaiene/nora/internal/oracle"
	"github.com/ChamsBouzaiene/nora/internal/perception"
	"github.com/ChamsBouzaiene/nora/internal/safety"
	"github.com/ChamsBouzaiene/nora/internal/watchdog"
	"github.com/ChamsBouzaiene/nora/internal/world"
)

const (
	// LowHealth is the threshold below which a cycle sends the recovery
	// command instead of consulting the oracle.
	LowHealth = 5.0

	DefaultCycleInterval  = 12 * time.Second
	DefaultReconnectDelay = 10 * time.Second
	DefaultBootstrapDelay = 5 * time.Second
	// DefaultBootstrapSpacing keeps consecutive bootstrap commands outside
	// the chat throttle window.
	DefaultBootstrapSpacing = safety.DefaultThrottle + 500*time.Millisecond
	DefaultOracleTimeout    = 60 * time.Second
	DefaultRecoveryCommand  = "/home"

	eventQueue = 64
)

// Oracle produces one decision per query.
type Oracle interface {
	Decide(ctx context.Context, q oracle.Query) (oracle.Decision, error)
}

// PersonaSetter is implemented by oracles whose persona can be swapped.
type PersonaSetter interface {
	SetPersona(persona string)
}

// Config wires a Runtime. Zero durations select the defaults.
type Config struct {
	Dialer world.Dialer
	Oracle Oracle

	Goals          []string
	EmotionalState string
	// PluginKeywords nil selects discovery.DefaultPluginKeywords.
	PluginKeywords []string
	// BootstrapCommands nil selects /help then /plugins; empty sends none.
	BootstrapCommands []string
	RecoveryCommand   string
	Blacklist         []string
	Throttle          time.Duration

	CycleInterval    time.Duration
	WatchdogInterval time.Duration
	IdleInterval     time.Duration
	ReconnectDelay   time.Duration
	BootstrapDelay   time.Duration
	BootstrapSpacing time.Duration
	OracleTimeout    time.Duration

	Logger *zap.Logger
	Hook   Hook
	Rand   *rand.Rand
}

func (c *Config) withDefaults() {
	def := func(d *time.Duration, v time.Duration) {
		if *d <= 0 {
			*d = v
		}
	}
	def(&c.CycleInterval, DefaultCycleInterval)
	def(&c.WatchdogInterval, watchdog.Interval)
	def(&c.IdleInterval, idle.Interval)
	def(&c.ReconnectDelay, DefaultReconnectDelay)
	def(&c.BootstrapDelay, DefaultBootstrapDelay)
	def(&c.BootstrapSpacing, DefaultBootstrapSpacing)
	def(&c.OracleTimeout, DefaultOracleTimeout)
	if c.PluginKeywords == nil {
		c.PluginKeywords = discovery.DefaultPluginKeywords
	}
	if c.BootstrapCommands == nil {
		c.BootstrapCommands = []string{"/help", "/plugins"}
	}
	if c.RecoveryCommand == "" {
		c.RecoveryCommand = DefaultRecoveryCommand
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Hook == nil {
		c.Hook = NopHook{}
	}
}

// Runtime drives one agent. Run may be called once.
type Runtime struct {
	cfg        Config
	log        *zap.Logger
	hook       Hook
	ac         *AgentContext
	dispatcher *action.Dispatcher

	events chan event
	done   chan struct{}
	wg     sync.WaitGroup
	status atomic.Pointer[Status]

	cycleTicker    *time.Ticker
	watchTicker    *time.Ticker
	idleTicker     *time.Ticker
	bootTimers     []*time.Timer
	jumpTimer      *time.Timer
	reconnectTimer *time.Timer
	cycleCancel    context.CancelFunc
	reconnects     int
}

// New builds a runtime with a fresh AgentContext in the initial mode.
func New(cfg Config) (*Runtime, error) {
	if cfg.Dialer == nil {
		return nil, errors.New("agent: Dialer is required")
	}
	if cfg.Oracle == nil {
		return nil, errors.New("agent: Oracle is required")
	}
	cfg.withDefaults()

	guardOpts := []safety.Option{}
	if cfg.Throttle > 0 {
		guardOpts = append(guardOpts, safety.WithThrottle(cfg.Throttle))
	}
	if cfg.Blacklist != nil {
		guardOpts = append(guardOpts, safety.WithBlacklist(cfg.Blacklist))
	}

	r := &Runtime{
		cfg:  cfg,
		log:  cfg.Logger,
		hook: cfg.Hook,
		ac: &AgentContext{
			Mode:     mode.NewMachine(),
			Memory:   memory.NewStore(cfg.Goals, cfg.EmotionalState),
			Registry: discovery.NewRegistry(cfg.PluginKeywords),
			Guard:    safety.NewGuard(cfg.Logger.Named("safety"), guardOpts...),
			Watchdog: watchdog.New(),
			Idle:     idle.New(cfg.Rand),
		},
		dispatcher: action.NewDispatcher(cfg.Logger.Named("action")),
		events:     make(chan event, eventQueue),
		done:       make(chan struct{}),
	}
	r.publish()
	return r, nil
}

// Status returns the latest published status. Safe from any goroutine.
func (r *Runtime) Status() Status { return *r.status.Load() }

// SetPersona queues a persona swap; it takes effect between cycles.
func (r *Runtime) SetPersona(persona string) {
	r.post(personaReloaded{persona: persona})
}

// Run dials, then processes events until ctx is done. It always returns
// nil once ctx is cancelled; connection failures are retried forever.
func (r *Runtime) Run(ctx context.Context) error {
	defer r.shutdown()
	r.dial(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-r.events:
			r.handle(ctx, ev)
		case <-tickC(r.cycleTicker):
			r.runCycle(ctx)
		case <-tickC(r.watchTicker):
			r.checkStall(ctx)
		case <-tickC(r.idleTicker):
			r.idleTick(ctx)
		}
		r.publish()
	}
}

func tickC(t *time.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

func (r *Runtime) publish() {
	st := r.ac.status(r.reconnects)
	r.status.Store(&st)
}

// post delivers ev to the loop unless the runtime is shutting down.
func (r *Runtime) post(ev event) bool {
	select {
	case r.events <- ev:
		return true
	case <-r.done:
		return false
	}
}

func (r *Runtime) after(d time.Duration, ev event) *time.Timer {
	return time.AfterFunc(d, func() { r.post(ev) })
}

func (r *Runtime) dial(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		s, err := r.cfg.Dialer.Dial(ctx)
		if err != nil {
			r.post(dialFailed{err: err})
			return
		}
		if !r.post(connected{session: s}) {
			_ = s.Close()
		}
	}()
}

func (r *Runtime) pump(gen uint64, s world.Session) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for ev := range s.Events() {
			if !r.post(sessionEvent{gen: gen, ev: ev}) {
				return
			}
		}
		r.post(sessionClosed{gen: gen})
	}()
}

func (r *Runtime) handle(ctx context.Context, ev event) {
	switch e := ev.(type) {
	case connected:
		if r.ac.Session != nil {
			_ = e.session.Close()
			return
		}
		r.ac.gen++
		r.ac.Session = e.session
		r.ac.Spawned = false
		r.pump(r.ac.gen, e.session)
		r.hook.OnConnected(ctx)

	case dialFailed:
		r.hook.OnDialFailed(ctx, e.err)
		r.scheduleReconnect()

	case reconnectDue:
		r.reconnectTimer = nil
		if r.ac.Session == nil {
			r.reconnects++
			r.dial(ctx)
		}

	case sessionEvent:
		if e.gen != r.ac.gen || r.ac.Session == nil {
			return
		}
		switch e.ev.Kind {
		case world.EventSpawn:
			r.onSpawn(ctx, e.ev.Username)
		case world.EventChat:
			r.onChat(ctx, e.ev.Username, e.ev.Message)
		case world.EventKicked, world.EventError, world.EventEnd:
			r.disconnect(ctx, e.ev.Kind, e.ev.Reason)
		}

	case sessionClosed:
		if e.gen == r.ac.gen && r.ac.Session != nil {
			r.disconnect(ctx, world.EventEnd, "event stream closed")
		}

	case decisionReady:
		r.onDecision(ctx, e)

	case bootstrapChat:
		if e.gen != r.ac.gen || !r.ac.Spawned {
			return
		}
		r.say(ctx, e.cmd)

	case jumpRelease:
		if e.gen != r.ac.gen || r.ac.Session == nil {
			return
		}
		if err := idle.Release(r.ac.Session); err != nil {
			r.log.Debug("release jump", zap.Error(err))
		}

	case personaReloaded:
		if ps, ok := r.cfg.Oracle.(PersonaSetter); ok {
			ps.SetPersona(e.persona)
			r.log.Info("persona applied")
		}
	}
}

func (r *Runtime) onSpawn(ctx context.Context, username string) {
	s := r.ac.Session
	r.ac.Spawned = true
	r.ac.spawns++
	if err := r.ac.Mode.Apply(s); err != nil {
		r.log.Warn("apply mode movements", zap.Error(err))
	}
	r.ac.Watchdog.Reset()
	r.startTickers()

	r.stopBootTimers()
	for i, cmd := range r.cfg.BootstrapCommands {
		d := r.cfg.BootstrapDelay + time.Duration(i)*r.cfg.BootstrapSpacing
		r.bootTimers = append(r.bootTimers, r.after(d, bootstrapChat{gen: r.ac.gen, cmd: cmd}))
	}
	r.hook.OnSpawn(ctx, username)
}

func (r *Runtime) onChat(ctx context.Context, username, msg string) {
	if username == r.ac.Session.Username() {
		return
	}
	r.remember(ctx, memory.TypeChat, username+": "+msg)
	found := r.ac.Registry.Observe(msg)
	if len(found.Commands) > 0 {
		r.log.Debug("discovered commands", zap.Strings("commands", found.Commands))
	}
	for _, kw := range found.Plugins {
		r.remember(ctx, memory.TypeRecon, "Detected System: "+kw)
	}
}

func (r *Runtime) remember(ctx context.Context, typ, content string) {
	ev := r.ac.Memory.Record(typ, content)
	r.hook.OnMemory(ctx, ev)
}

func (r *Runtime) disconnect(ctx context.Context, kind world.EventKind, reason string) {
	r.hook.OnDisconnected(ctx, kind, reason)
	r.stopTickers()
	r.stopBootTimers()
	r.ac.Watchdog.Reset()

	s := r.ac.Session
	r.ac.Session = nil
	r.ac.Spawned = false
	r.ac.gen++
	if err := s.Close(); err != nil {
		r.log.Debug("close session", zap.Error(err))
	}
	r.scheduleReconnect()
}

func (r *Runtime) scheduleReconnect() {
	if r.reconnectTimer != nil {
		return
	}
	r.reconnectTimer = r.after(r.cfg.ReconnectDelay, reconnectDue{})
}

// runCycle is one decision-cycle tick.
func (r *Runtime) runCycle(ctx context.Context) {
	s := r.ac.Session
	if s == nil || !r.ac.Spawned {
		return
	}
	// Critical health preempts everything, including a pending oracle call.
	if s.Health() < LowHealth {
		r.log.Warn("health critical", zap.Float64("health", s.Health()))
		r.say(ctx, r.cfg.RecoveryCommand)
		return
	}
	if r.ac.InFlight {
		r.hook.OnCycleSkipped(ctx, "previous cycle still in flight")
		return
	}

	snap := perception.Sample(s, time.Now())
	q := oracle.NewQuery(snap, r.ac.Registry.Commands(), r.ac.Registry.Plugins(), r.ac.Memory.Snapshot(), r.ac.Mode.Current())
	id := journal.NewCycleID()
	r.hook.OnCycleStart(ctx, id, snap)

	r.ac.InFlight = true
	cctx, cancel := context.WithTimeout(ctx, r.cfg.OracleTimeout)
	r.cycleCancel = cancel
	gen, spawn := r.ac.gen, r.ac.spawns
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		d, err := r.cfg.Oracle.Decide(cctx, q)
		r.post(decisionReady{gen: gen, spawn: spawn, cycleID: id, decision: d, err: err})
	}()
}

func (r *Runtime) onDecision(ctx context.Context, e decisionReady) {
	r.ac.InFlight = false
	r.cycleCancel = nil
	if e.err != nil {
		r.hook.OnOracleFailure(ctx, e.cycleID, e.err)
		return
	}
	// The world may have changed while the oracle was thinking.
	if e.gen != r.ac.gen || r.ac.Session == nil || !r.ac.Spawned {
		r.hook.OnCycleSkipped(ctx, "session ended before decision arrived")
		return
	}
	if e.spawn != r.ac.spawns {
		r.hook.OnCycleSkipped(ctx, "respawned before decision arrived")
		return
	}

	s := r.ac.Session
	out := r.dispatcher.Execute(action.Env{Conn: s, Loco: s, Mode: r.ac.Mode, Guard: r.ac.Guard}, e.decision)
	if out.ModeChanged {
		r.hook.OnModeChange(ctx, out.From, out.To)
	}
	if out.Chat != "" && out.Chat != safety.Sent {
		r.hook.OnSafetyRejection(ctx, e.decision.Chat, out.Chat)
	}
	r.hook.OnDecision(ctx, e.cycleID, e.decision, out)
}

// say routes msg through the guard and reports rejections.
func (r *Runtime) say(ctx context.Context, msg string) {
	if v := r.ac.Guard.Send(r.ac.Session, msg); v != safety.Sent {
		r.hook.OnSafetyRejection(ctx, msg, v)
	}
}

func (r *Runtime) checkStall(ctx context.Context) {
	s := r.ac.Session
	if s == nil || !r.ac.Spawned {
		return
	}
	pos := s.Position()
	if !r.ac.Watchdog.Check(pos, s.IsMoving()) {
		return
	}
	if err := watchdog.Recover(s); err != nil {
		r.log.Warn("stall recovery", zap.Error(err))
	}
	r.hook.OnStallRecovery(ctx, pos)
}

func (r *Runtime) idleTick(ctx context.Context) {
	s := r.ac.Session
	if s == nil || !r.ac.Spawned {
		return
	}
	g, err := r.ac.Idle.Tick(s)
	if err != nil {
		r.log.Debug("idle gesture", zap.Error(err))
	}
	if g.Jumped {
		if r.jumpTimer != nil {
			r.jumpTimer.Stop()
		}
		r.jumpTimer = r.after(idle.JumpHold, jumpRelease{gen: r.ac.gen})
	}
}

func (r *Runtime) startTickers() {
	r.stopTickers()
	r.cycleTicker = time.NewTicker(r.cfg.CycleInterval)
	r.watchTicker = time.NewTicker(r.cfg.WatchdogInterval)
	r.idleTicker = time.NewTicker(r.cfg.IdleInterval)
}

func (r *Runtime) stopTickers() {
	for _, t := range []**time.Ticker{&r.cycleTicker, &r.watchTicker, &r.idleTicker} {
		if *t != nil {
			(*t).Stop()
			*t = nil
		}
	}
}

func (r *Runtime) stopBootTimers() {
	for _, t := range r.bootTimers {
		t.Stop()
	}
	r.bootTimers = nil
}

func (r *Runtime) shutdown() {
	close(r.done)
	r.stopTickers()
	r.stopBootTimers()
	for _, t := range []*time.Timer{r.jumpTimer, r.reconnectTimer} {
		if t != nil {
			t.Stop()
		}
	}
	if r.cycleCancel != nil {
		r.cycleCancel()
	}
	if r.ac.Session != nil {
		_ = r.ac.Session.Close()
		r.ac.Session = nil
		r.ac.Spawned = false
	}
	r.wg.Wait()

	// A dial may have succeeded after the loop stopped reading.
	for {
		select {
		case ev := <-r.events:
			if c, ok := ev.(connected); ok {
				_ = c.session.Close()
			}
		default:
			r.publish()
			return
		}
	}
}
