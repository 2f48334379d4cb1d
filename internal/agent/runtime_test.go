package agent

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ChamsBouzaiene/nora/internal/memory"
	"github.com/ChamsBouzaiene/nora/internal/mode"
	"github.com/ChamsBouzaiene/nora/internal/oracle"
	"github.com/ChamsBouzaiene/nora/internal/world"
	"github.com/ChamsBouzaiene/nora/internal/world/worldtest"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// stubOracle returns decide's result for every query and records them.
type stubOracle struct {
	mu      sync.Mutex
	queries []oracle.Query
	persona string
	decide  func(ctx context.Context, q oracle.Query) (oracle.Decision, error)
}

func (o *stubOracle) Decide(ctx context.Context, q oracle.Query) (oracle.Decision, error) {
	o.mu.Lock()
	o.queries = append(o.queries, q)
	fn := o.decide
	o.mu.Unlock()
	if fn == nil {
		return oracle.Decision{Action: oracle.ActionNone}, nil
	}
	return fn(ctx, q)
}

func (o *stubOracle) SetPersona(p string) {
	o.mu.Lock()
	o.persona = p
	o.mu.Unlock()
}

func (o *stubOracle) Queries() []oracle.Query {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]oracle.Query(nil), o.queries...)
}

func (o *stubOracle) Persona() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.persona
}

// sessions hands out pre-built fakes in order; dials beyond the list fail.
type sessions struct {
	mu    sync.Mutex
	list  []*worldtest.Session
	dials int
	fail  int // fail this many dials first
}

func (s *sessions) Dial(ctx context.Context) (world.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dials++
	if s.fail > 0 {
		s.fail--
		return nil, errors.New("connection refused")
	}
	if len(s.list) == 0 {
		return nil, errors.New("no more sessions")
	}
	next := s.list[0]
	s.list = s.list[1:]
	return next, nil
}

func (s *sessions) Dials() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dials
}

type recordingHook struct {
	NopHook
	mu       sync.Mutex
	memories []memory.Event
	skipped  []string
	modes    []mode.Mode
	failures int
}

func (h *recordingHook) OnMemory(_ context.Context, ev memory.Event) {
	h.mu.Lock()
	h.memories = append(h.memories, ev)
	h.mu.Unlock()
}

func (h *recordingHook) OnCycleSkipped(_ context.Context, reason string) {
	h.mu.Lock()
	h.skipped = append(h.skipped, reason)
	h.mu.Unlock()
}

func (h *recordingHook) OnModeChange(_ context.Context, _, to mode.Mode) {
	h.mu.Lock()
	h.modes = append(h.modes, to)
	h.mu.Unlock()
}

func (h *recordingHook) OnOracleFailure(context.Context, string, error) {
	h.mu.Lock()
	h.failures++
	h.mu.Unlock()
}

func (h *recordingHook) snapshot() ([]memory.Event, []string, []mode.Mode, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]memory.Event(nil), h.memories...), append([]string(nil), h.skipped...),
		append([]mode.Mode(nil), h.modes...), h.failures
}

// testConfig uses fast timers; tickers other than the cycle are effectively
// off unless a test shortens them.
func testConfig(d world.Dialer, o Oracle, h Hook) Config {
	return Config{
		Dialer:            d,
		Oracle:            o,
		Goals:             []string{"Protect the player"},
		EmotionalState:    "Stable",
		BootstrapCommands: []string{},
		Throttle:          time.Millisecond,
		CycleInterval:     20 * time.Millisecond,
		WatchdogInterval:  time.Hour,
		IdleInterval:      time.Hour,
		ReconnectDelay:    20 * time.Millisecond,
		Hook:              h,
		Rand:              rand.New(rand.NewPCG(1, 2)),
	}
}

// start runs rt and returns a stop func that cancels and waits.
func start(t *testing.T, rt *Runtime) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()
	return func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(waitFor):
			t.Fatal("runtime did not stop")
		}
	}
}

var zombie = world.Entity{ID: 9, Kind: world.KindHostile, Name: "zombie", Position: world.Vec3{X: 4}}

func TestDecisionCycleExecutes(t *testing.T) {
	defer goleak.VerifyNone(t)

	conn := worldtest.NewSession("Nora")
	conn.SetEntities(zombie)
	orc := &stubOracle{decide: func(context.Context, oracle.Query) (oracle.Decision, error) {
		return oracle.Decision{Playstyle: mode.Guardian, Chat: "عاش", Action: oracle.ActionAttack}, nil
	}}
	hook := &recordingHook{}
	rt, err := New(testConfig(&sessions{list: []*worldtest.Session{conn}}, orc, hook))
	require.NoError(t, err)
	stop := start(t, rt)

	conn.Push(world.Event{Kind: world.EventSpawn, Username: "Nora"})

	require.Eventually(t, func() bool { return len(conn.AttackCalls()) > 0 }, waitFor, tick)
	stop()

	assert.Equal(t, mode.Guardian, rt.Status().Mode)
	assert.Contains(t, conn.SentChats(), "عاش")
	_, _, modes, _ := hook.snapshot()
	assert.Equal(t, []mode.Mode{mode.Guardian}, modes)

	calls := conn.MovementCalls()
	require.GreaterOrEqual(t, len(calls), 2)
	assert.Equal(t, mode.Explorer.Movements(), calls[0], "spawn applies the initial mode")
	assert.Equal(t, mode.Guardian.Movements(), calls[1])

	q := orc.Queries()[0]
	assert.Equal(t, mode.Explorer, q.CurrentState)
	assert.Equal(t, 20.0, q.Self.Health)
	assert.True(t, q.Surroundings.Danger)
	assert.Equal(t, []string{"Protect the player"}, q.Memory.LongTerm.Goals)
}

func TestNoCycleBeforeSpawn(t *testing.T) {
	defer goleak.VerifyNone(t)

	conn := worldtest.NewSession("Nora")
	orc := &stubOracle{}
	rt, err := New(testConfig(&sessions{list: []*worldtest.Session{conn}}, orc, nil))
	require.NoError(t, err)
	stop := start(t, rt)

	require.Eventually(t, func() bool { return rt.Status().Connected }, waitFor, tick)
	time.Sleep(100 * time.Millisecond)
	stop()

	assert.Empty(t, orc.Queries())
}

func TestLowHealthSendsRecoveryInsteadOfQuerying(t *testing.T) {
	defer goleak.VerifyNone(t)

	conn := worldtest.NewSession("Nora")
	conn.SetHealth(4)
	orc := &stubOracle{}
	rt, err := New(testConfig(&sessions{list: []*worldtest.Session{conn}}, orc, nil))
	require.NoError(t, err)
	stop := start(t, rt)

	conn.Push(world.Event{Kind: world.EventSpawn})
	require.Eventually(t, func() bool {
		for _, c := range conn.SentChats() {
			if c == "/home" {
				return true
			}
		}
		return false
	}, waitFor, tick)
	stop()

	assert.Empty(t, orc.Queries())
}

func TestChatFeedsMemoryAndDiscovery(t *testing.T) {
	defer goleak.VerifyNone(t)

	conn := worldtest.NewSession("Nora")
	orc := &stubOracle{}
	hook := &recordingHook{}
	cfg := testConfig(&sessions{list: []*worldtest.Session{conn}}, orc, hook)
	cfg.CycleInterval = time.Hour
	rt, err := New(cfg)
	require.NoError(t, err)
	stop := start(t, rt)

	conn.Push(world.Event{Kind: world.EventChat, Username: "Nora", Message: "my own /secret"})
	conn.Push(world.Event{Kind: world.EventChat, Username: "Steve", Message: "Economy is on, try /warp and /kit"})
	conn.Push(world.Event{Kind: world.EventChat, Username: "Alex", Message: "economy again /warp"})

	require.Eventually(t, func() bool { return rt.Status().Memory == 3 }, waitFor, tick)
	stop()

	mem, _, _, _ := hook.snapshot()
	require.Len(t, mem, 3)
	assert.Equal(t, memory.TypeChat, mem[0].Type)
	assert.Equal(t, "Steve: Economy is on, try /warp and /kit", mem[0].Content)
	assert.Equal(t, memory.Event{Type: memory.TypeRecon, Content: "Detected System: Economy", Time: mem[1].Time}, mem[1])
	assert.Equal(t, "Alex: economy again /warp", mem[2].Content)

	st := rt.Status()
	assert.Equal(t, 2, st.Commands)
	assert.Equal(t, []string{"Economy"}, st.Plugins)
}

func TestOverlappingCycleIsSkipped(t *testing.T) {
	defer goleak.VerifyNone(t)

	conn := worldtest.NewSession("Nora")
	release := make(chan struct{})
	orc := &stubOracle{decide: func(ctx context.Context, _ oracle.Query) (oracle.Decision, error) {
		select {
		case <-release:
			return oracle.Decision{Action: oracle.ActionNone}, nil
		case <-ctx.Done():
			return oracle.Decision{}, ctx.Err()
		}
	}}
	hook := &recordingHook{}
	rt, err := New(testConfig(&sessions{list: []*worldtest.Session{conn}}, orc, hook))
	require.NoError(t, err)
	stop := start(t, rt)

	conn.Push(world.Event{Kind: world.EventSpawn})
	require.Eventually(t, func() bool {
		_, skipped, _, _ := hook.snapshot()
		return len(skipped) >= 2
	}, waitFor, tick)
	assert.Len(t, orc.Queries(), 1)

	close(release)
	require.Eventually(t, func() bool { return len(orc.Queries()) >= 2 }, waitFor, tick)
	stop()
}

func TestOracleFailureSkipsCycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	conn := worldtest.NewSession("Nora")
	conn.SetEntities(zombie)
	orc := &stubOracle{decide: func(context.Context, oracle.Query) (oracle.Decision, error) {
		return oracle.Decision{}, &oracle.Error{Kind: oracle.KindMalformed, Err: errors.New("not json")}
	}}
	hook := &recordingHook{}
	rt, err := New(testConfig(&sessions{list: []*worldtest.Session{conn}}, orc, hook))
	require.NoError(t, err)
	stop := start(t, rt)

	conn.Push(world.Event{Kind: world.EventSpawn})
	require.Eventually(t, func() bool {
		_, _, _, failures := hook.snapshot()
		return failures >= 2
	}, waitFor, tick)
	stop()

	assert.Empty(t, conn.AttackCalls())
	assert.Empty(t, conn.SentChats())
	assert.Equal(t, mode.Explorer, rt.Status().Mode)
}

func TestDecisionDroppedAfterDisconnect(t *testing.T) {
	defer goleak.VerifyNone(t)

	conn := worldtest.NewSession("Nora")
	conn.SetEntities(zombie)
	release := make(chan struct{})
	orc := &stubOracle{decide: func(ctx context.Context, _ oracle.Query) (oracle.Decision, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return oracle.Decision{}, ctx.Err()
		}
		return oracle.Decision{Playstyle: mode.Guardian, Action: oracle.ActionAttack}, nil
	}}
	hook := &recordingHook{}
	cfg := testConfig(&sessions{list: []*worldtest.Session{conn}}, orc, hook)
	cfg.ReconnectDelay = time.Hour
	rt, err := New(cfg)
	require.NoError(t, err)
	stop := start(t, rt)

	conn.Push(world.Event{Kind: world.EventSpawn})
	require.Eventually(t, func() bool { return len(orc.Queries()) == 1 }, waitFor, tick)
	conn.Push(world.Event{Kind: world.EventEnd, Reason: "socket closed"})
	require.Eventually(t, func() bool { return !rt.Status().Connected }, waitFor, tick)

	close(release)
	require.Eventually(t, func() bool {
		_, skipped, _, _ := hook.snapshot()
		for _, reason := range skipped {
			if reason == "session ended before decision arrived" {
				return true
			}
		}
		return false
	}, waitFor, tick)
	stop()

	assert.Empty(t, conn.AttackCalls())
	assert.Equal(t, mode.Explorer, rt.Status().Mode)
	assert.True(t, conn.IsClosed())
}

func TestReconnectsAfterEnd(t *testing.T) {
	defer goleak.VerifyNone(t)

	first := worldtest.NewSession("Nora")
	second := worldtest.NewSession("Nora")
	dialer := &sessions{list: []*worldtest.Session{first, second}}
	rt, err := New(testConfig(dialer, &stubOracle{}, nil))
	require.NoError(t, err)
	stop := start(t, rt)

	first.Push(world.Event{Kind: world.EventSpawn})
	require.Eventually(t, func() bool { return rt.Status().Spawned }, waitFor, tick)
	first.Push(world.Event{Kind: world.EventKicked, Reason: "idle too long"})

	require.Eventually(t, func() bool { return dialer.Dials() == 2 && rt.Status().Connected }, waitFor, tick)
	assert.True(t, first.IsClosed())
	assert.False(t, rt.Status().Spawned, "spawn has not happened on the new session yet")

	second.Push(world.Event{Kind: world.EventSpawn})
	require.Eventually(t, func() bool { return rt.Status().Spawned }, waitFor, tick)
	stop()

	assert.Equal(t, 1, rt.Status().Reconnects)
	assert.True(t, second.IsClosed())
}

func TestDialFailureRetries(t *testing.T) {
	defer goleak.VerifyNone(t)

	conn := worldtest.NewSession("Nora")
	dialer := &sessions{list: []*worldtest.Session{conn}, fail: 2}
	rt, err := New(testConfig(dialer, &stubOracle{}, nil))
	require.NoError(t, err)
	stop := start(t, rt)

	require.Eventually(t, func() bool { return rt.Status().Connected }, waitFor, tick)
	stop()
	assert.Equal(t, 3, dialer.Dials())
}

func TestBootstrapCommandsAreStaggered(t *testing.T) {
	defer goleak.VerifyNone(t)

	conn := worldtest.NewSession("Nora")
	cfg := testConfig(&sessions{list: []*worldtest.Session{conn}}, &stubOracle{}, nil)
	cfg.CycleInterval = time.Hour
	cfg.BootstrapCommands = nil
	cfg.BootstrapDelay = 10 * time.Millisecond
	cfg.BootstrapSpacing = 30 * time.Millisecond
	cfg.Throttle = 20 * time.Millisecond
	rt, err := New(cfg)
	require.NoError(t, err)
	stop := start(t, rt)

	conn.Push(world.Event{Kind: world.EventSpawn})
	require.Eventually(t, func() bool { return len(conn.SentChats()) == 2 }, waitFor, tick)
	stop()

	assert.Equal(t, []string{"/help", "/plugins"}, conn.SentChats())
}

func TestStallWatchdogRecovers(t *testing.T) {
	defer goleak.VerifyNone(t)

	conn := worldtest.NewSession("Nora")
	conn.SetMoving(true)
	cfg := testConfig(&sessions{list: []*worldtest.Session{conn}}, &stubOracle{}, nil)
	cfg.CycleInterval = time.Hour
	cfg.WatchdogInterval = 2 * time.Millisecond
	rt, err := New(cfg)
	require.NoError(t, err)
	stop := start(t, rt)

	conn.Push(world.Event{Kind: world.EventSpawn})
	require.Eventually(t, func() bool { return conn.ClearCalls() >= 1 }, waitFor, tick)
	stop()

	assert.Contains(t, conn.ControlCalls(), worldtest.ControlCall{Control: world.ControlJump, On: true})
}

func TestIdleAnimationLooksAround(t *testing.T) {
	defer goleak.VerifyNone(t)

	conn := worldtest.NewSession("Nora")
	cfg := testConfig(&sessions{list: []*worldtest.Session{conn}}, &stubOracle{}, nil)
	cfg.CycleInterval = time.Hour
	cfg.IdleInterval = 2 * time.Millisecond
	rt, err := New(cfg)
	require.NoError(t, err)
	stop := start(t, rt)

	conn.Push(world.Event{Kind: world.EventSpawn})
	require.Eventually(t, func() bool { return len(conn.LookCalls()) >= 60 }, waitFor, tick)
	stop()

	var pressed, released int
	for _, c := range conn.ControlCalls() {
		if c.Control == world.ControlJump && c.On {
			pressed++
		} else if c.Control == world.ControlJump {
			released++
		}
	}
	assert.Positive(t, pressed)
	assert.LessOrEqual(t, released, pressed)
}

func TestSetPersonaReachesOracle(t *testing.T) {
	defer goleak.VerifyNone(t)

	orc := &stubOracle{}
	rt, err := New(testConfig(&sessions{}, orc, nil))
	require.NoError(t, err)
	stop := start(t, rt)

	rt.SetPersona("You are Layla.")
	require.Eventually(t, func() bool { return orc.Persona() == "You are Layla." }, waitFor, tick)
	stop()
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Config{Oracle: &stubOracle{}})
	assert.Error(t, err)
	_, err = New(Config{Dialer: &sessions{}})
	assert.Error(t, err)
}

func TestLowHealthPreemptsPendingCycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	conn := worldtest.NewSession("Nora")
	release := make(chan struct{})
	orc := &stubOracle{decide: func(ctx context.Context, _ oracle.Query) (oracle.Decision, error) {
		select {
		case <-release:
			return oracle.Decision{Action: oracle.ActionNone}, nil
		case <-ctx.Done():
			return oracle.Decision{}, ctx.Err()
		}
	}}
	rt, err := New(testConfig(&sessions{list: []*worldtest.Session{conn}}, orc, nil))
	require.NoError(t, err)
	stop := start(t, rt)

	conn.Push(world.Event{Kind: world.EventSpawn})
	require.Eventually(t, func() bool { return len(orc.Queries()) == 1 }, waitFor, tick)

	conn.SetHealth(3)
	require.Eventually(t, func() bool {
		for _, c := range conn.SentChats() {
			if c == "/home" {
				return true
			}
		}
		return false
	}, waitFor, tick, "recovery must not wait for the oracle")
	assert.Len(t, orc.Queries(), 1)

	close(release)
	stop()
}

func TestDecisionDroppedAfterRespawn(t *testing.T) {
	defer goleak.VerifyNone(t)

	conn := worldtest.NewSession("Nora")
	conn.SetEntities(zombie)
	release := make(chan struct{})
	orc := &stubOracle{}
	orc.decide = func(ctx context.Context, _ oracle.Query) (oracle.Decision, error) {
		if len(orc.Queries()) > 1 {
			return oracle.Decision{Action: oracle.ActionNone}, nil
		}
		select {
		case <-release:
		case <-ctx.Done():
			return oracle.Decision{}, ctx.Err()
		}
		return oracle.Decision{Playstyle: mode.Guardian, Action: oracle.ActionAttack}, nil
	}
	hook := &recordingHook{}
	rt, err := New(testConfig(&sessions{list: []*worldtest.Session{conn}}, orc, hook))
	require.NoError(t, err)
	stop := start(t, rt)

	conn.Push(world.Event{Kind: world.EventSpawn})
	require.Eventually(t, func() bool { return len(orc.Queries()) == 1 }, waitFor, tick)

	// Death and respawn on the same connection.
	conn.Push(world.Event{Kind: world.EventSpawn})
	require.Eventually(t, func() bool { return len(conn.MovementCalls()) == 2 }, waitFor, tick)

	close(release)
	require.Eventually(t, func() bool {
		_, skipped, _, _ := hook.snapshot()
		for _, reason := range skipped {
			if reason == "respawned before decision arrived" {
				return true
			}
		}
		return false
	}, waitFor, tick)
	stop()

	assert.Empty(t, conn.AttackCalls())
	assert.Equal(t, mode.Explorer, rt.Status().Mode)
}
