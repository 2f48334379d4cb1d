// Package worldtest provides an in-memory world.Session for tests.
package worldtest

import (
	"sync"

	"github.com/ChamsBouzaiene/nora/internal/world"
)

// ControlCall records one SetControlState invocation.
type ControlCall struct {
	Control world.Control
	On      bool
}

// LookCall records one Look invocation.
type LookCall struct {
	Yaw, Pitch float64
}

// Session is a scriptable fake. Exported fields describe the world; the
// recorded slices capture the commands the core issued.
type Session struct {
	mu sync.Mutex

	Name      string
	HP        float64
	Hunger    float64
	Pos       world.Vec3
	Heading   float64
	Grounded  bool
	Time      int64
	Entities  []world.Entity
	Inventory []world.Item
	Blocks    []world.Block
	// BlockTypes are registry names known even without a nearby instance.
	BlockTypes []string
	Moving     bool
	ChatErr    error

	Chats       []string
	Looks       []LookCall
	Attacks     []world.Entity
	Equips      []world.Item
	Collects    []world.Block
	Controls    []ControlCall
	ClearCount  int
	Goals       []world.Goal
	GoalClears  int
	MovementSet []world.Movements
	Closed      bool

	events chan world.Event
}

// NewSession returns a fake positioned at the origin with full health.
func NewSession(name string) *Session {
	return &Session{
		Name:     name,
		HP:       20,
		Hunger:   20,
		Grounded: true,
		events:   make(chan world.Event, 16),
	}
}

// Push delivers a lifecycle event to the consumer of Events.
func (s *Session) Push(ev world.Event) { s.events <- ev }

func (s *Session) Events() <-chan world.Event { return s.events }

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.Closed {
		s.Closed = true
		close(s.events)
	}
	return nil
}

func (s *Session) Username() string { return s.Name }

func (s *Session) Health() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.HP
}

func (s *Session) Food() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Hunger
}

func (s *Session) Position() world.Vec3 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Pos
}

// SetPosition moves the fake agent.
func (s *Session) SetPosition(p world.Vec3) {
	s.mu.Lock()
	s.Pos = p
	s.mu.Unlock()
}

func (s *Session) Yaw() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Heading
}

func (s *Session) OnGround() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Grounded
}

func (s *Session) TimeOfDay() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Time
}

func (s *Session) NearestEntity(match func(world.Entity) bool) (world.Entity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best world.Entity
	found := false
	for _, e := range s.Entities {
		if !match(e) {
			continue
		}
		if !found || e.Position.DistanceTo(s.Pos) < best.Position.DistanceTo(s.Pos) {
			best, found = e, true
		}
	}
	return best, found
}

func (s *Session) Player(name string) (world.Entity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.Entities {
		if e.Kind == world.KindPlayer && e.Name == name {
			return e, true
		}
	}
	return world.Entity{}, false
}

func (s *Session) Items() []world.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]world.Item(nil), s.Inventory...)
}

func (s *Session) KnownBlock(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.Blocks {
		if b.Name == name {
			return true
		}
	}
	for _, t := range s.BlockTypes {
		if t == name {
			return true
		}
	}
	return false
}

func (s *Session) FindBlock(name string, maxDistance float64) (world.Block, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.Blocks {
		if b.Name == name && b.Position.DistanceTo(s.Pos) <= maxDistance {
			return b, true
		}
	}
	return world.Block{}, false
}

func (s *Session) Chat(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ChatErr != nil {
		return s.ChatErr
	}
	s.Chats = append(s.Chats, msg)
	return nil
}

// SentChats returns a copy of the messages that reached the connection.
func (s *Session) SentChats() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.Chats...)
}

func (s *Session) Look(yaw, pitch float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Looks = append(s.Looks, LookCall{Yaw: yaw, Pitch: pitch})
	return nil
}

func (s *Session) Attack(target world.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Attacks = append(s.Attacks, target)
	return nil
}

func (s *Session) Equip(item world.Item, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Equips = append(s.Equips, item)
	return nil
}

func (s *Session) CollectBlock(target world.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Collects = append(s.Collects, target)
	return nil
}

func (s *Session) SetControlState(c world.Control, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Controls = append(s.Controls, ControlCall{Control: c, On: on})
	return nil
}

func (s *Session) ClearControlStates() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ClearCount++
	return nil
}

func (s *Session) SetGoal(g world.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Goals = append(s.Goals, g)
	return nil
}

func (s *Session) ClearGoal() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.GoalClears++
	return nil
}

func (s *Session) IsMoving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Moving
}

func (s *Session) SetMovements(m world.Movements) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MovementSet = append(s.MovementSet, m)
	return nil
}

// MovementCalls returns a copy of every SetMovements argument so far.
func (s *Session) MovementCalls() []world.Movements {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]world.Movements(nil), s.MovementSet...)
}

var _ world.Session = (*Session)(nil)

// SetHealth changes the reported health.
func (s *Session) SetHealth(hp float64) {
	s.mu.Lock()
	s.HP = hp
	s.mu.Unlock()
}

// SetMoving toggles whether the pathfinder reports an active goal.
func (s *Session) SetMoving(on bool) {
	s.mu.Lock()
	s.Moving = on
	s.mu.Unlock()
}

// SetEntities replaces the visible entities.
func (s *Session) SetEntities(es ...world.Entity) {
	s.mu.Lock()
	s.Entities = es
	s.mu.Unlock()
}

func (s *Session) AttackCalls() []world.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]world.Entity(nil), s.Attacks...)
}

func (s *Session) ControlCalls() []ControlCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ControlCall(nil), s.Controls...)
}

func (s *Session) LookCalls() []LookCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]LookCall(nil), s.Looks...)
}

func (s *Session) GoalCalls() []world.Goal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]world.Goal(nil), s.Goals...)
}

func (s *Session) ClearCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ClearCount
}

func (s *Session) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Closed
}
