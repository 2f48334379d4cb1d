// Package world defines the contracts between the agent core and the
// collaborators that own the game connection and the pathfinder.
package world

import (
	"context"
	"errors"
	"math"
)

// ErrNotConnected is returned by commands issued after the session closed.
var ErrNotConnected = errors.New("world: not connected")

// Vec3 is a position in world coordinates.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// DistanceTo returns the euclidean distance between v and o.
func (v Vec3) DistanceTo(o Vec3) float64 {
	dx, dy, dz := v.X-o.X, v.Y-o.Y, v.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// EntityKind classifies entities the way the bridge reports them.
type EntityKind string

const (
	KindPlayer  EntityKind = "player"
	KindHostile EntityKind = "hostile"
	KindOther   EntityKind = "other"
)

// Entity is a visible mob or player. ID is unique within a session.
type Entity struct {
	ID       int        `json:"id"`
	Kind     EntityKind `json:"kind"`
	Name     string     `json:"name"`
	Position Vec3       `json:"position"`
}

// Item is one inventory stack.
type Item struct {
	Slot  int    `json:"slot"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Block is a single block instance the bridge reported nearby.
type Block struct {
	Name     string `json:"name"`
	Position Vec3   `json:"position"`
}

// Control is a movement control state (jump, forward, sneak, ...).
type Control string

const (
	ControlJump    Control = "jump"
	ControlForward Control = "forward"
	ControlSneak   Control = "sneak"
)

// Connection is the primitive command and perception surface of the game
// connection. NearestEntity never returns the agent itself.
type Connection interface {
	Username() string
	Health() float64
	Food() float64
	Position() Vec3
	Yaw() float64
	OnGround() bool
	TimeOfDay() int64

	NearestEntity(match func(Entity) bool) (Entity, bool)
	Player(name string) (Entity, bool)
	Items() []Item
	KnownBlock(name string) bool
	FindBlock(name string, maxDistance float64) (Block, bool)

	Chat(msg string) error
	Look(yaw, pitch float64) error
	Attack(target Entity) error
	Equip(item Item, destination string) error
	CollectBlock(target Block) error
	SetControlState(c Control, on bool) error
	ClearControlStates() error
}

// Movements are the pathfinder capability flags a mode toggles.
type Movements struct {
	CanDig       bool `json:"can_dig"`
	AllowParkour bool `json:"allow_parkour"`
}

// Goal is a pathfinder target. Implementations: FollowGoal, BlockGoal.
type Goal interface {
	isGoal()
}

// FollowGoal keeps the agent within Range of an entity. Dynamic goals are
// re-evaluated continuously as the entity moves.
type FollowGoal struct {
	Target  Entity
	Range   float64
	Dynamic bool
}

// BlockGoal walks to a single block position once.
type BlockGoal struct {
	X, Y, Z int
}

func (FollowGoal) isGoal() {}
func (BlockGoal) isGoal()  {}

// Locomotion is the pathfinder surface.
type Locomotion interface {
	SetGoal(g Goal) error
	ClearGoal() error
	IsMoving() bool
	SetMovements(m Movements) error
}

// EventKind enumerates the lifecycle events a session pushes.
type EventKind string

const (
	EventSpawn  EventKind = "spawn"
	EventChat   EventKind = "chat"
	EventKicked EventKind = "kicked"
	EventError  EventKind = "error"
	EventEnd    EventKind = "end"
)

// Event is a session lifecycle notification. Username and Message are set
// for spawn and chat events; Reason for kicked, error and end.
type Event struct {
	Kind     EventKind
	Username string
	Message  string
	Reason   string
}

// Session is one live connection. Events is closed after the final
// EventEnd has been delivered.
type Session interface {
	Connection
	Locomotion
	Events() <-chan Event
	Close() error
}

// Dialer opens sessions. Dial may block until the handshake completes.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context) (Session, error)

func (f DialerFunc) Dial(ctx context.Context) (Session, error) { return f(ctx) }
