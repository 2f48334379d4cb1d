// Package wsbridge connects to a bridge process that speaks the game
// protocol and runs the pathfinder, and exposes it as a world.Session over a
// JSON websocket.
package wsbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ChamsBouzaiene/nora/internal/world"
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 5 * time.Second
	// readTimeout bounds silence from the bridge; it streams state far
	// more often than this.
	readTimeout = 60 * time.Second
	eventBuffer = 64
)

// Dialer opens bridge sessions. It implements world.Dialer.
type Dialer struct {
	URL   string
	Hello Hello
	Log   *zap.Logger
}

// Dial connects, sends the hello frame and starts the read loop. The
// session is usable immediately; EventSpawn follows once the bridge has
// joined the server.
func (d *Dialer) Dial(ctx context.Context) (world.Session, error) {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	wd := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, resp, err := wd.DialContext(ctx, d.URL, http.Header{})
	if err != nil {
		return nil, fmt.Errorf("dial bridge %s: %w", d.URL, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	hello := d.Hello
	hello.Type = TypeHello
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(hello); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send hello: %w", err)
	}

	s := &Session{
		conn:     conn,
		log:      log,
		username: hello.Username,
		events:   make(chan world.Event, eventBuffer),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

// Session is safe for concurrent use: reads come from a cache the read loop
// replaces under mu, writes are serialized by writeMu.
type Session struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	log     *zap.Logger

	mu         sync.RWMutex
	username   string
	state      StateMsg
	blockTypes map[string]struct{}

	events    chan world.Event
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func (s *Session) Events() <-chan world.Event { return s.events }

// Close drops the connection and waits for the read loop to exit.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stop)
		err = s.conn.Close()
		<-s.done
	})
	return err
}

func (s *Session) readLoop() {
	defer close(s.done)
	defer close(s.events)

	ended := false
	defer func() {
		if !ended {
			s.emit(world.Event{Kind: world.EventEnd, Reason: "connection closed"})
		}
	}()

	for {
		_ = s.conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.stop:
			default:
				s.log.Debug("bridge read ended", zap.Error(err))
				s.emit(world.Event{Kind: world.EventEnd, Reason: err.Error()})
				ended = true
			}
			return
		}
		base, err := decodeBase(msg)
		if err != nil {
			s.log.Debug("undecodable bridge frame", zap.Error(err))
			continue
		}
		switch base.Type {
		case TypeState:
			var st StateMsg
			if err := json.Unmarshal(msg, &st); err != nil {
				continue
			}
			s.mu.Lock()
			s.state = st
			s.mu.Unlock()

		case TypeSpawn:
			var sp SpawnMsg
			if err := json.Unmarshal(msg, &sp); err != nil {
				continue
			}
			types := make(map[string]struct{}, len(sp.BlockTypes))
			for _, b := range sp.BlockTypes {
				types[b] = struct{}{}
			}
			s.mu.Lock()
			if sp.Username != "" {
				s.username = sp.Username
			}
			s.blockTypes = types
			s.mu.Unlock()
			s.emit(world.Event{Kind: world.EventSpawn, Username: sp.Username})

		case TypeChat:
			var c ChatMsg
			if err := json.Unmarshal(msg, &c); err != nil {
				continue
			}
			s.emit(world.Event{Kind: world.EventChat, Username: c.Username, Message: c.Message})

		case TypeKicked, TypeError, TypeEnd:
			var r ReasonMsg
			_ = json.Unmarshal(msg, &r)
			kind := map[string]world.EventKind{
				TypeKicked: world.EventKicked,
				TypeError:  world.EventError,
				TypeEnd:    world.EventEnd,
			}[base.Type]
			s.emit(world.Event{Kind: kind, Reason: r.Reason})
			if kind == world.EventEnd {
				ended = true
				_ = s.conn.Close()
				return
			}
		}
	}
}

func (s *Session) emit(ev world.Event) {
	select {
	case s.events <- ev:
	case <-s.stop:
	}
}

func (s *Session) send(cmd Command) error {
	select {
	case <-s.stop:
		return world.ErrNotConnected
	case <-s.done:
		return world.ErrNotConnected
	default:
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteJSON(cmd); err != nil {
		if errors.Is(err, websocket.ErrCloseSent) {
			return world.ErrNotConnected
		}
		return fmt.Errorf("bridge %s: %w", cmd.Type, err)
	}
	return nil
}

func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

func (s *Session) Health() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Health
}

func (s *Session) Food() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Food
}

func (s *Session) Position() world.Vec3 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Position
}

func (s *Session) Yaw() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Yaw
}

func (s *Session) OnGround() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.OnGround
}

func (s *Session) TimeOfDay() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.TimeOfDay
}

// IsMoving reports whether the bridge's pathfinder has an active goal.
func (s *Session) IsMoving() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.PathActive
}

func (s *Session) NearestEntity(match func(world.Entity) bool) (world.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		best  world.Entity
		bestD = math.Inf(1)
		found bool
	)
	for _, e := range s.state.Entities {
		if e.Kind == world.KindPlayer && e.Name == s.username {
			continue
		}
		if !match(e) {
			continue
		}
		if d := e.Position.DistanceTo(s.state.Position); d < bestD {
			best, bestD, found = e, d, true
		}
	}
	return best, found
}

func (s *Session) Player(name string) (world.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.state.Entities {
		if e.Kind == world.KindPlayer && e.Name == name && name != s.username {
			return e, true
		}
	}
	return world.Entity{}, false
}

func (s *Session) Items() []world.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]world.Item(nil), s.state.Items...)
}

func (s *Session) KnownBlock(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blockTypes[name]
	return ok
}

// FindBlock searches the blocks the bridge last reported around the agent.
func (s *Session) FindBlock(name string, maxDistance float64) (world.Block, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		best  world.Block
		bestD = math.Inf(1)
		found bool
	)
	for _, b := range s.state.Blocks {
		if b.Name != name {
			continue
		}
		if d := b.Position.DistanceTo(s.state.Position); d <= maxDistance && d < bestD {
			best, bestD, found = b, d, true
		}
	}
	return best, found
}

func (s *Session) Chat(msg string) error {
	return s.send(Command{Type: CmdChat, Message: msg})
}

func (s *Session) Look(yaw, pitch float64) error {
	return s.send(Command{Type: CmdLook, Yaw: &yaw, Pitch: &pitch})
}

func (s *Session) Attack(target world.Entity) error {
	return s.send(Command{Type: CmdAttack, EntityID: target.ID})
}

func (s *Session) Equip(item world.Item, destination string) error {
	return s.send(Command{Type: CmdEquip, Item: &item, Destination: destination})
}

func (s *Session) CollectBlock(target world.Block) error {
	return s.send(Command{Type: CmdCollect, Block: &target})
}

func (s *Session) SetControlState(c world.Control, on bool) error {
	return s.send(Command{Type: CmdControl, Control: c, On: &on})
}

func (s *Session) ClearControlStates() error {
	return s.send(Command{Type: CmdClearControls})
}

func (s *Session) SetGoal(g world.Goal) error {
	w := goalWire(g)
	if w.Kind == "" {
		return fmt.Errorf("unsupported goal %T", g)
	}
	return s.send(Command{Type: CmdSetGoal, Goal: &w})
}

func (s *Session) ClearGoal() error {
	return s.send(Command{Type: CmdClearGoal})
}

func (s *Session) SetMovements(m world.Movements) error {
	return s.send(Command{Type: CmdMovements, Movements: &m})
}

var (
	_ world.Session = (*Session)(nil)
	_ world.Dialer  = (*Dialer)(nil)
)
