// Package memory holds the agent's bounded short-term event log and its
// long-term goals. Both are serialized verbatim into every oracle query.
package memory

import (
	"time"
)

// DefaultCapacity bounds the short-term log.
const DefaultCapacity = 25

// Event types recorded by the core.
const (
	TypeChat  = "chat"
	TypeRecon = "recon"
)

// Event is one short-term memory entry. Time is unix milliseconds.
type Event struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Time    int64  `json:"time"`
}

// LongTerm is seeded once and never mutated by the core.
type LongTerm struct {
	Goals          []string `json:"goals"`
	EmotionalState string   `json:"emotional_state"`
}

// Snapshot is the serialized form sent upstream.
type Snapshot struct {
	ShortTerm []Event  `json:"shortTerm"`
	LongTerm  LongTerm `json:"longTerm"`
}

// Store is not safe for concurrent use; the agent loop owns it.
type Store struct {
	shortTerm []Event
	longTerm  LongTerm
	capacity  int
	now       func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithCapacity overrides DefaultCapacity. Values below 1 are ignored.
func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore seeds the long-term record.
func NewStore(goals []string, emotionalState string, opts ...Option) *Store {
	s := &Store{
		longTerm: LongTerm{
			Goals:          append([]string(nil), goals...),
			EmotionalState: emotionalState,
		},
		capacity: DefaultCapacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.shortTerm = make([]Event, 0, s.capacity)
	return s
}

// Record appends an event stamped with the current time, evicting the
// oldest entries once capacity is exceeded.
func (s *Store) Record(eventType, content string) Event {
	ev := Event{Type: eventType, Content: content, Time: s.now().UnixMilli()}
	s.shortTerm = append(s.shortTerm, ev)
	if over := len(s.shortTerm) - s.capacity; over > 0 {
		// shift in place so the backing array does not grow without bound
		copy(s.shortTerm, s.shortTerm[over:])
		s.shortTerm = s.shortTerm[:s.capacity]
	}
	return ev
}

// Len reports the current short-term length.
func (s *Store) Len() int { return len(s.shortTerm) }

// Snapshot returns a deep copy, safe to hand to another goroutine.
func (s *Store) Snapshot() Snapshot {
	return Snapshot{
		ShortTerm: append([]Event(nil), s.shortTerm...),
		LongTerm: LongTerm{
			Goals:          append([]string(nil), s.longTerm.Goals...),
			EmotionalState: s.longTerm.EmotionalState,
		},
	}
}
