package agent

import (
	"github.com/ChamsBouzaiene/nora/internal/oracle"
	"github.com/ChamsBouzaiene/nora/internal/world"
)

// event is anything the loop consumes besides its own tickers.
type event interface{ isEvent() }

type connected struct{ session world.Session }

type dialFailed struct{ err error }

// sessionEvent wraps spawn, chat, kicked, error and end.
type sessionEvent struct {
	gen uint64
	ev  world.Event
}

// sessionClosed is posted when a session's event stream ends.
type sessionClosed struct{ gen uint64 }

type decisionReady struct {
	gen      uint64
	spawn    uint64
	cycleID  string
	decision oracle.Decision
	err      error
}

type reconnectDue struct{}

type bootstrapChat struct {
	gen uint64
	cmd string
}

type jumpRelease struct{ gen uint64 }

type personaReloaded struct{ persona string }

func (connected) isEvent()       {}
func (dialFailed) isEvent()      {}
func (sessionEvent) isEvent()    {}
func (sessionClosed) isEvent()   {}
func (decisionReady) isEvent()   {}
func (reconnectDue) isEvent()    {}
func (bootstrapChat) isEvent()   {}
func (jumpRelease) isEvent()     {}
func (personaReloaded) isEvent() {}
