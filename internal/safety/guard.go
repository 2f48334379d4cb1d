// Package safety gates every outgoing chat line: a fixed-window throttle and
// a blacklist of dangerous server commands.
package safety

import (
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// CommandMarker prefixes server commands.
	CommandMarker = "/"
	// DefaultThrottle is the minimum spacing between successful sends.
	DefaultThrottle = 2500 * time.Millisecond
)

// DefaultBlacklist holds the command roots the agent may never issue.
var DefaultBlacklist = []string{"/stop", "/ban", "/kick", "/op", "/deop", "/whitelist", "/reload", "/restart"}

// Verdict is the outcome of one Send.
type Verdict string

const (
	// Sent means the message reached the connection.
	Sent Verdict = "sent"
	// Empty means the message was blank after trimming and was dropped.
	Empty Verdict = "empty"
	// Throttled means a previous send is still inside the throttle window.
	Throttled Verdict = "throttled"
	// Blocked means the message starts with a blacklisted command root.
	Blocked Verdict = "blocked"
	// Failed means the connection rejected the message.
	Failed Verdict = "failed"
)

// Chatter is the single chat primitive of the world connection.
type Chatter interface {
	Chat(msg string) error
}

// Guard is not safe for concurrent use; the agent loop owns it.
type Guard struct {
	limiter   *rate.Limiter
	blacklist map[string]struct{}
	lastSent  time.Time
	now       func() time.Time
	log       *zap.Logger
}

// Option configures a Guard.
type Option func(*Guard)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// WithThrottle overrides DefaultThrottle.
func WithThrottle(d time.Duration) Option {
	return func(g *Guard) { g.limiter = rate.NewLimiter(rate.Every(d), 1) }
}

// WithBlacklist replaces DefaultBlacklist.
func WithBlacklist(cmds []string) Option {
	return func(g *Guard) {
		g.blacklist = make(map[string]struct{}, len(cmds))
		for _, c := range cmds {
			g.blacklist[strings.ToLower(c)] = struct{}{}
		}
	}
}

// NewGuard builds a guard with the default policy.
func NewGuard(log *zap.Logger, opts ...Option) *Guard {
	if log == nil {
		log = zap.NewNop()
	}
	g := &Guard{
		limiter: rate.NewLimiter(rate.Every(DefaultThrottle), 1),
		now:     time.Now,
		log:     log,
	}
	WithBlacklist(DefaultBlacklist)(g)
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Send forwards msg to c unless it is empty, throttled, or blacklisted.
// Rejections are silent to the caller beyond the returned verdict; only a
// successful send consumes the throttle window.
func (g *Guard) Send(c Chatter, msg string) Verdict {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return Empty
	}
	now := g.now()
	if g.limiter.TokensAt(now) < 1 {
		g.log.Debug("chat throttled", zap.String("msg", msg))
		return Throttled
	}
	if root, ok := g.blockedRoot(msg); ok {
		g.log.Warn("blocked dangerous command",
			zap.Bool("security", true),
			zap.String("command", root),
			zap.String("msg", msg))
		return Blocked
	}
	if err := c.Chat(msg); err != nil {
		g.log.Warn("chat send failed", zap.Error(err))
		return Failed
	}
	g.limiter.AllowN(now, 1)
	if now.After(g.lastSent) {
		g.lastSent = now
	}
	return Sent
}

// Blocked reports whether msg would be rejected by the blacklist.
func (g *Guard) Blocked(msg string) bool {
	_, ok := g.blockedRoot(strings.TrimSpace(msg))
	return ok
}

// LastSent is the time of the last successful send; it never moves backwards.
func (g *Guard) LastSent() time.Time { return g.lastSent }

func (g *Guard) blockedRoot(msg string) (string, bool) {
	if !strings.HasPrefix(msg, CommandMarker) {
		return "", false
	}
	root := strings.ToLower(strings.Fields(msg)[0])
	_, ok := g.blacklist[root]
	return root, ok
}
