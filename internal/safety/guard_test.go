package safety

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChamsBouzaiene/nora/internal/world/worldtest"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }
func newClock() *clock                   { return &clock{t: time.Unix(1_700_000_000, 0)} }
func newGuard(c *clock) *Guard           { return NewGuard(nil, WithClock(c.now)) }

func TestThrottleDropsSecondSendInsideWindow(t *testing.T) {
	c := newClock()
	g := newGuard(c)
	conn := worldtest.NewSession("nora")

	require.Equal(t, Sent, g.Send(conn, "hello"))
	c.advance(1 * time.Second)
	assert.Equal(t, Throttled, g.Send(conn, "again"))
	c.advance(1400 * time.Millisecond)
	assert.Equal(t, Throttled, g.Send(conn, "still too soon"))

	assert.Equal(t, []string{"hello"}, conn.SentChats())
}

func TestThrottleReopensAfterWindow(t *testing.T) {
	c := newClock()
	g := newGuard(c)
	conn := worldtest.NewSession("nora")

	require.Equal(t, Sent, g.Send(conn, "one"))
	c.advance(2600 * time.Millisecond)
	require.Equal(t, Sent, g.Send(conn, "two"))

	assert.Equal(t, []string{"one", "two"}, conn.SentChats())
	assert.Equal(t, c.t, g.LastSent())
}

func TestBlacklistBlocksRegardlessOfCase(t *testing.T) {
	tests := []string{"/stop", "/OP Steve", "/Whitelist off", "/reload confirm", "/ban Steve griefing", "/restart"}
	for _, msg := range tests {
		t.Run(msg, func(t *testing.T) {
			c := newClock()
			g := newGuard(c)
			conn := worldtest.NewSession("nora")

			assert.Equal(t, Blocked, g.Send(conn, msg))
			assert.True(t, g.Blocked(msg))
			assert.Empty(t, conn.SentChats())
		})
	}
}

func TestBlacklistMatchesWholeRootOnly(t *testing.T) {
	c := newClock()
	g := newGuard(c)
	conn := worldtest.NewSession("nora")

	assert.Equal(t, Sent, g.Send(conn, "/opinion please"))
	c.advance(3 * time.Second)
	assert.Equal(t, Sent, g.Send(conn, "let's not /stop now"))
}

func TestBlockedSendDoesNotConsumeWindow(t *testing.T) {
	c := newClock()
	g := newGuard(c)
	conn := worldtest.NewSession("nora")

	require.Equal(t, Blocked, g.Send(conn, "/kick Alex"))
	assert.Equal(t, Sent, g.Send(conn, "/spawn"))
}

func TestFailedSendDoesNotConsumeWindow(t *testing.T) {
	c := newClock()
	g := newGuard(c)
	conn := worldtest.NewSession("nora")
	conn.ChatErr = errors.New("socket closed")

	require.Equal(t, Failed, g.Send(conn, "hi"))
	assert.True(t, g.LastSent().IsZero())

	conn.ChatErr = nil
	assert.Equal(t, Sent, g.Send(conn, "hi"))
}

func TestEmptyMessage(t *testing.T) {
	g := newGuard(newClock())
	conn := worldtest.NewSession("nora")

	assert.Equal(t, Empty, g.Send(conn, "   "))
	assert.Empty(t, conn.SentChats())
}
