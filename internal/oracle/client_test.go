package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChamsBouzaiene/nora/internal/memory"
	"github.com/ChamsBouzaiene/nora/internal/mode"
	"github.com/ChamsBouzaiene/nora/internal/perception"
	"github.com/ChamsBouzaiene/nora/internal/world"
)

type stubCompleter struct {
	reply  string
	err    error
	system string
	user   string
}

func (s *stubCompleter) Complete(_ context.Context, system, user string) (string, error) {
	s.system, s.user = system, user
	return s.reply, s.err
}

func sampleQuery() Query {
	snap := perception.Snapshot{
		Timestamp:     time.UnixMilli(1_700_000_000_000),
		Health:        18,
		Food:          15,
		Position:      world.Vec3{X: 1, Y: 64, Z: 2},
		TimeOfDay:     6000,
		PlayerVisible: true,
	}
	mem := memory.NewStore([]string{"Protect the player"}, "Stable").Snapshot()
	return NewQuery(snap, []string{"/help"}, nil, mem, mode.Explorer)
}

func TestDecideSendsStructuredQuery(t *testing.T) {
	stub := &stubCompleter{reply: `{"thought":"hi","playstyle":"Teacher","action":"sit"}`}
	c, err := NewClient(stub, "")
	require.NoError(t, err)

	d, err := c.Decide(context.Background(), sampleQuery())

	require.NoError(t, err)
	assert.Equal(t, ActionSit, d.Action)
	assert.Contains(t, stub.system, "Nora")
	assert.Contains(t, stub.system, `"none" should be rare`)

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(stub.user), &sent))
	for _, key := range []string{"timestamp", "self", "surroundings", "discovery", "memory", "current_state"} {
		assert.Contains(t, sent, key)
	}
	assert.Equal(t, "Explorer", sent["current_state"])
	disc := sent["discovery"].(map[string]any)
	assert.Equal(t, []any{"/help"}, disc["available_commands"])
	assert.Equal(t, []any{}, disc["known_plugins"])
	surr := sent["surroundings"].(map[string]any)
	assert.Equal(t, true, surr["player_visible"])
}

func TestDecideTransportFailure(t *testing.T) {
	stub := &stubCompleter{err: errors.New("status code 429: rate limited")}
	c, err := NewClient(stub, "")
	require.NoError(t, err)

	_, err = c.Decide(context.Background(), sampleQuery())

	var oe *Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, KindTransport, oe.Kind)
	assert.Equal(t, 429, oe.HTTPStatus)
}

func TestDecideMalformedReply(t *testing.T) {
	c, err := NewClient(&stubCompleter{reply: "<html>bad gateway</html>"}, "")
	require.NoError(t, err)

	_, err = c.Decide(context.Background(), sampleQuery())

	assert.True(t, IsFailure(err, KindMalformed))
}

func TestSetPersonaKeepsOutputContract(t *testing.T) {
	stub := &stubCompleter{reply: `{"thought":"x","playstyle":"Explorer","action":"none"}`}
	c, err := NewClient(stub, "")
	require.NoError(t, err)

	c.SetPersona("You are Mira, a quiet miner.")
	_, err = c.Decide(context.Background(), sampleQuery())

	require.NoError(t, err)
	assert.Contains(t, stub.system, "Mira")
	assert.NotContains(t, stub.system, "Nora")
	assert.Contains(t, stub.system, `"playstyle": "Guardian | Tycoon | Teacher | Sister | Explorer"`)
}

func TestNewCompleter(t *testing.T) {
	_, model, err := NewCompleter(ProviderConfig{Provider: "groq", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "llama-3.3-70b-versatile", model)

	_, _, err = NewCompleter(ProviderConfig{Provider: "groq"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, model, err = NewCompleter(ProviderConfig{Provider: "ollama", Model: "qwen2.5"})
	require.NoError(t, err)
	assert.Equal(t, "qwen2.5", model)

	c, _, err := NewCompleter(ProviderConfig{Provider: "anthropic", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &AnthropicCompleter{}, c)

	_, _, err = NewCompleter(ProviderConfig{Provider: "mystery"})
	assert.Error(t, err)
}
