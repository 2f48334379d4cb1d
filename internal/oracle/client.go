// Package oracle queries the external reasoning service for one decision per
// cycle and validates what comes back.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
)

// Completer sends one system+user exchange and returns the raw reply text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Client is safe for concurrent use: the system prompt is swapped atomically
// so a persona reload never races an in-flight query.
type Client struct {
	completer Completer
	parser    *Parser
	system    atomic.Pointer[string]
}

// NewClient wraps a completer with the given persona.
func NewClient(c Completer, persona string) (*Client, error) {
	p, err := NewParser()
	if err != nil {
		return nil, err
	}
	cl := &Client{completer: c, parser: p}
	cl.SetPersona(persona)
	return cl, nil
}

// SetPersona replaces the persona half of the system prompt.
func (c *Client) SetPersona(persona string) {
	prompt := BuildSystemPrompt(persona)
	c.system.Store(&prompt)
}

// SystemPrompt returns the prompt currently in use.
func (c *Client) SystemPrompt() string { return *c.system.Load() }

// Decide sends q and returns the parsed decision. Any failure is an *Error;
// the caller skips the cycle.
func (c *Client) Decide(ctx context.Context, q Query) (Decision, error) {
	payload, err := json.Marshal(q)
	if err != nil {
		return Decision{}, fmt.Errorf("encode query: %w", err)
	}
	raw, err := c.completer.Complete(ctx, c.SystemPrompt(), string(payload))
	if err != nil {
		return Decision{}, wrapTransport(err)
	}
	return c.parser.Parse(raw)
}
