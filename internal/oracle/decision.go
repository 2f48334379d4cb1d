package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/ChamsBouzaiene/nora/internal/mode"
)

// Action is what the oracle asks the agent to do this cycle.
type Action string

const (
	ActionMoveTo     Action = "move_to"
	ActionFollow     Action = "follow"
	ActionAttack     Action = "attack"
	ActionMine       Action = "mine"
	ActionCollect    Action = "collect"
	ActionExplore    Action = "explore"
	ActionUseCommand Action = "use_command"
	ActionSit        Action = "sit"
	ActionNone       Action = "none"

	// ActionUnrecognized marks a value outside the enum; it executes as a no-op.
	ActionUnrecognized Action = "unrecognized"
)

// Actions lists the enum in prompt order.
var Actions = []Action{
	ActionMoveTo, ActionFollow, ActionAttack, ActionMine, ActionCollect,
	ActionExplore, ActionUseCommand, ActionSit, ActionNone,
}

// ParseAction maps an oracle string onto the enum.
func ParseAction(s string) Action {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, a := range Actions {
		if s == string(a) {
			return a
		}
	}
	return ActionUnrecognized
}

// Meta carries the optional arguments of an action.
type Meta struct {
	Target string
	Cmd    string
}

// Decision is one validated oracle response. It lives for a single cycle.
// Playstyle is empty when the oracle omitted it and mode.Unrecognized when
// it named something outside the enum; the raw strings are kept for logs.
type Decision struct {
	Thought             string
	PluginDiscoveryNote string
	Playstyle           mode.Mode
	RawPlaystyle        string
	Chat                string
	Action              Action
	RawAction           string
	Meta                Meta
}

// decisionSchema fixes field types. Enum membership is checked after
// validation so that an unknown value degrades to a no-op instead of
// discarding the whole decision.
const decisionSchema = `{
  "type": "object",
  "required": ["thought", "playstyle", "action"],
  "properties": {
    "thought": {"type": "string"},
    "plugin_discovery_note": {"type": ["string", "null"]},
    "playstyle": {"type": "string"},
    "chat": {"type": ["string", "null"]},
    "action": {"type": "string"},
    "meta": {
      "type": ["object", "null"],
      "properties": {
        "target": {"type": ["string", "null"]},
        "cmd": {"type": ["string", "null"]}
      }
    }
  }
}`

type wireDecision struct {
	Thought             string  `json:"thought"`
	PluginDiscoveryNote *string `json:"plugin_discovery_note"`
	Playstyle           string  `json:"playstyle"`
	Chat                *string `json:"chat"`
	Action              string  `json:"action"`
	Meta                *struct {
		Target *string `json:"target"`
		Cmd    *string `json:"cmd"`
	} `json:"meta"`
}

// Parser validates raw oracle payloads.
type Parser struct {
	schema *gojsonschema.Schema
}

// NewParser compiles the decision schema.
func NewParser() (*Parser, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(decisionSchema))
	if err != nil {
		return nil, fmt.Errorf("compile decision schema: %w", err)
	}
	return &Parser{schema: schema}, nil
}

// Parse turns a raw payload into a Decision. Non-JSON input fails with
// KindMalformed, a shape mismatch with KindSchema.
func (p *Parser) Parse(raw string) (Decision, error) {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return Decision{}, &Error{Kind: KindMalformed, Err: err}
	}

	result, err := p.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return Decision{}, &Error{Kind: KindSchema, Err: err}
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return Decision{}, &Error{Kind: KindSchema, Err: fmt.Errorf("%s", strings.Join(msgs, "; "))}
	}

	var w wireDecision
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return Decision{}, &Error{Kind: KindSchema, Err: err}
	}

	d := Decision{
		Thought:      w.Thought,
		RawPlaystyle: w.Playstyle,
		Action:       ParseAction(w.Action),
		RawAction:    w.Action,
	}
	d.Playstyle, _ = mode.Parse(w.Playstyle)
	d.PluginDiscoveryNote = deref(w.PluginDiscoveryNote)
	d.Chat = deref(w.Chat)
	if w.Meta != nil {
		d.Meta = Meta{Target: deref(w.Meta.Target), Cmd: deref(w.Meta.Cmd)}
	}
	return d, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
