package wsbridge

import (
	"encoding/json"

	"github.com/ChamsBouzaiene/nora/internal/world"
)

// Inbound message types.
const (
	TypeSpawn  = "spawn"
	TypeState  = "state"
	TypeChat   = "chat"
	TypeKicked = "kicked"
	TypeError  = "error"
	TypeEnd    = "end"
)

// Outbound message types.
const (
	TypeHello        = "hello"
	CmdChat          = "chat"
	CmdLook          = "look"
	CmdAttack        = "attack"
	CmdEquip         = "equip"
	CmdCollect       = "collect"
	CmdControl       = "control"
	CmdClearControls = "clear_controls"
	CmdSetGoal       = "set_goal"
	CmdClearGoal     = "clear_goal"
	CmdMovements     = "movements"
	GoalKindFollow   = "follow"
	GoalKindBlock    = "block"
)

type baseMessage struct {
	Type string `json:"type"`
}

func decodeBase(b []byte) (baseMessage, error) {
	var m baseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

// Hello is the first frame on a new connection; the bridge joins the game
// server it names.
type Hello struct {
	Type     string `json:"type"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Auth     string `json:"auth"`
	Version  string `json:"version"`
}

type SpawnMsg struct {
	Type       string   `json:"type"`
	Username   string   `json:"username"`
	BlockTypes []string `json:"block_types"`
}

// StateMsg replaces the cached world view wholesale.
type StateMsg struct {
	Type       string         `json:"type"`
	Health     float64        `json:"health"`
	Food       float64        `json:"food"`
	Position   world.Vec3     `json:"position"`
	Yaw        float64        `json:"yaw"`
	OnGround   bool           `json:"on_ground"`
	TimeOfDay  int64          `json:"time_of_day"`
	Entities   []world.Entity `json:"entities"`
	Items      []world.Item   `json:"items"`
	Blocks     []world.Block  `json:"blocks"`
	PathActive bool           `json:"path_active"`
}

type ChatMsg struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

// ReasonMsg carries kicked, error and end.
type ReasonMsg struct {
	Type   string `json:"type"`
	Reason string `json:"reason,omitempty"`
}

// GoalWire is the serialized pathfinder goal.
type GoalWire struct {
	Kind     string  `json:"kind"`
	EntityID int     `json:"entity_id,omitempty"`
	Range    float64 `json:"range,omitempty"`
	Dynamic  bool    `json:"dynamic,omitempty"`
	X        int     `json:"x"`
	Y        int     `json:"y"`
	Z        int     `json:"z"`
}

// Command is every outbound instruction; unused fields are omitted.
type Command struct {
	Type        string           `json:"type"`
	Message     string           `json:"message,omitempty"`
	Yaw         *float64         `json:"yaw,omitempty"`
	Pitch       *float64         `json:"pitch,omitempty"`
	EntityID    int              `json:"entity_id,omitempty"`
	Item        *world.Item      `json:"item,omitempty"`
	Destination string           `json:"destination,omitempty"`
	Block       *world.Block     `json:"block,omitempty"`
	Control     world.Control    `json:"control,omitempty"`
	On          *bool            `json:"on,omitempty"`
	Goal        *GoalWire        `json:"goal,omitempty"`
	Movements   *world.Movements `json:"movements,omitempty"`
}

func goalWire(g world.Goal) GoalWire {
	switch g := g.(type) {
	case world.FollowGoal:
		return GoalWire{Kind: GoalKindFollow, EntityID: g.Target.ID, Range: g.Range, Dynamic: g.Dynamic}
	case world.BlockGoal:
		return GoalWire{Kind: GoalKindBlock, X: g.X, Y: g.Y, Z: g.Z}
	default:
		return GoalWire{}
	}
}
