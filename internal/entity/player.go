package entity

// Move is a single placement. It is not kept after it is applied, except as a wire payload.
// Game numbers the game the move belongs to; it wraps around.
type Move struct {
	Row    int   `json:"row"`
	Col    int   `json:"col"`
	Player Mark  `json:"player"`
	Game   uint8 `json:"game"`
}

type ModeKind string

const (
	ModeLocal       ModeKind = "local"
	ModeLocalWithAI ModeKind = "bot"
	ModeNetworked   ModeKind = "networked"
)

// Mode tags a controller with how its moves originate. Role is only meaningful for ModeNetworked,
// where it holds the local player's mark; for ModeLocalWithAI it holds the bot's mark.
type Mode struct {
	Kind ModeKind `json:"kind"`
	Role Mark     `json:"role,omitempty"`
}

func Local() Mode {
	return Mode{Kind: ModeLocal}
}

func LocalWithAI(botMark Mark) Mode {
	return Mode{Kind: ModeLocalWithAI, Role: botMark}
}

func Networked(localRole Mark) Mode {
	return Mode{Kind: ModeNetworked, Role: localRole}
}

func (that Mode) IsNetworked() bool {
	return that.Kind == ModeNetworked
}

func (that Mode) WithBot() bool {
	return that.Kind == ModeLocalWithAI
}

// Snapshot is what the presentation layer gets to see after every change.
type Snapshot struct {
	Board      Board  `json:"board"`
	Mode       Mode   `json:"mode"`
	Game       uint8  `json:"game"`
	LinkClosed bool   `json:"link_closed,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
}
