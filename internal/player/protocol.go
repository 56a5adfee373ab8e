package player

import (
	"fmt"

	"reviewsync/internal/playback"
	"reviewsync/internal/timeline"
)

// Client to server message types.
const (
	MsgReady        = "ready"
	MsgTimeUpdate   = "timeupdate"
	MsgEnded        = "ended"
	MsgScrubStart   = "scrub_start"
	MsgScrubEnd     = "scrub_end"
	MsgSetTime      = "set_time"
	MsgPlay         = "play"
	MsgPause        = "pause"
	MsgSwitchCamera = "switch_camera"
	MsgExportMode   = "export_mode"
	MsgExportStart  = "export_start"
	MsgExportEnd    = "export_end"
)

// Server to client command types.
const (
	CmdSeek  = "seek"
	CmdScrub = "scrub"
	CmdPlay  = "play"
	CmdPause = "pause"
	CmdLoad  = "load"
	CmdState = "state"
	// CmdRole tells a player it was promoted to or demoted from main.
	CmdRole  = "role"
	CmdError = "error"
)

type Message struct {
	Type   string  `json:"type"`
	Camera string  `json:"camera,omitempty"`
	Time   float64 `json:"time,omitempty"`
	Force  bool    `json:"force,omitempty"`
	Mode   string  `json:"mode,omitempty"`
}

type Command struct {
	Type   string              `json:"type"`
	Camera string              `json:"camera,omitempty"`
	Time   float64             `json:"time,omitempty"`
	Force  bool                `json:"force,omitempty"`
	Range  *timeline.TimeRange `json:"range,omitempty"`
	Role   Role                `json:"role,omitempty"`
	State  *playback.Snapshot  `json:"state,omitempty"`
	Error  string              `json:"error,omitempty"`
}

// Role is what a connection does in a session.
type Role string

const (
	// RoleMain players can be reloaded with a new source window.
	RoleMain    Role = "main"
	RolePreview Role = "preview"
	// RoleControl connections only send user input and receive state.
	RoleControl Role = "control"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case "", RoleMain:
		return RoleMain, nil
	case RolePreview, RoleControl:
		return Role(s), nil
	}
	return "", fmt.Errorf("player: unknown role %q", s)
}
