// Package wire defines the websocket protocol spoken between the game server
// and its clients: one JSON object per message, discriminated by the "command"
// field.
package wire

import "github.com/outpost-game/outpost/internal/geo"

type Command string

const (
	// CmdUpdateLocation is the only client-to-server command. It reports the
	// player's current position.
	CmdUpdateLocation Command = "updateLocation"

	// Server-to-client commands.
	CmdError        Command = "error"
	CmdNotification Command = "notification"
	CmdUpdateUser   Command = "updateUser"
	CmdUpdateBases  Command = "updateBases"
)

// Envelope carries just the command discriminator. Inbound payloads are decoded
// into it first to pick the concrete message type.
type Envelope struct {
	Command Command `json:"command"`
}

// UpdateLocation is the inbound location report.
type UpdateLocation struct {
	Command  Command   `json:"command"`
	UserID   string    `json:"userId"`
	Location geo.Point `json:"location"`
}

// Message is an outbound command with its params payload.
type Message struct {
	Command Command `json:"command"`
	Params  any     `json:"params"`
}

type ErrorParams struct {
	Message string `json:"message"`
}

type NotificationParams struct {
	BaseID   string `json:"baseId"`
	BaseName string `json:"baseName"`
}

type UpdateUserParams struct {
	Money  float64 `json:"money"`
	Income float64 `json:"income"`
}

// BaseStatus is one entry of the updateBases params: the base identifier and
// the de-duplicated ids of the users currently in range. Nothing else about the
// sessions leaves the server.
type BaseStatus struct {
	ID          string   `json:"id"`
	ActiveUsers []string `json:"activeUsers"`
}
