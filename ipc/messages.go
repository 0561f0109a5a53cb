package ipc

import "github.com/nstehr/vimy/hivemind/model"

// Message types shared with the game-side client.
const (
	TypeHello      = "hello"
	TypeAck        = "ack"
	TypeTick       = "tick"
	TypeDirectives = "directives"
)

// HelloMessage opens a match. MatchID is optional; the sidecar assigns one
// when the client does not.
type HelloMessage struct {
	Player  string `json:"player"`
	Race    string `json:"race"`
	MatchID string `json:"matchId,omitempty"`
}

type AckMessage struct {
	Status  string `json:"status"`
	MatchID string `json:"matchId,omitempty"`
}

// DirectivesMessage answers a tick. Directives are in execution order.
type DirectivesMessage struct {
	Tick       int               `json:"tick"`
	Mode       model.Mode        `json:"mode"`
	Directives []model.Directive `json:"directives"`
}
