package agent

import (
	"time"

	"github.com/farhad-a/openclaw-mission-control/internal/board"
)

type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// Agent is a worker attached to a board. OpenClawSessionID is the external
// chat session used for task notifications; empty means unreachable.
type Agent struct {
	ID                string    `yaml:"id" json:"id"`
	BoardID           string    `yaml:"board_id" json:"board_id"`
	Name              string    `yaml:"name" json:"name"`
	IsBoardLead       bool      `yaml:"is_board_lead" json:"is_board_lead"`
	OpenClawSessionID string    `yaml:"openclaw_session_id,omitempty" json:"openclaw_session_id,omitempty"`
	Status            Status    `yaml:"status" json:"status"`
	CreatedAt         time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt         time.Time `yaml:"updated_at" json:"updated_at"`
}

type Role int

const (
	RoleMember Role = iota
	RoleLead
)

// RoleOf resolves an agent's role on a board. The lead flag only counts on the
// agent's own board.
func RoleOf(a *Agent, b *board.Board) Role {
	if a == nil || b == nil {
		return RoleMember
	}
	if a.IsBoardLead && a.BoardID == b.ID {
		return RoleLead
	}
	return RoleMember
}
