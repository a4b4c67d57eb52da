package task

import "time"

type Status string

const (
	StatusInbox      Status = "inbox"
	StatusInProgress Status = "in_progress"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
)

func (s Status) Valid() bool {
	switch s {
	case StatusInbox, StatusInProgress, StatusReview, StatusDone:
		return true
	}
	return false
}

// Task is a work item on a board.
//
// Invariant: InProgressAt is non-nil iff Status == in_progress. Leaving
// in_progress moves the timestamp into PreviousInProgressAt and snapshots the
// assignee into PreviousAssigneeID so a later review rejection can restore the
// original worker.
type Task struct {
	ID                   string     `yaml:"id" json:"id"`
	BoardID              string     `yaml:"board_id" json:"board_id"`
	Title                string     `yaml:"title" json:"title"`
	Description          string     `yaml:"description" json:"description"`
	Status               Status     `yaml:"status" json:"status"`
	AssignedAgentID      string     `yaml:"assigned_agent_id,omitempty" json:"assigned_agent_id,omitempty"`
	PreviousAssigneeID   string     `yaml:"previous_assignee_id,omitempty" json:"previous_assignee_id,omitempty"`
	InProgressAt         *time.Time `yaml:"in_progress_at,omitempty" json:"in_progress_at,omitempty"`
	PreviousInProgressAt *time.Time `yaml:"previous_in_progress_at,omitempty" json:"previous_in_progress_at,omitempty"`
	CreatedAt            time.Time  `yaml:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `yaml:"updated_at" json:"updated_at"`
}
