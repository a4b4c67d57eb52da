package activity

import "time"

const (
	EventTaskCreated       = "task.created"
	EventTaskComment       = "task.comment"
	EventTaskStatusChanged = "task.status_changed"
	EventTaskAssigned      = "task.assigned"
)

// Event is one append-only activity record attached to a task. AgentID is
// empty for operator-authored events.
type Event struct {
	ID        string    `yaml:"id" json:"id"`
	EventType string    `yaml:"event_type" json:"event_type"`
	TaskID    string    `yaml:"task_id" json:"task_id"`
	AgentID   string    `yaml:"agent_id,omitempty" json:"agent_id,omitempty"`
	Message   string    `yaml:"message" json:"message"`
	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
}
