package activity

import "context"

type Repository interface {
	Append(ctx context.Context, e *Event) error
	ListByTask(ctx context.Context, taskID string) ([]*Event, error)
	// LatestComment returns the task's most recent comment event, or nil when
	// the task has never been commented on.
	LatestComment(ctx context.Context, taskID string) (*Event, error)
}
