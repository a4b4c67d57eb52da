package agent

import "context"

type Repository interface {
	Create(ctx context.Context, a *Agent) error
	Get(ctx context.Context, id string) (*Agent, error)
	ListByBoard(ctx context.Context, boardID string) ([]*Agent, error)
	// FindLead returns the board's lead agent, or nil when the board has none.
	FindLead(ctx context.Context, boardID string) (*Agent, error)
	Update(ctx context.Context, a *Agent) error
}
