package board

import "context"

type Repository interface {
	Create(ctx context.Context, b *Board) error
	Get(ctx context.Context, id string) (*Board, error)
	List(ctx context.Context) ([]*Board, error)
	Update(ctx context.Context, b *Board) error
}
