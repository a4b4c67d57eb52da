package repositoryimpl

import (
	"context"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/farhad-a/openclaw-mission-control/internal/board"
	"github.com/farhad-a/openclaw-mission-control/pkg/cerr"
	"github.com/farhad-a/openclaw-mission-control/pkg/storage"
)

const boardsPrefix = "boards"

type YAMLRepository struct {
	storage storage.Storage
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func path(id string) string {
	return fmt.Sprintf("%s/%s.yaml", boardsPrefix, id)
}

func (r *YAMLRepository) Create(ctx context.Context, b *board.Board) error {
	exists, err := r.storage.Exists(ctx, path(b.ID))
	if err != nil {
		return cerr.WrapStorageWriteError("board", err)
	}
	if exists {
		return cerr.NewError(cerr.AlreadyExists, "board already exists", nil)
	}
	data, err := yaml.Marshal(b)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal board: %w", err))
	}
	if err := r.storage.Write(ctx, path(b.ID), data); err != nil {
		return cerr.WrapStorageWriteError("board", err)
	}
	return nil
}

func (r *YAMLRepository) Get(ctx context.Context, id string) (*board.Board, error) {
	data, err := r.storage.Read(ctx, path(id))
	if err != nil {
		return nil, cerr.WrapStorageReadError("board", err)
	}
	var b board.Board
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal board: %w", err))
	}
	return &b, nil
}

func (r *YAMLRepository) List(ctx context.Context) ([]*board.Board, error) {
	paths, err := r.storage.List(ctx, boardsPrefix)
	if err != nil {
		return nil, cerr.WrapStorageReadError("boards", err)
	}
	sort.Strings(paths)

	var boards []*board.Board
	for _, p := range paths {
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		var b board.Board
		if err := yaml.Unmarshal(data, &b); err != nil {
			continue
		}
		boards = append(boards, &b)
	}
	return boards, nil
}

func (r *YAMLRepository) Update(ctx context.Context, b *board.Board) error {
	exists, err := r.storage.Exists(ctx, path(b.ID))
	if err != nil {
		return cerr.WrapStorageWriteError("board", err)
	}
	if !exists {
		return cerr.NewError(cerr.NotFound, "board not found", nil)
	}
	data, err := yaml.Marshal(b)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal board: %w", err))
	}
	if err := r.storage.Write(ctx, path(b.ID), data); err != nil {
		return cerr.WrapStorageWriteError("board", err)
	}
	return nil
}
