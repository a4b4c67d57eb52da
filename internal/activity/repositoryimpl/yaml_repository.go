package repositoryimpl

import (
	"context"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/farhad-a/openclaw-mission-control/internal/activity"
	"github.com/farhad-a/openclaw-mission-control/pkg/cerr"
	"github.com/farhad-a/openclaw-mission-control/pkg/storage"
)

const activityPrefix = "activity"

// YAMLRepository stores one file per event under activity/<task_id>/. Event
// IDs are ULIDs, so lexical order is creation order.
type YAMLRepository struct {
	storage storage.Storage
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func taskPrefix(taskID string) string {
	return fmt.Sprintf("%s/%s", activityPrefix, taskID)
}

func path(taskID, eventID string) string {
	return fmt.Sprintf("%s/%s.yaml", taskPrefix(taskID), eventID)
}

func (r *YAMLRepository) Append(ctx context.Context, e *activity.Event) error {
	data, err := yaml.Marshal(e)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal activity event: %w", err))
	}
	if err := r.storage.Write(ctx, path(e.TaskID, e.ID), data); err != nil {
		return cerr.WrapStorageWriteError("activity event", err)
	}
	return nil
}

func (r *YAMLRepository) ListByTask(ctx context.Context, taskID string) ([]*activity.Event, error) {
	paths, err := r.storage.List(ctx, taskPrefix(taskID))
	if err != nil {
		return nil, cerr.WrapStorageReadError("activity events", err)
	}
	sort.Strings(paths)

	var events []*activity.Event
	for _, p := range paths {
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		var e activity.Event
		if err := yaml.Unmarshal(data, &e); err != nil {
			continue
		}
		events = append(events, &e)
	}
	return events, nil
}

func (r *YAMLRepository) LatestComment(ctx context.Context, taskID string) (*activity.Event, error) {
	events, err := r.ListByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].EventType == activity.EventTaskComment {
			return events[i], nil
		}
	}
	return nil, nil
}
