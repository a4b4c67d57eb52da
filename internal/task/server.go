package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/farhad-a/openclaw-mission-control/internal/activity"
	"github.com/farhad-a/openclaw-mission-control/internal/agent"
	"github.com/farhad-a/openclaw-mission-control/internal/auth"
	"github.com/farhad-a/openclaw-mission-control/internal/board"
	"github.com/farhad-a/openclaw-mission-control/internal/eventbus"
	"github.com/farhad-a/openclaw-mission-control/pkg/cerr"
)

// Server owns the task HTTP surface. Update is the single entry point into
// the permission evaluator and transition engine.
type Server struct {
	repo         Repository
	boardRepo    board.Repository
	agentRepo    agent.Repository
	activityRepo activity.Repository
	eventBus     *eventbus.Bus
}

func NewServer(repo Repository, boardRepo board.Repository, agentRepo agent.Repository, activityRepo activity.Repository, eventBus *eventbus.Bus) *Server {
	return &Server{
		repo:         repo,
		boardRepo:    boardRepo,
		agentRepo:    agentRepo,
		activityRepo: activityRepo,
		eventBus:     eventBus,
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/tasks", s.List)
	r.Post("/tasks", s.Create)
	r.Get("/tasks/{taskID}", s.Get)
	r.Patch("/tasks/{taskID}", s.Update)
	r.Get("/tasks/{taskID}/activity", s.ListActivity)
}

type createRequest struct {
	BoardID     string `json:"board_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (s *Server) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.BoardID == "" {
		cerr.SetNewJSONError(ctx, cerr.Unprocessable, "board_id is required", nil)
		return
	}
	if req.Title == "" {
		cerr.SetNewJSONError(ctx, cerr.Unprocessable, "title is required", nil)
		return
	}
	if _, err := s.boardRepo.Get(ctx, req.BoardID); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	now := time.Now()
	t := &Task{
		ID:          ulid.Make().String(),
		BoardID:     req.BoardID,
		Title:       req.Title,
		Description: req.Description,
		Status:      StatusInbox,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	actor, _ := auth.ActorFromContext(ctx)
	s.appendEvent(ctx, t.ID, actor.AgentID(), activity.EventTaskCreated, fmt.Sprintf("Task %q created.", t.Title))
	s.eventBus.PublishNew(eventbus.TypeTaskCreated, t.ID, "", map[string]string{"board_id": t.BoardID})

	cerr.SetJSONResponseStatus(ctx, http.StatusCreated, t)
}

func (s *Server) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	t, err := s.repo.Get(ctx, chi.URLParam(r, "taskID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

func (s *Server) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tasks, err := s.repo.List(ctx, r.URL.Query().Get("board_id"), Status(r.URL.Query().Get("status")))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"tasks": tasks})
}

func (s *Server) ListActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	events, err := s.activityRepo.ListByTask(ctx, chi.URLParam(r, "taskID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"events": events})
}

// Update authorizes the requested change set, runs the transition engine,
// commits the new task state, and hands any pending notification to the
// dispatcher through the event bus. Notification delivery is strictly
// post-commit and best-effort.
func (s *Server) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		cerr.SetNewJSONError(ctx, cerr.Unauthenticated, "unauthenticated", nil)
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}

	t, err := s.repo.Get(ctx, chi.URLParam(r, "taskID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	b, err := s.boardRepo.Get(ctx, t.BoardID)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	if err := Authorize(actor, b, t, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	latestComment, err := s.activityRepo.LatestComment(ctx, t.ID)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	lead, err := s.agentRepo.FindLead(ctx, b.ID)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	prevStatus := t.Status
	notification, err := ApplyTransition(t, &req, actor, lead, latestComment, time.Now())
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	t.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, t); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	// State is committed; everything below is bookkeeping and best-effort
	// fan-out that must not fail the request.
	if req.HasComment() {
		s.appendEvent(ctx, t.ID, actor.AgentID(), activity.EventTaskComment, req.Comment.Value)
		s.eventBus.PublishNew(eventbus.TypeTaskComment, t.ID, req.Comment.Value, map[string]string{
			"board_id": t.BoardID,
			"agent_id": actor.AgentID(),
		})
	}
	if t.Status != prevStatus {
		s.appendEvent(ctx, t.ID, actor.AgentID(), activity.EventTaskStatusChanged,
			fmt.Sprintf("Status changed from %s to %s.", prevStatus, t.Status))
		s.eventBus.PublishNew(eventbus.TypeTaskStatusChanged, t.ID, "", map[string]string{
			"board_id":   t.BoardID,
			"old_status": string(prevStatus),
			"new_status": string(t.Status),
		})
	}
	s.eventBus.PublishNew(eventbus.TypeTaskUpdated, t.ID, "", map[string]string{"board_id": t.BoardID})

	if notification != nil {
		s.eventBus.PublishNew(eventbus.TypeNotificationRequested, t.ID, notification.Message, map[string]string{
			"board_id": t.BoardID,
			"agent_id": notification.AgentID,
			"title":    t.Title,
		})
	}

	cerr.SetJSONResponse(ctx, t)
}

func (s *Server) appendEvent(ctx context.Context, taskID, agentID, eventType, message string) {
	err := s.activityRepo.Append(ctx, &activity.Event{
		ID:        ulid.Make().String(),
		EventType: eventType,
		TaskID:    taskID,
		AgentID:   agentID,
		Message:   message,
		CreatedAt: time.Now(),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to append activity event", "task_id", taskID, "event_type", eventType, "error", err)
	}
}
