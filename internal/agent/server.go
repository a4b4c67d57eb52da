package agent

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/farhad-a/openclaw-mission-control/internal/auth"
	"github.com/farhad-a/openclaw-mission-control/pkg/cerr"
)

type Server struct {
	repo Repository
}

func NewServer(repo Repository) *Server {
	return &Server{repo: repo}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/agents", s.List)
	r.Post("/agents", s.Create)
	r.Get("/agents/{agentID}", s.Get)
}

type createRequest struct {
	BoardID           string `json:"board_id"`
	Name              string `json:"name"`
	IsBoardLead       bool   `json:"is_board_lead"`
	OpenClawSessionID string `json:"openclaw_session_id"`
}

func (s *Server) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := auth.ActorFromContext(ctx)
	if !ok || !actor.IsOperator() {
		cerr.SetNewJSONError(ctx, cerr.PermissionDenied, "operator access required", nil)
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.BoardID == "" {
		cerr.SetNewJSONError(ctx, cerr.Unprocessable, "board_id is required", nil)
		return
	}
	if req.Name == "" {
		cerr.SetNewJSONError(ctx, cerr.Unprocessable, "name is required", nil)
		return
	}

	now := time.Now()
	a := &Agent{
		ID:                ulid.Make().String(),
		BoardID:           req.BoardID,
		Name:              req.Name,
		IsBoardLead:       req.IsBoardLead,
		OpenClawSessionID: req.OpenClawSessionID,
		Status:            StatusOffline,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseStatus(ctx, http.StatusCreated, a)
}

func (s *Server) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, err := s.repo.Get(ctx, chi.URLParam(r, "agentID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, a)
}

func (s *Server) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	agents, err := s.repo.ListByBoard(ctx, r.URL.Query().Get("board_id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"agents": agents})
}
