package board

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
	r.Get("/boards", s.List)
	r.Post("/boards", s.Create)
	r.Get("/boards/{boardID}", s.Get)
}

type createRequest struct {
	Name                  string `json:"name"`
	Slug                  string `json:"slug"`
	GatewayURL            string `json:"gateway_url"`
	GatewayToken          string `json:"gateway_token"`
	GatewayMainSessionKey string `json:"gateway_main_session_key"`
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
	if req.Name == "" {
		cerr.SetNewJSONError(ctx, cerr.Unprocessable, "name is required", nil)
		return
	}

	now := time.Now()
	b := &Board{
		ID:   ulid.Make().String(),
		Name: req.Name,
		Slug: req.Slug,
		// Restricted boards are the default; the claim path for unassigned
		// tasks stays open either way.
		OnlyLeadCanChangeStatus: true,
		GatewayURL:              req.GatewayURL,
		GatewayToken:            req.GatewayToken,
		GatewayMainSessionKey:   req.GatewayMainSessionKey,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseStatus(ctx, http.StatusCreated, b)
}

func (s *Server) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	b, err := s.repo.Get(ctx, chi.URLParam(r, "boardID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, b)
}

func (s *Server) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	boards, err := s.repo.List(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"boards": boards})
}
