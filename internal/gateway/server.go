package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/farhad-a/openclaw-mission-control/internal/auth"
	"github.com/farhad-a/openclaw-mission-control/internal/board"
	"github.com/farhad-a/openclaw-mission-control/pkg/cerr"
)

const mainSessionLabel = "Main Agent"

// Server exposes the operator-facing gateway admin surface: connection
// status, session listing, and direct message injection into a session.
type Server struct {
	boardRepo board.Repository
	dispatch  *DispatchService
	client    *Client
}

func NewServer(boardRepo board.Repository, dispatch *DispatchService, client *Client) *Server {
	return &Server{
		boardRepo: boardRepo,
		dispatch:  dispatch,
		client:    client,
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/gateway/status", s.Status)
	r.Get("/gateway/sessions", s.ListSessions)
	r.Post("/gateway/sessions/{sessionKey}/message", s.SendMessage)
}

func (s *Server) requireBoardConfig(ctx context.Context, boardID string) (*board.Board, *Config, error) {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok || !actor.IsOperator() {
		return nil, nil, cerr.NewError(cerr.PermissionDenied, "operator access required", nil)
	}
	if boardID == "" {
		return nil, nil, cerr.NewError(cerr.Unprocessable, "board_id is required", nil)
	}
	b, err := s.boardRepo.Get(ctx, boardID)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := s.dispatch.RequireConfigForBoard(b)
	if err != nil {
		return nil, nil, err
	}
	return b, cfg, nil
}

func (s *Server) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	b, cfg, err := s.requireBoardConfig(ctx, r.URL.Query().Get("board_id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	sessions, err := s.client.ListSessions(ctx, cfg)
	if err != nil {
		cerr.SetJSONResponse(ctx, map[string]any{
			"connected":   false,
			"gateway_url": b.GatewayURL,
			"error":       err.Error(),
		})
		return
	}

	resp := map[string]any{
		"connected":        true,
		"gateway_url":      b.GatewayURL,
		"sessions_count":   len(sessions),
		"sessions":         sessions,
		"main_session_key": b.GatewayMainSessionKey,
	}
	main, err := s.client.EnsureSession(ctx, cfg, b.GatewayMainSessionKey, mainSessionLabel)
	if err != nil {
		resp["main_session_error"] = err.Error()
	} else {
		resp["main_session"] = main
	}
	cerr.SetJSONResponse(ctx, resp)
}

func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	b, cfg, err := s.requireBoardConfig(ctx, r.URL.Query().Get("board_id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	sessions, err := s.client.ListSessions(ctx, cfg)
	if err != nil {
		cerr.SetJSONError(ctx, cerr.NewError(cerr.Unavailable, err.Error(), err))
		return
	}

	resp := map[string]any{
		"sessions":         sessions,
		"main_session_key": b.GatewayMainSessionKey,
	}
	if main, err := s.client.EnsureSession(ctx, cfg, b.GatewayMainSessionKey, mainSessionLabel); err == nil {
		resp["main_session"] = main
	}
	cerr.SetJSONResponse(ctx, resp)
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (s *Server) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.Content == "" {
		cerr.SetNewJSONError(ctx, cerr.Unprocessable, "content is required", nil)
		return
	}

	b, cfg, err := s.requireBoardConfig(ctx, r.URL.Query().Get("board_id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	sessionKey := chi.URLParam(r, "sessionKey")
	if sessionKey == b.GatewayMainSessionKey {
		if _, err := s.client.EnsureSession(ctx, cfg, sessionKey, mainSessionLabel); err != nil {
			cerr.SetJSONError(ctx, cerr.NewError(cerr.Unavailable, err.Error(), err))
			return
		}
	}
	if err := s.client.SendMessage(ctx, cfg, sessionKey, req.Content); err != nil {
		cerr.SetJSONError(ctx, cerr.NewError(cerr.Unavailable, err.Error(), err))
		return
	}
	cerr.SetJSONResponse(ctx, map[string]bool{"ok": true})
}
