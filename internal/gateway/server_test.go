package gateway_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farhad-a/openclaw-mission-control/internal/auth"
	"github.com/farhad-a/openclaw-mission-control/internal/board"
	boardrepo "github.com/farhad-a/openclaw-mission-control/internal/board/repositoryimpl"
	"github.com/farhad-a/openclaw-mission-control/internal/config"
	"github.com/farhad-a/openclaw-mission-control/internal/gateway"
	"github.com/farhad-a/openclaw-mission-control/pkg/cerr"
	"github.com/farhad-a/openclaw-mission-control/pkg/storage"
)

func newGatewayRouter(t *testing.T, boardRepo board.Repository, asOperator bool) http.Handler {
	t.Helper()
	client := gateway.NewClient(&config.GatewayEnv{RequestTimeout: 2 * time.Second, SendMaxElapsed: 2 * time.Second})
	srv := gateway.NewServer(boardRepo, gateway.NewDispatchService(), client)

	r := chi.NewRouter()
	r.Use(cerr.NewJSONResponseChiMiddleware())
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			actor := auth.Operator()
			if !asOperator {
				actor = auth.AgentActor(nil)
			}
			next.ServeHTTP(w, req.WithContext(auth.WithActor(req.Context(), actor)))
		})
	})
	srv.RegisterRoutes(r)
	return r
}

func newBoardRepo(t *testing.T) board.Repository {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return boardrepo.NewYAMLRepository(store)
}

func TestGatewayStatusReportsDisconnected(t *testing.T) {
	repo := newBoardRepo(t)
	require.NoError(t, repo.Create(t.Context(), &board.Board{
		ID:                    "board-1",
		Name:                  "Ops",
		GatewayURL:            "http://127.0.0.1:1", // nothing listens here
		GatewayMainSessionKey: "main",
	}))
	router := newGatewayRouter(t, repo, true)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/gateway/status?board_id=board-1", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["connected"])
	assert.NotEmpty(t, body["error"])
}

func TestGatewayStatusRequiresOperator(t *testing.T) {
	router := newGatewayRouter(t, newBoardRepo(t), false)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/gateway/status?board_id=board-1", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGatewayStatusRequiresConfiguredBoard(t *testing.T) {
	repo := newBoardRepo(t)
	require.NoError(t, repo.Create(t.Context(), &board.Board{ID: "board-1", Name: "Ops"}))
	router := newGatewayRouter(t, repo, true)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/gateway/status?board_id=board-1", nil))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Board gateway_url is required", body["message"])
}

func TestGatewaySendMessageRequiresContent(t *testing.T) {
	router := newGatewayRouter(t, newBoardRepo(t), true)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/gateway/sessions/main/message?board_id=board-1", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGatewaySendMessageForwardsToGateway(t *testing.T) {
	var gotContent string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/sessions/agent-1/messages" {
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			gotContent = body["content"]
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	repo := newBoardRepo(t)
	require.NoError(t, repo.Create(t.Context(), &board.Board{
		ID:                    "board-1",
		Name:                  "Ops",
		GatewayURL:            upstream.URL,
		GatewayMainSessionKey: "main",
	}))
	router := newGatewayRouter(t, repo, true)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/gateway/sessions/agent-1/message?board_id=board-1", strings.NewReader(`{"content":"hello there"}`)))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "hello there", gotContent)
}
