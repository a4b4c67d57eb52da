package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farhad-a/openclaw-mission-control/internal/config"
)

func testClient() *Client {
	return NewClient(&config.GatewayEnv{
		RequestTimeout: 2 * time.Second,
		SendMaxElapsed: 3 * time.Second,
	})
}

func TestClientListSessions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/sessions", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"sessions": []Session{{Key: "main", Label: "Main Agent"}, {Key: "agent-1"}},
		})
	}))
	defer srv.Close()

	sessions, err := testClient().ListSessions(t.Context(), &Config{URL: srv.URL, Token: "secret-token"})
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "main", sessions[0].Key)
	assert.Equal(t, "Main Agent", sessions[0].Label)
}

func TestClientEnsureSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/sessions", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "main", body["key"])
		assert.Equal(t, "Main Agent", body["label"])

		json.NewEncoder(w).Encode(map[string]any{
			"session": Session{Key: "main", Label: "Main Agent"},
		})
	}))
	defer srv.Close()

	session, err := testClient().EnsureSession(t.Context(), &Config{URL: srv.URL}, "main", "Main Agent")
	require.NoError(t, err)
	assert.Equal(t, "main", session.Key)
}

func TestClientSendMessage(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/api/sessions/agent-1/messages", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "TASK READY FOR LEAD REVIEW", body["content"])
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := testClient().SendMessage(t.Context(), &Config{URL: srv.URL}, "agent-1", "TASK READY FOR LEAD REVIEW")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientSendMessageRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := testClient().SendMessage(t.Context(), &Config{URL: srv.URL}, "agent-1", "hello")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, calls.Load(), int32(2))
}

func TestClientSendMessageDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "no such session", http.StatusNotFound)
	}))
	defer srv.Close()

	err := testClient().SendMessage(t.Context(), &Config{URL: srv.URL}, "gone", "hello")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Contains(t, err.Error(), "status 404")
}
