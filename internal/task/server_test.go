package task_test

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

	"github.com/farhad-a/openclaw-mission-control/internal/activity"
	activityrepo "github.com/farhad-a/openclaw-mission-control/internal/activity/repositoryimpl"
	"github.com/farhad-a/openclaw-mission-control/internal/agent"
	agentrepo "github.com/farhad-a/openclaw-mission-control/internal/agent/repositoryimpl"
	"github.com/farhad-a/openclaw-mission-control/internal/auth"
	"github.com/farhad-a/openclaw-mission-control/internal/board"
	boardrepo "github.com/farhad-a/openclaw-mission-control/internal/board/repositoryimpl"
	"github.com/farhad-a/openclaw-mission-control/internal/eventbus"
	"github.com/farhad-a/openclaw-mission-control/internal/task"
	taskrepo "github.com/farhad-a/openclaw-mission-control/internal/task/repositoryimpl"
	"github.com/farhad-a/openclaw-mission-control/pkg/cerr"
	"github.com/farhad-a/openclaw-mission-control/pkg/storage"
)

type testEnv struct {
	t            *testing.T
	router       http.Handler
	bus          *eventbus.Bus
	boardRepo    board.Repository
	agentRepo    agent.Repository
	taskRepo     task.Repository
	activityRepo activity.Repository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	env := &testEnv{
		t:            t,
		bus:          eventbus.New(),
		boardRepo:    boardrepo.NewYAMLRepository(store),
		agentRepo:    agentrepo.NewYAMLRepository(store),
		taskRepo:     taskrepo.NewYAMLRepository(store),
		activityRepo: activityrepo.NewYAMLRepository(store),
	}

	srv := task.NewServer(env.taskRepo, env.boardRepo, env.agentRepo, env.activityRepo, env.bus)

	r := chi.NewRouter()
	r.Use(cerr.NewJSONResponseChiMiddleware())
	r.Use(env.actorMiddleware)
	srv.RegisterRoutes(r)
	env.router = r
	return env
}

// actorMiddleware mirrors the production identity resolution: requests with an
// X-Agent-ID header act as that agent, everything else as an operator.
func (e *testEnv) actorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if agentID := r.Header.Get("X-Agent-ID"); agentID != "" {
			a, err := e.agentRepo.Get(ctx, agentID)
			require.NoError(e.t, err)
			ctx = auth.WithActor(ctx, auth.AgentActor(a))
		} else {
			ctx = auth.WithActor(ctx, auth.Operator())
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (e *testEnv) createBoard(id string) *board.Board {
	e.t.Helper()
	b := &board.Board{ID: id, Name: id, OnlyLeadCanChangeStatus: true, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.NoError(e.t, e.boardRepo.Create(e.t.Context(), b))
	return b
}

func (e *testEnv) createAgent(id, boardID string, isLead bool) *agent.Agent {
	e.t.Helper()
	a := &agent.Agent{
		ID:          id,
		BoardID:     boardID,
		Name:        id,
		IsBoardLead: isLead,
		Status:      agent.StatusOnline,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	require.NoError(e.t, e.agentRepo.Create(e.t.Context(), a))
	return a
}

func (e *testEnv) createTask(boardID, title, assignee string, status task.Status) *task.Task {
	e.t.Helper()
	now := time.Now()
	tk := &task.Task{
		ID:              "task-" + title,
		BoardID:         boardID,
		Title:           title,
		Status:          status,
		AssignedAgentID: assignee,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if status == task.StatusInProgress {
		tk.InProgressAt = &now
	}
	require.NoError(e.t, e.taskRepo.Create(e.t.Context(), tk))
	return tk
}

// do performs a request as the given agent; an empty agentID means operator.
func (e *testEnv) do(method, path, agentID, body string) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if agentID != "" {
		req.Header.Set("X-Agent-ID", agentID)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestCreateTask(t *testing.T) {
	e := newTestEnv(t)
	e.createBoard("board-1")

	rec := e.do(http.MethodPost, "/tasks", "", `{"board_id":"board-1","title":"Write weekly report"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, "inbox", body["status"])
	assert.Equal(t, "board-1", body["board_id"])

	events, err := e.activityRepo.ListByTask(t.Context(), body["id"].(string))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, activity.EventTaskCreated, events[0].EventType)
}

func TestCreateTaskUnknownBoard(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(http.MethodPost, "/tasks", "", `{"board_id":"nope","title":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
}

func TestUpdateMemberCannotEditTitle(t *testing.T) {
	e := newTestEnv(t)
	e.createBoard("board-1")
	e.createAgent("worker-1", "board-1", false)
	tk := e.createTask("board-1", "report", "worker-1", task.StatusInbox)

	rec := e.do(http.MethodPatch, "/tasks/"+tk.ID, "worker-1", `{"title":"sneaky rename"}`)
	require.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, "task_update_field_forbidden", body["code"])
	assert.Equal(t, `Agents cannot update field "title".`, body["message"])

	stored, err := e.taskRepo.Get(t.Context(), tk.ID)
	require.NoError(t, err)
	assert.Equal(t, "report", stored.Title)
}

func TestUpdateMemberCannotMoveOthersTask(t *testing.T) {
	e := newTestEnv(t)
	e.createBoard("board-1")
	e.createAgent("worker-1", "board-1", false)
	e.createAgent("worker-2", "board-1", false)
	tk := e.createTask("board-1", "report", "worker-1", task.StatusInbox)

	rec := e.do(http.MethodPatch, "/tasks/"+tk.ID, "worker-2", `{"status":"in_progress"}`)
	require.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, "task_assignee_mismatch", body["code"])
	assert.Equal(t, "Agents can only change status on tasks assigned to them.", body["message"])
}

func TestUpdateForeignAgentCannotClaimTask(t *testing.T) {
	e := newTestEnv(t)
	e.createBoard("board-1")
	e.createBoard("board-2")
	e.createAgent("outsider", "board-2", false)
	tk := e.createTask("board-1", "report", "", task.StatusInbox)

	rec := e.do(http.MethodPatch, "/tasks/"+tk.ID, "outsider", `{"status":"in_progress"}`)
	require.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	assert.Equal(t, "task_board_mismatch", decodeBody(t, rec)["code"])

	stored, err := e.taskRepo.Get(t.Context(), tk.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusInbox, stored.Status)
	assert.Empty(t, stored.AssignedAgentID)
}

func TestUpdateMemberClaimsUnassignedTask(t *testing.T) {
	e := newTestEnv(t)
	e.createBoard("board-1")
	e.createAgent("worker-1", "board-1", false)
	tk := e.createTask("board-1", "report", "", task.StatusInbox)

	rec := e.do(http.MethodPatch, "/tasks/"+tk.ID, "worker-1", `{"status":"in_progress"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, "in_progress", body["status"])
	assert.Equal(t, "worker-1", body["assigned_agent_id"])
	assert.NotEmpty(t, body["in_progress_at"])
}

func TestUpdateReviewWithoutCommentRejected(t *testing.T) {
	e := newTestEnv(t)
	e.createBoard("board-1")
	e.createAgent("worker-1", "board-1", false)
	e.createAgent("lead-1", "board-1", true)
	tk := e.createTask("board-1", "report", "worker-1", task.StatusInProgress)

	rec := e.do(http.MethodPatch, "/tasks/"+tk.ID, "worker-1", `{"status":"review"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.Equal(t, "Comment is required.", decodeBody(t, rec)["message"])

	stored, err := e.taskRepo.Get(t.Context(), tk.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusInProgress, stored.Status)
}

func TestUpdateReviewHandsOffToLead(t *testing.T) {
	e := newTestEnv(t)
	e.createBoard("board-1")
	e.createAgent("worker-1", "board-1", false)
	lead := e.createAgent("lead-1", "board-1", true)
	tk := e.createTask("board-1", "report", "worker-1", task.StatusInProgress)

	_, events := e.bus.Subscribe(16)

	rec := e.do(http.MethodPatch, "/tasks/"+tk.ID, "worker-1", `{"status":"review","comment":"Draft attached."}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, "review", body["status"])
	assert.Equal(t, lead.ID, body["assigned_agent_id"])
	assert.Equal(t, "worker-1", body["previous_assignee_id"])

	notification := drainForType(t, events, eventbus.TypeNotificationRequested)
	assert.Equal(t, lead.ID, notification.Metadata["agent_id"])
	assert.Contains(t, notification.Payload, "TASK READY FOR LEAD REVIEW")
	assert.Contains(t, notification.Payload, "review the deliverables")

	latest, err := e.activityRepo.LatestComment(t.Context(), tk.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "Draft attached.", latest.Message)
}

func TestUpdateReviewRejectionRestoresWorker(t *testing.T) {
	e := newTestEnv(t)
	e.createBoard("board-1")
	e.createAgent("worker-1", "board-1", false)
	e.createAgent("lead-1", "board-1", true)
	tk := e.createTask("board-1", "report", "worker-1", task.StatusInProgress)

	rec := e.do(http.MethodPatch, "/tasks/"+tk.ID, "worker-1", `{"status":"review","comment":"Draft attached."}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	_, events := e.bus.Subscribe(16)

	rec = e.do(http.MethodPatch, "/tasks/"+tk.ID, "lead-1", `{"status":"inbox","comment":"Numbers are off, redo section 2."}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, "inbox", body["status"])
	assert.Equal(t, "worker-1", body["assigned_agent_id"])

	notification := drainForType(t, events, eventbus.TypeNotificationRequested)
	assert.Equal(t, "worker-1", notification.Metadata["agent_id"])
	assert.Contains(t, notification.Payload, "CHANGES REQUESTED")
	assert.Contains(t, notification.Payload, "Numbers are off, redo section 2.")
}

func TestUpdateCommentOnlyDoesNotReassign(t *testing.T) {
	e := newTestEnv(t)
	e.createBoard("board-1")
	e.createAgent("worker-1", "board-1", false)
	e.createAgent("worker-2", "board-1", false)
	tk := e.createTask("board-1", "report", "worker-1", task.StatusInProgress)

	rec := e.do(http.MethodPatch, "/tasks/"+tk.ID, "worker-2", `{"comment":"How is this going?"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, "in_progress", body["status"])
	assert.Equal(t, "worker-1", body["assigned_agent_id"])

	latest, err := e.activityRepo.LatestComment(t.Context(), tk.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "How is this going?", latest.Message)
	assert.Equal(t, "worker-2", latest.AgentID)
}

func TestUpdateOperatorEditsEverything(t *testing.T) {
	e := newTestEnv(t)
	e.createBoard("board-1")
	e.createAgent("worker-1", "board-1", false)
	tk := e.createTask("board-1", "report", "", task.StatusInbox)

	rec := e.do(http.MethodPatch, "/tasks/"+tk.ID, "", `{"title":"Quarterly report","description":"Q3 numbers","assigned_agent_id":"worker-1","status":"in_progress"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, "Quarterly report", body["title"])
	assert.Equal(t, "Q3 numbers", body["description"])
	assert.Equal(t, "worker-1", body["assigned_agent_id"])
	assert.Equal(t, "in_progress", body["status"])
}

func TestUpdateDisallowedTransition(t *testing.T) {
	e := newTestEnv(t)
	e.createBoard("board-1")
	tk := e.createTask("board-1", "report", "", task.StatusInbox)

	rec := e.do(http.MethodPatch, "/tasks/"+tk.ID, "", `{"status":"review"}`)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code, rec.Body.String())
}

func TestUpdateInvalidStatus(t *testing.T) {
	e := newTestEnv(t)
	e.createBoard("board-1")
	tk := e.createTask("board-1", "report", "", task.StatusInbox)

	rec := e.do(http.MethodPatch, "/tasks/"+tk.ID, "", `{"status":"archived"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestListActivityOrdersEvents(t *testing.T) {
	e := newTestEnv(t)
	e.createBoard("board-1")
	e.createAgent("worker-1", "board-1", false)
	tk := e.createTask("board-1", "report", "", task.StatusInbox)

	require.Equal(t, http.StatusOK, e.do(http.MethodPatch, "/tasks/"+tk.ID, "worker-1", `{"status":"in_progress"}`).Code)
	require.Equal(t, http.StatusOK, e.do(http.MethodPatch, "/tasks/"+tk.ID, "worker-1", `{"comment":"halfway"}`).Code)

	rec := e.do(http.MethodGet, "/tasks/"+tk.ID+"/activity", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out struct {
		Events []*activity.Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Events, 2)
	assert.Equal(t, activity.EventTaskStatusChanged, out.Events[0].EventType)
	assert.Equal(t, activity.EventTaskComment, out.Events[1].EventType)
}

// drainForType pops already-published events off the subscription channel
// until one of the wanted type appears. Publishing is synchronous, so by the
// time the HTTP response is back the events are buffered.
func drainForType(t *testing.T, ch <-chan *eventbus.Event, want eventbus.Type) *eventbus.Event {
	t.Helper()
	for {
		select {
		case ev := <-ch:
			if ev.Type == want {
				return ev
			}
		default:
			t.Fatalf("no %s event published", want)
			return nil
		}
	}
}
