package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/congde/emochat/internal/memory"
	"github.com/congde/emochat/internal/orchestrator"
	"github.com/congde/emochat/internal/protocol"
)

type fakeRunner struct {
	result  *orchestrator.Result
	err     error
	ownerID string
	session string
	message string
}

func (f *fakeRunner) Run(_ context.Context, ownerID, sessionID, message string) (*orchestrator.Result, error) {
	f.ownerID, f.session, f.message = ownerID, sessionID, message
	return f.result, f.err
}

type fakeMemories struct {
	records   []*memory.Record
	forgotten []string
	err       error
}

func (f *fakeMemories) RecentByOwner(context.Context, string, int) ([]*memory.Record, error) {
	return f.records, f.err
}

func (f *fakeMemories) Forget(_ context.Context, id string) error {
	f.forgotten = append(f.forgotten, id)
	return f.err
}

type fakeSessions struct {
	id      string
	err     error
	channel string
}

func (f *fakeSessions) FindOrCreateSession(_ context.Context, _, channel string) (string, error) {
	f.channel = channel
	return f.id, f.err
}

type fakeFollowUps struct {
	pending []*orchestrator.FollowUp
	err     error
}

func (f *fakeFollowUps) ListPending(context.Context, string) ([]*orchestrator.FollowUp, error) {
	return f.pending, f.err
}

func testHandler(runner *fakeRunner, memories *fakeMemories, sessions *fakeSessions, followups FollowUpLister) (*Handler, *protocol.TraceLog) {
	logger := zap.NewNop()
	trace := protocol.NewTraceLog(protocol.DefaultTraceCap, logger)
	if runner == nil {
		runner = &fakeRunner{result: &orchestrator.Result{Reply: "ok", FinalState: orchestrator.StateDone}}
	}
	if memories == nil {
		memories = &fakeMemories{}
	}
	if sessions == nil {
		sessions = &fakeSessions{id: "s1"}
	}
	h := NewHandler(runner, memories, sessions, followups, trace,
		orchestrator.NewExperienceLog(10), logger)
	return h, trace
}

func doRequest(t *testing.T, h *Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.Router().ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	h, _ := testHandler(nil, nil, nil, nil)
	w := doRequest(t, h, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}

func TestChatResolvesSession(t *testing.T) {
	runner := &fakeRunner{result: &orchestrator.Result{Reply: "你好", FinalState: orchestrator.StateDone}}
	sessions := &fakeSessions{id: "sess-42"}
	h, _ := testHandler(runner, nil, sessions, nil)

	w := doRequest(t, h, http.MethodPost, "/api/chat",
		chatRequest{OwnerID: "u1", Message: "hello"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if runner.session != "sess-42" {
		t.Errorf("runner session = %s", runner.session)
	}
	if sessions.channel != "web" {
		t.Errorf("default channel = %s", sessions.channel)
	}

	var resp struct {
		SessionID string               `json:"session_id"`
		Result    *orchestrator.Result `json:"result"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.SessionID != "sess-42" || resp.Result.Reply != "你好" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestChatUsesProvidedSession(t *testing.T) {
	runner := &fakeRunner{result: &orchestrator.Result{Reply: "ok"}}
	sessions := &fakeSessions{err: errors.New("must not be called")}
	h, _ := testHandler(runner, nil, sessions, nil)

	w := doRequest(t, h, http.MethodPost, "/api/chat",
		chatRequest{OwnerID: "u1", SessionID: "explicit", Message: "hi"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if runner.session != "explicit" {
		t.Errorf("session = %s", runner.session)
	}
}

func TestChatValidation(t *testing.T) {
	h, _ := testHandler(nil, nil, nil, nil)

	cases := []chatRequest{
		{OwnerID: "", Message: "hi"},
		{OwnerID: "u1", Message: ""},
	}
	for _, c := range cases {
		w := doRequest(t, h, http.MethodPost, "/api/chat", c)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status(%+v) = %d, want 400", c, w.Code)
		}
	}
}

func TestChatRunnerFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("boom")}
	h, _ := testHandler(runner, nil, nil, nil)

	w := doRequest(t, h, http.MethodPost, "/api/chat",
		chatRequest{OwnerID: "u1", Message: "hi"})
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", w.Code)
	}
}

func TestListMemories(t *testing.T) {
	memories := &fakeMemories{records: []*memory.Record{
		{ID: "m1", OwnerID: "u1", Content: "失眠", Type: memory.TypeSemantic},
	}}
	h, _ := testHandler(nil, memories, nil, nil)

	w := doRequest(t, h, http.MethodGet, "/api/memories?owner_id=u1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var recs []*memory.Record
	if err := json.Unmarshal(w.Body.Bytes(), &recs); err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].ID != "m1" {
		t.Errorf("recs = %+v", recs)
	}
}

func TestListMemoriesRequiresOwner(t *testing.T) {
	h, _ := testHandler(nil, nil, nil, nil)
	w := doRequest(t, h, http.MethodGet, "/api/memories", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestForgetMemory(t *testing.T) {
	memories := &fakeMemories{}
	h, _ := testHandler(nil, memories, nil, nil)

	w := doRequest(t, h, http.MethodDelete, "/api/memories/m1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if len(memories.forgotten) != 1 || memories.forgotten[0] != "m1" {
		t.Errorf("forgotten = %v", memories.forgotten)
	}
}

func TestListFollowUps(t *testing.T) {
	followups := &fakeFollowUps{pending: []*orchestrator.FollowUp{
		{ID: "f1", OwnerID: "u1", Kind: "check_in"},
	}}
	h, _ := testHandler(nil, nil, nil, followups)

	w := doRequest(t, h, http.MethodGet, "/api/followups?owner_id=u1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var fus []*orchestrator.FollowUp
	if err := json.Unmarshal(w.Body.Bytes(), &fus); err != nil {
		t.Fatal(err)
	}
	if len(fus) != 1 || fus[0].Kind != "check_in" {
		t.Errorf("fus = %+v", fus)
	}
}

func TestListFollowUpsWithoutStore(t *testing.T) {
	h, _ := testHandler(nil, nil, nil, nil)
	w := doRequest(t, h, http.MethodGet, "/api/followups?owner_id=u1", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with empty list", w.Code)
	}
}

func TestGetTrace(t *testing.T) {
	h, trace := testHandler(nil, nil, nil, nil)
	trace.Log(protocol.NewUserInput("hello").WithCorrelation("corr-1"))
	trace.Log(protocol.NewAgentResponse("hi").WithCorrelation("corr-1"))
	trace.Log(protocol.NewUserInput("other").WithCorrelation("corr-2"))

	w := doRequest(t, h, http.MethodGet, "/api/trace/corr-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var msgs []*protocol.Message
	if err := json.Unmarshal(w.Body.Bytes(), &msgs); err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Errorf("trace has %d messages", len(msgs))
	}
}

func TestExperienceSummary(t *testing.T) {
	h, _ := testHandler(nil, nil, nil, nil)
	w := doRequest(t, h, http.MethodGet, "/api/experience", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}
