package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/C021025/DSASimulator-OJ/internal/domain"
	"github.com/C021025/DSASimulator-OJ/internal/pool"
	"github.com/C021025/DSASimulator-OJ/internal/repository/mock"
	"github.com/C021025/DSASimulator-OJ/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stateView is the subset of the snapshot the tests look at.
type stateView struct {
	QuestionID int64 `json:"questionId"`
	Query      string
	Nav        struct {
		Tab            string `json:"tab"`
		TargetSubmitID int64  `json:"targetSubmitId"`
		PageNum        int    `json:"pageNum"`
	} `json:"nav"`
	View struct {
		ConsoleOpen bool `json:"consoleOpen"`
	} `json:"view"`
	Buffer struct {
		Code     string `json:"code"`
		Language string `json:"language"`
	} `json:"buffer"`
	CanRun bool `json:"canRun"`
}

type testServer struct {
	router    *gin.Engine
	sessions  *usecase.SessionRegistry
	judge     *mock.JudgeService
	query     *mock.SubmissionQuery
	questions *mock.QuestionService
	actions   *pool.ActionPool
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	ts := &testServer{
		judge:     &mock.JudgeService{},
		query:     mock.NewSubmissionQuery(),
		questions: &mock.QuestionService{},
	}
	ts.sessions = usecase.NewSessionRegistry(ts.judge, ts.query, ts.questions, usecase.Options{
		PollInterval:    5 * time.Millisecond,
		PollMaxAttempts: 3,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	ts.actions = pool.NewActionPool(2, 8, logger)
	ts.actions.Start(ctx)

	ts.router = NewRouter(&RouterDeps{
		Sessions: ts.sessions,
		Actions:  ts.actions,
		Logger:   logger,
		HealthChecks: map[string]HealthCheck{
			"judge": func(ctx context.Context) error { return nil },
		},
	})

	t.Cleanup(func() {
		ts.actions.Stop()
		cancel()
		ts.sessions.CloseAll()
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		buf = bytes.NewBuffer(raw)
	} else {
		buf = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) createSession(t *testing.T, query string, user *domain.User) string {
	t.Helper()
	body := map[string]any{"questionId": 1001, "query": query}
	if user != nil {
		body["user"] = user
	}
	w := ts.do(t, http.MethodPost, "/api/v1/sessions", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		SessionID string    `json:"sessionId"`
		State     stateView `json:"state"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.State.QuestionID != 1001 {
		t.Errorf("expected question 1001, got %d", resp.State.QuestionID)
	}
	return resp.SessionID
}

func decodeState(t *testing.T, w *httptest.ResponseRecorder) stateView {
	t.Helper()
	var s stateView
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
		t.Fatalf("failed to unmarshal state: %v", err)
	}
	return s
}

func (ts *testServer) workbench(t *testing.T, id string) *usecase.Workbench {
	t.Helper()
	s, err := ts.sessions.Get(uuid.MustParse(id))
	if err != nil {
		t.Fatalf("session %s: %v", id, err)
	}
	return s.Workbench
}

var signedIn = &domain.User{ID: 7, Name: "alice"}

func TestCreateSession_AppliesQuery(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.createSession(t, "?tab=log&pageNum=2", signedIn)

	w := ts.do(t, http.MethodGet, "/api/v1/sessions/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	s := decodeState(t, w)
	if s.Nav.Tab != "log" || s.Nav.PageNum != 2 {
		t.Errorf("expected log tab on page 2, got %+v", s.Nav)
	}
	if !s.CanRun {
		t.Error("expected run to be enabled")
	}
}

func TestCreateSession_MissingQuestionID(t *testing.T) {
	ts := setupTestServer(t)
	w := ts.do(t, http.MethodPost, "/api/v1/sessions", map[string]any{"query": ""})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateSession_QuestionNotFound(t *testing.T) {
	ts := setupTestServer(t)
	ts.questions.GetFn = func(ctx context.Context, id int64) (*domain.Question, error) {
		return nil, domain.ErrQuestionNotFound
	}
	w := ts.do(t, http.MethodPost, "/api/v1/sessions", map[string]any{"questionId": 5})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateSession_JudgeUnavailable(t *testing.T) {
	ts := setupTestServer(t)
	ts.questions.GetFn = func(ctx context.Context, id int64) (*domain.Question, error) {
		return nil, &domain.RemoteError{Op: "get_question", Err: domain.ErrJudgeUnavailable}
	}
	w := ts.do(t, http.MethodPost, "/api/v1/sessions", map[string]any{"questionId": 5})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetSession_UnknownAndInvalid(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/sessions/"+uuid.NewString(), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
	w = ts.do(t, http.MethodGet, "/api/v1/sessions/not-a-uuid", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestDeleteSession(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.createSession(t, "", signedIn)

	w := ts.do(t, http.MethodDelete, "/api/v1/sessions/"+id, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", w.Code)
	}
	w = ts.do(t, http.MethodGet, "/api/v1/sessions/"+id, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 after delete, got %d", w.Code)
	}
}

func TestSetTab_AnonymousLogIsInert(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.createSession(t, "", nil)

	w := ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/tab", map[string]string{"tab": "log"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Applied bool      `json:"applied"`
		State   stateView `json:"state"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if resp.Applied {
		t.Error("expected log tab to be inert for anonymous user")
	}
	if resp.State.Nav.Tab != "content" {
		t.Errorf("expected content tab, got %s", resp.State.Nav.Tab)
	}

	w = ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/tab", map[string]string{"tab": "nope"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for unknown tab, got %d", w.Code)
	}
}

func TestInspectAndClose_KeepsTabAndPage(t *testing.T) {
	ts := setupTestServer(t)
	ts.query.Put(&domain.SubmissionRecord{ID: 42, QuestionID: 1001, Status: domain.SubmissionAccepted, Code: "x"})
	id := ts.createSession(t, "?tab=log&pageNum=2", signedIn)

	w := ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/inspect", map[string]int64{"submissionId": 42})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if s := decodeState(t, w); s.Nav.TargetSubmitID != 42 {
		t.Errorf("expected target 42, got %d", s.Nav.TargetSubmitID)
	}

	w = ts.do(t, http.MethodPut, "/api/v1/sessions/"+id+"/code", map[string]string{"code": "edited"})
	if w.Code != http.StatusConflict {
		t.Errorf("expected status 409 while inspecting, got %d", w.Code)
	}
	w = ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/submit", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("expected status 409 for submit while inspecting, got %d", w.Code)
	}

	w = ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/close-inspection", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	s := decodeState(t, w)
	if s.Query != "pageNum=2&tab=log" {
		t.Errorf("expected query pageNum=2&tab=log, got %q", s.Query)
	}
	ts.workbench(t, id).Wait()
}

func TestRun_QueuedOnPool(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.createSession(t, "", signedIn)

	ts.do(t, http.MethodPut, "/api/v1/sessions/"+id+"/code", map[string]string{"code": "print(1)"})
	ts.do(t, http.MethodPut, "/api/v1/sessions/"+id+"/console/input", map[string]string{"input": "1"})

	w := ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/run", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", w.Code, w.Body.String())
	}

	wb := ts.workbench(t, id)
	deadline := time.Now().Add(2 * time.Second)
	for wb.Snapshot().RunResult == nil && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	snap := wb.Snapshot()
	if snap.RunResult == nil || snap.RunResult.Output != "1" {
		t.Fatalf("expected run output 1, got %+v", snap.RunResult)
	}
	if snap.View.ActiveConsoleTab != domain.ConsoleOutput {
		t.Error("expected console to switch to output")
	}
	if ts.judge.RunCount() != 1 {
		t.Errorf("expected 1 run call, got %d", ts.judge.RunCount())
	}
}

func TestRun_AnonymousRejected(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.createSession(t, "", nil)

	w := ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/run", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", w.Code)
	}
	if ts.judge.RunCount() != 0 {
		t.Errorf("expected no run call, got %d", ts.judge.RunCount())
	}
}

func TestSubmit_NavigatesToNewSubmission(t *testing.T) {
	ts := setupTestServer(t)
	ts.judge.SubmitFn = func(ctx context.Context, req *domain.SubmitRequest) (*domain.SubmissionHandle, error) {
		ts.query.Put(&domain.SubmissionRecord{ID: 77, QuestionID: req.QuestionID, Code: req.Code, Status: domain.SubmissionAccepted})
		return &domain.SubmissionHandle{ID: 77}, nil
	}
	id := ts.createSession(t, "", signedIn)

	w := ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/submit", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", w.Code, w.Body.String())
	}

	wb := ts.workbench(t, id)
	deadline := time.Now().Add(2 * time.Second)
	for wb.Snapshot().Nav.TargetSubmitID != 77 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if got := wb.Snapshot().Nav.TargetSubmitID; got != 77 {
		t.Fatalf("expected target 77, got %d", got)
	}
	wb.Wait()
}

func TestSetLanguage_Invalid(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.createSession(t, "", signedIn)

	w := ts.do(t, http.MethodPut, "/api/v1/sessions/"+id+"/language", map[string]any{"language": "ruby"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}

	w = ts.do(t, http.MethodPut, "/api/v1/sessions/"+id+"/language", map[string]any{"language": "python"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	s := decodeState(t, w)
	if s.Buffer.Language != "python" || s.Buffer.Code != domain.LangPython.Template() {
		t.Errorf("expected python template, got %+v", s.Buffer)
	}
}

func TestLogPage_AndHistory(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.createSession(t, "?tab=log", signedIn)

	w := ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/log/page", map[string]int{"page": 3})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if s := decodeState(t, w); s.Nav.PageNum != 3 {
		t.Errorf("expected page 3, got %d", s.Nav.PageNum)
	}

	w = ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/back", nil)
	var resp struct {
		Moved bool      `json:"moved"`
		State stateView `json:"state"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if !resp.Moved || resp.State.Nav.PageNum != 1 {
		t.Errorf("expected back to page 1, got moved=%v page=%d", resp.Moved, resp.State.Nav.PageNum)
	}

	w = ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/navigate", map[string]string{"query": "?tab=answer"})
	if s := decodeState(t, w); s.Nav.Tab != "answer" {
		t.Errorf("expected answer tab, got %s", s.Nav.Tab)
	}
	ts.workbench(t, id).Wait()

	w = ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/log/page", map[string]int{"page": 0})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for page 0, got %d", w.Code)
	}
}

func TestLanguageHandler(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/languages", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	var resp map[string][]LanguageInfo
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if got := len(resp["languages"]); got != len(domain.Languages()) {
		t.Errorf("expected %d languages, got %d", len(domain.Languages()), got)
	}
}

func TestHealthHandler_Degraded(t *testing.T) {
	handler := NewHealthHandler(map[string]HealthCheck{
		"postgres": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return errors.New("connection refused") },
	}, zap.NewNop())

	router := gin.New()
	router.GET("/api/v1/health", handler.Health)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"redis":"down"`) {
		t.Errorf("expected redis down, got %s", w.Body.String())
	}
}

func TestStream_SendsStateChanges(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.createSession(t, "", signedIn)

	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/sessions/" + id + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	type frame struct {
		Topic   string    `json:"topic"`
		Payload stateView `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first frame
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("failed to read initial frame: %v", err)
	}
	if first.Topic != "state_changed" || first.Payload.View.ConsoleOpen {
		t.Fatalf("unexpected initial frame %+v", first)
	}

	resp, err := http.Post(srv.URL+"/api/v1/sessions/"+id+"/console/toggle", "application/json", nil)
	if err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	resp.Body.Close()

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("expected console open frame, got error %v", err)
		}
		if f.Topic == "state_changed" && f.Payload.View.ConsoleOpen {
			break
		}
	}
}
