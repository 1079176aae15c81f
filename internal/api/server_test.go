package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/codenest/codenest/internal/auth"
	"github.com/codenest/codenest/internal/events"
	"github.com/codenest/codenest/internal/execute"
	"github.com/codenest/codenest/internal/notes"
	"github.com/codenest/codenest/internal/quota"
	"github.com/codenest/codenest/internal/snapshot"
	"github.com/codenest/codenest/internal/storage/local"
	"github.com/codenest/codenest/internal/summarize"
	"github.com/codenest/codenest/internal/workspace"
	"github.com/codenest/codenest/pkg/models"
	"github.com/codenest/codenest/pkg/protocol"
)

// sandbox is a fake Piston endpoint that echoes the submitted source as
// stdout. Sources containing "slow" wait on release.
type sandbox struct {
	srv      *httptest.Server
	calls    atomic.Int32
	started  chan struct{}
	release  chan struct{}
	exitCode int
}

func newSandbox(t *testing.T) *sandbox {
	t.Helper()
	sb := &sandbox{started: make(chan struct{}, 8), release: make(chan struct{})}
	sb.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sb.calls.Add(1)
		var req struct {
			Language string `json:"language"`
			Files    []struct {
				Content string `json:"content"`
			} `json:"files"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		src := req.Files[0].Content
		if strings.Contains(src, "slow") {
			sb.started <- struct{}{}
			<-sb.release
		}
		code := sb.exitCode
		json.NewEncoder(w).Encode(map[string]any{
			"language": req.Language,
			"version":  "1",
			"run":      map[string]any{"stdout": src, "stderr": "", "output": src, "code": code, "signal": nil},
		})
	}))
	t.Cleanup(sb.srv.Close)
	return sb
}

type testEnv struct {
	srv     *httptest.Server
	token   string
	session string
	sandbox *sandbox
	model   *atomic.Int32
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	sb := newSandbox(t)

	var modelCalls atomic.Int32
	model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		modelCalls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"parts": []any{map[string]any{"text": " It prints a greeting. "}}},
			}},
		})
	}))
	t.Cleanup(model.Close)

	store, err := notes.OpenSQLite(filepath.Join(t.TempDir(), "notes.db"))
	if err != nil {
		t.Fatalf("open notes: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	backend, err := local.New(local.Config{RootPath: t.TempDir(), CreateDirs: true})
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}

	s := NewServer(Deps{
		Auth:        auth.New("test-secret", time.Hour),
		Sessions:    workspace.NewManager(),
		Executor:    execute.NewClient(sb.srv.URL, 5*time.Second),
		Summarizer:  summarize.NewClient(summarize.Config{BaseURL: model.URL, APIKey: "k"}),
		Notes:       notes.NewService(store),
		Snapshots:   snapshot.NewStore(backend),
		Broadcaster: events.NewBroadcaster(),
		Limiter:     quota.NewWindowLimiter(3, 5*time.Minute),
	})
	env := &testEnv{srv: httptest.NewServer(s.Handler()), sandbox: sb, model: &modelCalls}
	t.Cleanup(env.srv.Close)

	var sess protocol.SessionResponse
	env.mustDo(t, http.MethodPost, "/api/v1/sessions", nil, http.StatusCreated, &sess)
	env.token = sess.Token
	env.session = sess.SessionID
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func (e *testEnv) mustDo(t *testing.T, method, path string, body any, wantStatus int, out any) {
	t.Helper()
	resp := e.do(t, method, path, body)
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		data, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: status %d, want %d: %s", method, path, resp.StatusCode, wantStatus, data)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
}

func (e *testEnv) state(t *testing.T) models.ProjectSnapshot {
	t.Helper()
	var st protocol.StateResponse
	e.mustDo(t, http.MethodGet, "/api/v1/state", nil, http.StatusOK, &st)
	return st.State
}

// openPython creates main.py at the root and opens it in a tab.
func (e *testEnv) openPython(t *testing.T, content string) string {
	t.Helper()
	var f protocol.FileResponse
	e.mustDo(t, http.MethodPost, "/api/v1/files", protocol.CreateFileRequest{Name: "main.py", Type: models.TypeFile}, http.StatusCreated, &f)
	e.mustDo(t, http.MethodPost, "/api/v1/tabs", protocol.OpenTabRequest{FileID: f.File.ID}, http.StatusOK, nil)
	e.mustDo(t, http.MethodPut, "/api/v1/tabs/"+f.File.ID+"/content", protocol.UpdateContentRequest{Content: content}, http.StatusOK, nil)
	return f.File.ID
}

func TestHealthIsPublic(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Get(env.srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}
}

func TestRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	env.token = ""
	resp := env.do(t, http.MethodGet, "/api/v1/state", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestNewSessionDefaults(t *testing.T) {
	env := newTestEnv(t)
	st := env.state(t)
	if st.ProjectName != workspace.DefaultProjectName {
		t.Errorf("project = %q", st.ProjectName)
	}
	if st.CurrentDirectory != "/" {
		t.Errorf("cwd = %q", st.CurrentDirectory)
	}
	if len(st.TerminalHistory) != 1 || st.TerminalHistory[0].Content != workspace.WelcomeMessage {
		t.Errorf("terminal = %+v", st.TerminalHistory)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	a := newTestEnv(t)
	a.openPython(t, "print(1)")

	var other protocol.SessionResponse
	a.mustDo(t, http.MethodPost, "/api/v1/sessions", nil, http.StatusCreated, &other)
	b := *a
	b.token = other.Token

	if got := len(b.state(t).Files); got != 0 {
		t.Errorf("second session sees %d files", got)
	}
	if got := len(a.state(t).Files); got != 1 {
		t.Errorf("first session has %d files, want 1", got)
	}
}

func TestFileAndTabLifecycle(t *testing.T) {
	env := newTestEnv(t)

	var folder protocol.FileResponse
	env.mustDo(t, http.MethodPost, "/api/v1/files", protocol.CreateFileRequest{Name: "src", Type: models.TypeFolder}, http.StatusCreated, &folder)
	var file protocol.FileResponse
	env.mustDo(t, http.MethodPost, "/api/v1/files", protocol.CreateFileRequest{ParentID: folder.File.ID, Name: "app.ts", Type: models.TypeFile}, http.StatusCreated, &file)
	if file.File.Path != "/src/app.ts" {
		t.Errorf("path = %q", file.File.Path)
	}

	var tab protocol.TabResponse
	env.mustDo(t, http.MethodPost, "/api/v1/tabs", protocol.OpenTabRequest{FileID: file.File.ID}, http.StatusOK, &tab)
	if tab.Tab.Language != "typescript" {
		t.Errorf("language = %q", tab.Tab.Language)
	}
	env.mustDo(t, http.MethodPut, "/api/v1/tabs/"+tab.Tab.ID+"/content", protocol.UpdateContentRequest{Content: "let x = 1"}, http.StatusOK, &tab)
	if !tab.Tab.IsDirty {
		t.Error("tab should be dirty after edit")
	}
	env.mustDo(t, http.MethodPost, "/api/v1/tabs/"+tab.Tab.ID+"/save", nil, http.StatusOK, &tab)
	if tab.Tab.IsDirty {
		t.Error("tab should be clean after save")
	}

	var got protocol.FileResponse
	env.mustDo(t, http.MethodGet, "/api/v1/files/"+file.File.ID, nil, http.StatusOK, &got)
	if got.File.Content != "let x = 1" {
		t.Errorf("content = %q", got.File.Content)
	}

	var search protocol.SearchResponse
	env.mustDo(t, http.MethodGet, "/api/v1/search?q=app", nil, http.StatusOK, &search)
	if len(search.Results) != 1 || search.Results[0].Name != "app.ts" {
		t.Errorf("search = %+v", search.Results)
	}

	env.mustDo(t, http.MethodDelete, "/api/v1/files/"+folder.File.ID, nil, http.StatusNoContent, nil)
	st := env.state(t)
	if len(st.Files) != 0 || len(st.OpenTabs) != 0 || st.ActiveTab != "" {
		t.Errorf("state after folder delete = %+v", st)
	}
}

func TestUnknownIDs(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/api/v1/files/nope", nil},
		{http.MethodDelete, "/api/v1/files/nope", nil},
		{http.MethodPost, "/api/v1/files/nope/toggle", nil},
		{http.MethodDelete, "/api/v1/tabs/nope", nil},
		{http.MethodPut, "/api/v1/tabs/nope/content", protocol.UpdateContentRequest{Content: "x"}},
		{http.MethodPost, "/api/v1/tabs", protocol.OpenTabRequest{FileID: "nope"}},
		{http.MethodPost, "/api/v1/tabs/nope/run", nil},
		{http.MethodPost, "/api/v1/template", protocol.TemplateRequest{ID: "cobol"}},
		{http.MethodPost, "/api/v1/snapshots/missing/restore", nil},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			var e protocol.ErrorResponse
			env.mustDo(t, tt.method, tt.path, tt.body, http.StatusNotFound, &e)
			if e.Code != http.StatusNotFound {
				t.Errorf("code = %d", e.Code)
			}
		})
	}
}

func TestApplyTemplate(t *testing.T) {
	env := newTestEnv(t)
	var st protocol.StateResponse
	env.mustDo(t, http.MethodPost, "/api/v1/template", protocol.TemplateRequest{ID: "python"}, http.StatusOK, &st)
	if len(st.State.OpenTabs) != 1 || st.State.OpenTabs[0].Name != "main.py" {
		t.Errorf("open tabs = %+v", st.State.OpenTabs)
	}
	if st.State.ActiveTab != st.State.OpenTabs[0].ID {
		t.Error("main file should be active")
	}
}

func TestExecuteStateless(t *testing.T) {
	env := newTestEnv(t)

	var ok protocol.ExecuteResponse
	env.mustDo(t, http.MethodPost, "/api/v1/execute", protocol.ExecuteRequest{Code: "print(1)", Language: "python"}, http.StatusOK, &ok)
	if !ok.Success || ok.Output != "print(1)" {
		t.Errorf("execute = %+v", ok)
	}

	var unsupported protocol.ErrorResponse
	env.mustDo(t, http.MethodPost, "/api/v1/execute", protocol.ExecuteRequest{Code: "main = 1", Language: "haskell"}, http.StatusBadRequest, &unsupported)
	if unsupported.Error != execute.UnsupportedCommandMessage || len(unsupported.SupportedLanguages) == 0 {
		t.Errorf("unsupported = %+v", unsupported)
	}

	var missing protocol.ErrorResponse
	env.mustDo(t, http.MethodPost, "/api/v1/execute", protocol.ExecuteRequest{Language: "python"}, http.StatusBadRequest, &missing)

	if n := env.sandbox.calls.Load(); n != 1 {
		t.Errorf("sandbox calls = %d, want 1", n)
	}
}

func TestExecuteUpstreamDown(t *testing.T) {
	env := newTestEnv(t)
	env.sandbox.srv.Close()

	var e protocol.ErrorResponse
	env.mustDo(t, http.MethodPost, "/api/v1/execute", protocol.ExecuteRequest{Code: "print(1)", Language: "python"}, http.StatusInternalServerError, &e)
	if e.Error != "Execution failed" || e.Details == "" {
		t.Errorf("error = %+v", e)
	}
}

func TestRunTabAppendsTerminal(t *testing.T) {
	env := newTestEnv(t)
	tabID := env.openPython(t, "print('hi')")

	var res protocol.ExecuteResponse
	env.mustDo(t, http.MethodPost, "/api/v1/tabs/"+tabID+"/run", protocol.RunTabRequest{}, http.StatusOK, &res)
	if !res.Success || res.Stale {
		t.Fatalf("run = %+v", res)
	}
	term := env.state(t).TerminalHistory
	last := term[len(term)-1]
	if last.Type != models.LineOutput || last.Content != "print('hi')" {
		t.Errorf("last line = %+v", last)
	}
}

func TestRunTabFailureIsErrorLine(t *testing.T) {
	env := newTestEnv(t)
	env.sandbox.exitCode = 3
	tabID := env.openPython(t, "raise SystemExit(3)")

	var res protocol.ExecuteResponse
	env.mustDo(t, http.MethodPost, "/api/v1/tabs/"+tabID+"/run", nil, http.StatusOK, &res)
	if res.Success || res.Error != "Process exited with code 3" || res.Output == "" {
		t.Errorf("run = %+v", res)
	}
	term := env.state(t).TerminalHistory
	if last := term[len(term)-1]; last.Type != models.LineError {
		t.Errorf("last line = %+v", last)
	}
}

func TestStaleRunIsNotApplied(t *testing.T) {
	env := newTestEnv(t)
	tabID := env.openPython(t, "slow()")

	slow := make(chan protocol.ExecuteResponse, 1)
	go func() {
		var res protocol.ExecuteResponse
		resp := env.do(t, http.MethodPost, "/api/v1/tabs/"+tabID+"/run", nil)
		defer resp.Body.Close()
		json.NewDecoder(resp.Body).Decode(&res)
		slow <- res
	}()
	<-env.sandbox.started

	env.mustDo(t, http.MethodPut, "/api/v1/tabs/"+tabID+"/content", protocol.UpdateContentRequest{Content: "fast()"}, http.StatusOK, nil)
	var fast protocol.ExecuteResponse
	env.mustDo(t, http.MethodPost, "/api/v1/tabs/"+tabID+"/run", nil, http.StatusOK, &fast)
	if fast.Stale {
		t.Fatal("latest run reported stale")
	}

	close(env.sandbox.release)
	res := <-slow
	if !res.Stale {
		t.Fatalf("superseded run not flagged stale: %+v", res)
	}

	for _, l := range env.state(t).TerminalHistory {
		if l.Content == "slow()" {
			t.Fatalf("stale output reached the terminal: %+v", l)
		}
	}
}

func TestStopTab(t *testing.T) {
	env := newTestEnv(t)
	tabID := env.openPython(t, "print(1)")

	var line models.TerminalLine
	env.mustDo(t, http.MethodPost, "/api/v1/tabs/"+tabID+"/stop", nil, http.StatusOK, &line)
	if line.Type != models.LineCommand || line.Content != StopMessage {
		t.Errorf("line = %+v", line)
	}
}

func TestTerminalCommand(t *testing.T) {
	env := newTestEnv(t)

	var resp protocol.TerminalCommandResponse
	env.mustDo(t, http.MethodPost, "/api/v1/terminal/command", protocol.TerminalCommandRequest{Command: "ls -la"}, http.StatusOK, &resp)
	if len(resp.Lines) != 2 || resp.Lines[1].Content != execute.UnsupportedCommandMessage {
		t.Errorf("lines = %+v", resp.Lines)
	}

	env.mustDo(t, http.MethodPost, "/api/v1/terminal/command", protocol.TerminalCommandRequest{Command: "python print(2)"}, http.StatusOK, &resp)
	if len(resp.Lines) != 2 || resp.Lines[1].Type != models.LineOutput {
		t.Errorf("lines = %+v", resp.Lines)
	}

	env.mustDo(t, http.MethodPost, "/api/v1/terminal/command", protocol.TerminalCommandRequest{Command: "clear"}, http.StatusOK, &resp)
	if !resp.Cleared {
		t.Error("clear not reported")
	}
	if got := len(env.state(t).TerminalHistory); got != 0 {
		t.Errorf("terminal has %d lines after clear", got)
	}
}

func TestTerminalLines(t *testing.T) {
	env := newTestEnv(t)

	var line models.TerminalLine
	env.mustDo(t, http.MethodPost, "/api/v1/terminal/lines", protocol.TerminalLineRequest{Type: models.LineOutput, Content: "ok"}, http.StatusCreated, &line)
	if line.ID == "" || line.Timestamp.IsZero() {
		t.Errorf("line = %+v", line)
	}
	env.mustDo(t, http.MethodPost, "/api/v1/terminal/lines", protocol.TerminalLineRequest{Type: "warning", Content: "x"}, http.StatusBadRequest, nil)

	var toggled map[string]bool
	env.mustDo(t, http.MethodPost, "/api/v1/terminal/toggle", nil, http.StatusOK, &toggled)
	if open := env.state(t).IsTerminalOpen; toggled["isTerminalOpen"] != open {
		t.Errorf("toggle returned %v, state has %v", toggled["isTerminalOpen"], open)
	}
	env.mustDo(t, http.MethodDelete, "/api/v1/terminal", nil, http.StatusNoContent, nil)
}

func TestTerminalSocket(t *testing.T) {
	env := newTestEnv(t)
	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/api/v1/terminal/ws?token=" + env.token

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(protocol.TerminalCommandRequest{Command: "js console.log(1)"}); err != nil {
		t.Fatal(err)
	}
	var resp protocol.TerminalCommandResponse
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(resp.Lines) != 2 || resp.Lines[0].Type != models.LineCommand || resp.Lines[1].Type != models.LineOutput {
		t.Errorf("lines = %+v", resp.Lines)
	}
}

func TestSummarizeRateLimit(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 3; i++ {
		var res protocol.SummarizeResponse
		env.mustDo(t, http.MethodPost, "/api/v1/summarize", protocol.SummarizeRequest{Code: "print(1)"}, http.StatusOK, &res)
		if !res.Success || res.Summary != "It prints a greeting." {
			t.Fatalf("summary %d = %+v", i, res)
		}
	}

	var e protocol.ErrorResponse
	env.mustDo(t, http.MethodPost, "/api/v1/summarize", protocol.SummarizeRequest{Code: "print(1)"}, http.StatusTooManyRequests, &e)
	if e.Error != quota.TooManyRequestsMessage {
		t.Errorf("error = %q", e.Error)
	}
	if n := env.model.Load(); n != 3 {
		t.Errorf("model calls = %d, want 3", n)
	}
}

func TestSummarizeValidation(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name string
		code string
		want string
	}{
		{"empty", "  ", "Code is required"},
		{"too large", strings.Repeat("x", 5001), "Code is too large to summarize. Limit to 5000 characters."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e protocol.ErrorResponse
			env.mustDo(t, http.MethodPost, "/api/v1/summarize", protocol.SummarizeRequest{Code: tt.code}, http.StatusBadRequest, &e)
			if e.Error != tt.want {
				t.Errorf("error = %q, want %q", e.Error, tt.want)
			}
		})
	}
	if n := env.model.Load(); n != 0 {
		t.Errorf("model called %d times for invalid input", n)
	}
}

func TestSummarizeTab(t *testing.T) {
	env := newTestEnv(t)
	tabID := env.openPython(t, "print('hi')")

	var res protocol.SummarizeResponse
	env.mustDo(t, http.MethodPost, "/api/v1/tabs/"+tabID+"/summarize", nil, http.StatusOK, &res)
	if !res.Success || res.Stale || res.Summary == "" {
		t.Errorf("summary = %+v", res)
	}
}

func TestSnippetsAndNotes(t *testing.T) {
	env := newTestEnv(t)

	var sn models.CodeSnippet
	env.mustDo(t, http.MethodPost, "/api/v1/snippets", protocol.SnippetRequest{Title: "hello", Code: "print(1)", Language: "python"}, http.StatusCreated, &sn)
	title := "renamed"
	env.mustDo(t, http.MethodPatch, "/api/v1/snippets/"+sn.ID, protocol.SnippetPatch{Title: &title}, http.StatusOK, &sn)
	if sn.Title != "renamed" || sn.Code != "print(1)" {
		t.Errorf("snippet = %+v", sn)
	}
	var snippets []models.CodeSnippet
	env.mustDo(t, http.MethodGet, "/api/v1/snippets", nil, http.StatusOK, &snippets)
	if len(snippets) != 1 {
		t.Errorf("snippets = %+v", snippets)
	}
	env.mustDo(t, http.MethodDelete, "/api/v1/snippets/"+sn.ID, nil, http.StatusNoContent, nil)
	env.mustDo(t, http.MethodDelete, "/api/v1/snippets/"+sn.ID, nil, http.StatusNotFound, nil)

	var note models.StickyNote
	env.mustDo(t, http.MethodPost, "/api/v1/notes", protocol.NoteRequest{Content: "todo"}, http.StatusCreated, &note)
	if note.X != 100 || note.Y != 100 || note.Width != 240 || note.Height != 160 {
		t.Errorf("note defaults = %+v", note)
	}
	x := 5
	env.mustDo(t, http.MethodPatch, "/api/v1/notes/"+note.ID, protocol.NotePatch{X: &x}, http.StatusOK, &note)
	if note.X != 5 || note.Content != "todo" {
		t.Errorf("note = %+v", note)
	}
	var list []models.StickyNote
	env.mustDo(t, http.MethodGet, "/api/v1/notes", nil, http.StatusOK, &list)
	if len(list) != 1 {
		t.Errorf("notes = %+v", list)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.mustDo(t, http.MethodPost, "/api/v1/template", protocol.TemplateRequest{ID: "c"}, http.StatusOK, nil)
	before := env.state(t)

	var info protocol.SnapshotResponse
	env.mustDo(t, http.MethodPut, "/api/v1/snapshots/v1", nil, http.StatusOK, &info)
	if info.Name != "v1" || info.Size == 0 {
		t.Errorf("info = %+v", info)
	}

	env.mustDo(t, http.MethodPost, "/api/v1/template", protocol.TemplateRequest{ID: "java"}, http.StatusOK, nil)

	var restored protocol.StateResponse
	env.mustDo(t, http.MethodPost, "/api/v1/snapshots/v1/restore", nil, http.StatusOK, &restored)
	if restored.State.ProjectName != before.ProjectName || len(restored.State.Files) != len(before.Files) {
		t.Errorf("restored = %+v", restored.State)
	}
	if restored.State.ActiveTab != before.ActiveTab {
		t.Errorf("active tab = %q, want %q", restored.State.ActiveTab, before.ActiveTab)
	}

	var list []protocol.SnapshotResponse
	env.mustDo(t, http.MethodGet, "/api/v1/snapshots", nil, http.StatusOK, &list)
	if len(list) != 1 {
		t.Errorf("snapshots = %+v", list)
	}
	env.mustDo(t, http.MethodPut, "/api/v1/snapshots/..bad", nil, http.StatusBadRequest, nil)
	env.mustDo(t, http.MethodDelete, "/api/v1/snapshots/v1", nil, http.StatusNoContent, nil)
}

func TestEventsStream(t *testing.T) {
	env := newTestEnv(t)

	req, _ := http.NewRequest(http.MethodGet, env.srv.URL+"/api/v1/events", nil)
	req.Header.Set("Authorization", "Bearer "+env.token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	env.mustDo(t, http.MethodPut, "/api/v1/project", protocol.ProjectNameRequest{Name: "Demo"}, http.StatusOK, nil)

	got := make(chan string, 1)
	go func() {
		buf := make([]byte, 512)
		n, _ := resp.Body.Read(buf)
		got <- string(buf[:n])
	}()
	select {
	case frame := <-got:
		if !strings.Contains(frame, fmt.Sprintf("event: %s", events.EventProject)) {
			t.Errorf("frame = %q", frame)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}
}
