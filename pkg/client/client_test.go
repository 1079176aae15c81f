package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/codenest/codenest/pkg/protocol"
	"github.com/codenest/codenest/pkg/retry"
)

func testClient(handler http.Handler) (*Client, *httptest.Server) {
	ts := httptest.NewServer(handler)
	c := New(Config{
		BaseURL: ts.URL,
		RetryConfig: retry.Config{
			MaxAttempts: 3,
			InitialWait: time.Millisecond,
			MaxWait:     time.Millisecond,
		},
		AuthToken: "tok",
	})
	return c, ts
}

func TestStateSendsToken(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/state" {
			t.Errorf("path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"state":{"projectName":"demo","currentDirectory":"/"}}`))
	}))
	defer ts.Close()

	state, err := c.State(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.ProjectName != "demo" {
		t.Errorf("project name %q", state.ProjectName)
	}
}

func TestGetRetriesServerError(t *testing.T) {
	var attempts atomic.Int32
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[{"id":"n1","content":"hi"}]`))
	}))
	defer ts.Close()

	notes, err := c.Notes(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notes) != 1 || notes[0].Content != "hi" {
		t.Errorf("notes %+v", notes)
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestGetDoesNotRetryNotFound(t *testing.T) {
	var attempts atomic.Int32
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"file not found","code":404}`))
	}))
	defer ts.Close()

	_, err := c.File(context.Background(), "missing")
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if attempts.Load() != 1 {
		t.Errorf("404 retried: %d attempts", attempts.Load())
	}
	if !strings.Contains(err.Error(), "file not found") {
		t.Errorf("message lost: %v", err)
	}
}

func TestRemoteCallsAreNotRetried(t *testing.T) {
	var attempts atomic.Int32
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Execution failed","code":500,"details":"piston down"}`))
	}))
	defer ts.Close()

	_, err := c.Execute(context.Background(), protocol.ExecuteRequest{Code: "print(1)", Language: "python"})
	ae, ok := AsAPIError(err)
	if !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
	if ae.Status != http.StatusInternalServerError || ae.Details != "piston down" {
		t.Errorf("error %+v", ae)
	}
	if attempts.Load() != 1 {
		t.Errorf("execute sent %d times", attempts.Load())
	}
}

func TestUnsupportedLanguageError(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req protocol.ExecuteRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Language != "haskell" {
			t.Errorf("language %q", req.Language)
		}
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(protocol.ErrorResponse{
			Error:              "command not supported",
			Code:               400,
			SupportedLanguages: []string{"python"},
		})
	}))
	defer ts.Close()

	_, err := c.Execute(context.Background(), protocol.ExecuteRequest{Code: "x", Language: "haskell"})
	ae, ok := AsAPIError(err)
	if !ok || len(ae.SupportedLanguages) != 1 {
		t.Fatalf("got %v", err)
	}
}

func TestRunTabStale(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/tabs/t 1/run" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"output":"1\n","success":true,"stale":true}`))
	}))
	defer ts.Close()

	resp, err := c.RunTab(context.Background(), "t 1", "")
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Stale || !resp.Success {
		t.Errorf("response %+v", resp)
	}
}

func TestOnlineTracking(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	if err := c.Ping(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !c.IsOnline() {
		t.Error("expected online after ping")
	}
	ts.Close()

	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected ping to fail against a closed server")
	}
	if c.IsOnline() {
		t.Error("expected offline after failed ping")
	}
}

func TestSearchQuery(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if q := r.URL.Query(); q.Get("q") != "main go" || q.Get("limit") != "5" {
			t.Errorf("query %v", q)
		}
		w.Write([]byte(`{"query":"main go","results":[{"id":"f","name":"main.go","path":"src/main.go","score":9}]}`))
	}))
	defer ts.Close()

	results, err := c.Search(context.Background(), "main go", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Path != "src/main.go" {
		t.Errorf("results %+v", results)
	}
}

func TestSSEClientDecodesEvents(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(": comment\n\nevent: files\ndata: {\"type\":\"files\",\"id\":\"f1\",\"timestamp\":1}\n\n"))
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer ts.Close()

	sse := NewSSEClient(ts.URL)
	sse.SetAuthToken("tok")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, _ := sse.Subscribe(ctx)
	select {
	case ev := <-events:
		if ev.Type != "files" || ev.ID != "f1" {
			t.Errorf("event %+v", ev)
		}
	case <-ctx.Done():
		t.Fatal("no event received")
	}
}

func TestSSEClientStopsOnUnauthorized(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid token","code":401}`))
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, errs := NewSSEClient(ts.URL).Subscribe(ctx)
	select {
	case err := <-errs:
		if ae, ok := AsAPIError(err); !ok || ae.Status != http.StatusUnauthorized {
			t.Errorf("error %v", err)
		}
	case <-ctx.Done():
		t.Fatal("subscription kept reconnecting after 401")
	}
}
