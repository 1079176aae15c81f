// Package api provides the HTTP server and handlers.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/codenest/codenest/internal/auth"
	"github.com/codenest/codenest/internal/events"
	"github.com/codenest/codenest/internal/execute"
	"github.com/codenest/codenest/internal/logging"
	"github.com/codenest/codenest/internal/metrics"
	"github.com/codenest/codenest/internal/notes"
	"github.com/codenest/codenest/internal/quota"
	"github.com/codenest/codenest/internal/snapshot"
	"github.com/codenest/codenest/internal/summarize"
	"github.com/codenest/codenest/internal/templates"
	"github.com/codenest/codenest/internal/workspace"
	"github.com/codenest/codenest/pkg/protocol"
)

// maxBodySize bounds JSON request bodies.
const maxBodySize = 8 << 20

// Deps bundles the subsystems the server dispatches to.
type Deps struct {
	Auth        *auth.Auth
	Sessions    *workspace.Manager
	Executor    *execute.Client
	Summarizer  *summarize.Client
	Notes       *notes.Service
	Snapshots   *snapshot.Store
	Broadcaster *events.Broadcaster
	Limiter     *quota.WindowLimiter
	TrustProxy  bool
}

// Server is the HTTP server.
type Server struct {
	auth        *auth.Auth
	sessions    *workspace.Manager
	executor    *execute.Client
	summarizer  *summarize.Client
	notes       *notes.Service
	snapshots   *snapshot.Store
	broadcaster *events.Broadcaster
	limiter     *quota.WindowLimiter
	trustProxy  bool
}

// NewServer creates a new server.
func NewServer(d Deps) *Server {
	if d.Broadcaster == nil {
		d.Broadcaster = events.NewBroadcaster()
	}
	return &Server{
		auth:        d.Auth,
		sessions:    d.Sessions,
		executor:    d.Executor,
		summarizer:  d.Summarizer,
		notes:       d.Notes,
		snapshots:   d.Snapshots,
		broadcaster: d.Broadcaster,
		limiter:     d.Limiter,
		trustProxy:  d.TrustProxy,
	}
}

// Handler returns the HTTP handler with auth, logging and metrics middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Public endpoints (no auth required)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/v1/sessions", s.handleCreateSession)

	// Everything below is registered on the same mux so r.Pattern carries
	// the full route for metrics.
	protect := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.auth.Middleware(h))
	}
	limited := quota.RateLimitMiddleware(s.limiter, quota.ClientIP(s.trustProxy))

	protect("DELETE /api/v1/sessions", s.handleDeleteSession)

	// Project state
	protect("GET /api/v1/state", s.handleState)
	protect("PUT /api/v1/project", s.handleSetProjectName)
	protect("GET /api/v1/templates", s.handleListTemplates)
	protect("POST /api/v1/template", s.handleApplyTemplate)

	// File tree
	protect("PUT /api/v1/files", s.handleSetFiles)
	protect("POST /api/v1/files", s.handleCreateFile)
	protect("GET /api/v1/files/{id}", s.handleGetFile)
	protect("DELETE /api/v1/files/{id}", s.handleDeleteFile)
	protect("POST /api/v1/files/{id}/toggle", s.handleToggleFolder)
	protect("GET /api/v1/search", s.handleSearch)

	// Tabs
	protect("POST /api/v1/tabs", s.handleOpenTab)
	protect("PUT /api/v1/tabs/active", s.handleSetActiveTab)
	protect("DELETE /api/v1/tabs/{id}", s.handleCloseTab)
	protect("PUT /api/v1/tabs/{id}/content", s.handleUpdateContent)
	protect("POST /api/v1/tabs/{id}/save", s.handleSaveTab)
	protect("POST /api/v1/tabs/{id}/run", s.handleRunTab)
	protect("POST /api/v1/tabs/{id}/stop", s.handleStopTab)
	mux.Handle("POST /api/v1/tabs/{id}/summarize", s.auth.Middleware(limited(http.HandlerFunc(s.handleSummarizeTab))))

	// Terminal
	protect("POST /api/v1/terminal/lines", s.handleAddTerminalLine)
	protect("DELETE /api/v1/terminal", s.handleClearTerminal)
	protect("POST /api/v1/terminal/toggle", s.handleToggleTerminal)
	protect("POST /api/v1/terminal/command", s.handleTerminalCommand)
	protect("GET /api/v1/terminal/ws", s.handleTerminalSocket)

	// Stateless remote calls
	protect("POST /api/v1/execute", s.handleExecute)
	mux.Handle("POST /api/v1/summarize", s.auth.Middleware(limited(http.HandlerFunc(s.handleSummarize))))

	// Snippets and notes
	protect("GET /api/v1/snippets", s.handleListSnippets)
	protect("POST /api/v1/snippets", s.handleAddSnippet)
	protect("PATCH /api/v1/snippets/{id}", s.handleUpdateSnippet)
	protect("DELETE /api/v1/snippets/{id}", s.handleDeleteSnippet)
	protect("GET /api/v1/notes", s.handleListNotes)
	protect("POST /api/v1/notes", s.handleAddNote)
	protect("PATCH /api/v1/notes/{id}", s.handleUpdateNote)
	protect("DELETE /api/v1/notes/{id}", s.handleDeleteNote)

	// Snapshots
	protect("GET /api/v1/snapshots", s.handleListSnapshots)
	protect("PUT /api/v1/snapshots/{name}", s.handleSaveSnapshot)
	protect("POST /api/v1/snapshots/{name}/restore", s.handleRestoreSnapshot)
	protect("DELETE /api/v1/snapshots/{name}", s.handleDeleteSnapshot)

	// SSE endpoint
	protect("GET /api/v1/events", s.handleEvents)

	// Metrics sit inside logging: logging copies the request, and the mux
	// records the matched pattern on the copy it receives.
	return logging.Middleware(metrics.Middleware(mux))
}

// ─── Health ─────────────────────────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}

// ─── Sessions ───────────────────────────────────────────────────────────────

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id, _ := s.sessions.Create()
	token, expires, err := s.auth.IssueToken(id)
	if err != nil {
		s.sessions.Delete(id)
		logging.Error("issue session token", zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	metrics.SetActiveSessions(s.sessions.Len())
	logging.Info("session created", logging.Session(id))

	s.sendJSON(w, http.StatusCreated, protocol.SessionResponse{
		SessionID: id,
		Token:     token,
		ExpiresAt: expires,
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := auth.SessionID(r.Context())
	if !s.sessions.Delete(id) {
		s.sendError(w, http.StatusNotFound, "session not found")
		return
	}
	metrics.SetActiveSessions(s.sessions.Len())
	logging.Info("session ended", logging.Session(id))
	w.WriteHeader(http.StatusNoContent)
}

// workspace returns the caller's workspace. A valid token whose session was
// evicted gets a fresh default workspace.
func (s *Server) workspace(r *http.Request) (string, *workspace.Workspace) {
	id := auth.SessionID(r.Context())
	return id, s.sessions.GetOrCreate(id)
}

func (s *Server) notify(session, typ, id string) {
	s.broadcaster.Notify(session, typ, id)
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		s.sendErrorDetails(w, http.StatusBadRequest, "invalid request body", err.Error())
		return false
	}
	return true
}

func (s *Server) sendJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("write response", zap.Error(err))
	}
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, workspace.ErrNotFound),
		errors.Is(err, notes.ErrNotFound),
		errors.Is(err, snapshot.ErrNotFound),
		errors.Is(err, templates.ErrUnknownTemplate):
		return http.StatusNotFound
	case errors.Is(err, workspace.ErrNotAFile),
		errors.Is(err, workspace.ErrInvalidName),
		errors.Is(err, workspace.ErrInvalidType),
		errors.Is(err, workspace.ErrInvalidTree),
		errors.Is(err, workspace.ErrInvalidLineType),
		errors.Is(err, notes.ErrInvalid),
		errors.Is(err, snapshot.ErrInvalidName):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// sendDomainError writes err with the status statusFor picks. Internal
// errors are logged and their text kept out of the response message.
func (s *Server) sendDomainError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		logging.WithContext(r.Context()).Error("request failed", zap.Error(err))
		s.sendErrorDetails(w, code, "internal error", err.Error())
		return
	}
	s.sendError(w, code, err.Error())
}

func (s *Server) sendError(w http.ResponseWriter, code int, message string) {
	s.sendErrorDetails(w, code, message, "")
}

func (s *Server) sendErrorDetails(w http.ResponseWriter, code int, message, details string) {
	s.sendJSON(w, code, protocol.ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.sendError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	session, _ := s.workspace(r)

	ch := s.broadcaster.Subscribe(session)
	defer s.broadcaster.Unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			data, err := events.MarshalEvent(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			flusher.Flush()
		}
	}
}
