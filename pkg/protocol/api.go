// Package protocol defines the API request/response types.
package protocol

import (
	"time"

	"github.com/codenest/codenest/pkg/models"
)

// ErrorResponse is returned on API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Details string `json:"details,omitempty"`

	// SupportedLanguages is set when an execution alias is rejected.
	SupportedLanguages []string `json:"supportedLanguages,omitempty"`
}

// SessionResponse is returned by POST /api/v1/sessions.
type SessionResponse struct {
	SessionID string    `json:"sessionId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// StateResponse is returned by GET /api/v1/state and by most mutations.
type StateResponse struct {
	State models.ProjectSnapshot `json:"state"`
}

// ProjectNameRequest is the body for PUT /api/v1/project.
type ProjectNameRequest struct {
	Name string `json:"name"`
}

// TemplateRequest is the body for POST /api/v1/template.
type TemplateRequest struct {
	ID string `json:"id"`
}

// TemplateInfo describes an available project template.
type TemplateInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SetFilesRequest is the body for PUT /api/v1/files.
type SetFilesRequest struct {
	Files []*models.FileNode `json:"files"`
	// Replace also discards open tabs, as loading a template does.
	Replace bool `json:"replace,omitempty"`
}

// CreateFileRequest is the body for POST /api/v1/files.
type CreateFileRequest struct {
	ParentID string          `json:"parentId,omitempty"`
	Name     string          `json:"name"`
	Type     models.NodeType `json:"type"`
}

// FileResponse wraps a single node.
type FileResponse struct {
	File models.FileNode `json:"file"`
}

// SearchResult is a single quick-open match.
type SearchResult struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Path  string `json:"path"`
	Score int    `json:"score"`
}

// SearchResponse is returned by GET /api/v1/search.
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}

// OpenTabRequest is the body for POST /api/v1/tabs.
type OpenTabRequest struct {
	FileID string `json:"fileId"`
}

// TabResponse wraps a single tab.
type TabResponse struct {
	Tab models.EditorTab `json:"tab"`
}

// UpdateContentRequest is the body for PUT /api/v1/tabs/{id}/content.
type UpdateContentRequest struct {
	Content string `json:"content"`
}

// ActiveTabRequest is the body for PUT /api/v1/tabs/active.
type ActiveTabRequest struct {
	TabID string `json:"tabId"`
}

// TerminalLineRequest is the body for POST /api/v1/terminal/lines.
type TerminalLineRequest struct {
	Type    models.LineType `json:"type"`
	Content string          `json:"content"`
}

// TerminalCommandRequest is the body for POST /api/v1/terminal/command
// and the message format of the terminal WebSocket.
type TerminalCommandRequest struct {
	Command string `json:"command"`
}

// TerminalCommandResponse lists the lines a command appended.
type TerminalCommandResponse struct {
	Lines   []models.TerminalLine `json:"lines"`
	Cleared bool                  `json:"cleared,omitempty"`
}

// ExecuteRequest is the body for POST /api/v1/execute.
type ExecuteRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
	Input    string `json:"input,omitempty"`
}

// ExecuteResponse is returned by the execution endpoints.
type ExecuteResponse struct {
	Output  string `json:"output"`
	Error   string `json:"error,omitempty"`
	Success bool   `json:"success"`
	Stale   bool   `json:"stale,omitempty"`
}

// RunTabRequest is the optional body for POST /api/v1/tabs/{id}/run.
type RunTabRequest struct {
	Input string `json:"input,omitempty"`
}

// SummarizeRequest is the body for POST /api/v1/summarize.
type SummarizeRequest struct {
	Code     string `json:"code"`
	Language string `json:"language,omitempty"`
}

// SummarizeResponse is returned by the summarization endpoints.
type SummarizeResponse struct {
	Success bool   `json:"success"`
	Summary string `json:"summary"`
	Stale   bool   `json:"stale,omitempty"`
}

// SnippetRequest is the body for POST /api/v1/snippets.
type SnippetRequest struct {
	Title    string   `json:"title"`
	Code     string   `json:"code"`
	Language string   `json:"language"`
	Tags     []string `json:"tags,omitempty"`
}

// SnippetPatch is the body for PATCH /api/v1/snippets/{id}.
type SnippetPatch struct {
	Title    *string   `json:"title,omitempty"`
	Code     *string   `json:"code,omitempty"`
	Language *string   `json:"language,omitempty"`
	Tags     *[]string `json:"tags,omitempty"`
}

// NoteRequest is the body for POST /api/v1/notes.
type NoteRequest struct {
	Content string `json:"content"`
	Color   string `json:"color,omitempty"`
}

// NotePatch is the body for PATCH /api/v1/notes/{id}.
type NotePatch struct {
	Content *string `json:"content,omitempty"`
	Color   *string `json:"color,omitempty"`
	X       *int    `json:"x,omitempty"`
	Y       *int    `json:"y,omitempty"`
	Width   *int    `json:"width,omitempty"`
	Height  *int    `json:"height,omitempty"`
}

// SnapshotResponse is returned when a project snapshot is saved.
type SnapshotResponse struct {
	Name    string    `json:"name"`
	Key     string    `json:"key"`
	Size    int64     `json:"size"`
	SavedAt time.Time `json:"savedAt"`
}

// WorkspaceEvent is the payload of a server-sent event.
type WorkspaceEvent struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	Timestamp int64  `json:"timestamp"`
}
