// Package client is a Go client for the CodeNest HTTP API with retry on
// reads and online tracking.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/codenest/codenest/internal/logging"
	"github.com/codenest/codenest/pkg/models"
	"github.com/codenest/codenest/pkg/protocol"
	"github.com/codenest/codenest/pkg/retry"
)

// Client talks to a CodeNest server. Only GET requests are retried; state
// changes and remote calls are sent once.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	retryConfig retry.Config

	mu        sync.RWMutex
	online    bool
	lastPing  time.Time
	authToken string
}

// Config holds client configuration.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	RetryConfig retry.Config
	AuthToken   string
}

// New creates a new client.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.RetryConfig.MaxAttempts == 0 {
		cfg.RetryConfig = retry.DefaultConfig()
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		retryConfig: cfg.RetryConfig,
		online:      true,
		authToken:   cfg.AuthToken,
	}
}

// BaseURL returns the server address the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetAuthToken sets the session token for requests.
func (c *Client) SetAuthToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authToken = token
}

// AuthToken returns the session token in use.
func (c *Client) AuthToken() string {
	return c.token()
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authToken
}

// applyAuth adds the auth header to a request if a token is set.
func (c *Client) applyAuth(req *http.Request) {
	if t := c.token(); t != "" {
		req.Header.Set("Authorization", "Bearer "+t)
	}
}

// IsOnline returns true if the server is reachable.
func (c *Client) IsOnline() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.online
}

func (c *Client) setOnline(online bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.online != online {
		if online {
			logging.Info("server is back online", logging.String("server", c.baseURL))
		} else {
			logging.Warn("server is offline", logging.String("server", c.baseURL))
		}
	}
	c.online = online
	c.lastPing = time.Now()
}

// Ping checks if the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.setOnline(false)
		return fmt.Errorf("%w: %v", ErrOffline, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.setOnline(false)
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	c.setOnline(true)
	return nil
}

// ErrOffline is returned when the server cannot be reached.
var ErrOffline = errors.New("server is offline")

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status int
	protocol.ErrorResponse
}

func (e *APIError) Error() string {
	msg := e.ErrorResponse.Error
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Details != "" {
		msg += ": " + e.Details
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, msg)
}

// AsAPIError extracts an APIError from err.
func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	ae, ok := AsAPIError(err)
	return ok && ae.Status == http.StatusNotFound
}

func readAPIError(resp *http.Response) error {
	ae := &APIError{Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &ae.ErrorResponse); err != nil {
		ae.ErrorResponse.Error = strings.TrimSpace(string(data))
	}
	return ae
}

// send performs one request. Network failures and 5xx answers come back
// marked retryable; the caller decides whether to retry.
func (c *Client) send(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.applyAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.setOnline(false)
		return retry.Retryable(fmt.Errorf("%w: %v", ErrOffline, err))
	}
	defer resp.Body.Close()
	c.setOnline(true)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := readAPIError(resp)
		if resp.StatusCode >= 500 {
			return retry.Retryable(apiErr)
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return retry.Do(ctx, c.retryConfig, func() error {
		return c.send(ctx, http.MethodGet, path, nil, out)
	})
}

// do sends a state-changing request exactly once.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	err := c.send(ctx, method, path, in, out)
	var re retry.RetryableError
	if errors.As(err, &re) {
		return re.Err
	}
	return err
}

// ─── Workspace ──────────────────────────────────────────────────────────────

// State returns the session's full workspace snapshot.
func (c *Client) State(ctx context.Context) (models.ProjectSnapshot, error) {
	var resp protocol.StateResponse
	err := c.get(ctx, "/api/v1/state", &resp)
	return resp.State, err
}

// SetProjectName renames the project.
func (c *Client) SetProjectName(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPut, "/api/v1/project", protocol.ProjectNameRequest{Name: name}, nil)
}

// Templates lists the built-in project templates.
func (c *Client) Templates(ctx context.Context) ([]protocol.TemplateInfo, error) {
	var out []protocol.TemplateInfo
	err := c.get(ctx, "/api/v1/templates", &out)
	return out, err
}

// ApplyTemplate replaces the project with a template.
func (c *Client) ApplyTemplate(ctx context.Context, id string) (models.ProjectSnapshot, error) {
	var resp protocol.StateResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/template", protocol.TemplateRequest{ID: id}, &resp)
	return resp.State, err
}

// CreateFile adds a file or folder under parentID ("" for the root).
func (c *Client) CreateFile(ctx context.Context, parentID, name string, kind models.NodeType) (models.FileNode, error) {
	var resp protocol.FileResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/files", protocol.CreateFileRequest{
		ParentID: parentID,
		Name:     name,
		Type:     kind,
	}, &resp)
	return resp.File, err
}

// File fetches one node.
func (c *Client) File(ctx context.Context, id string) (models.FileNode, error) {
	var resp protocol.FileResponse
	err := c.get(ctx, "/api/v1/files/"+url.PathEscape(id), &resp)
	return resp.File, err
}

// DeleteFile removes a node and its subtree.
func (c *Client) DeleteFile(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/files/"+url.PathEscape(id), nil, nil)
}

// Search runs a fuzzy quick-open query over file paths.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]protocol.SearchResult, error) {
	q := url.Values{"q": {query}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var resp protocol.SearchResponse
	err := c.get(ctx, "/api/v1/search?"+q.Encode(), &resp)
	return resp.Results, err
}

// OpenTab opens a file in an editor tab.
func (c *Client) OpenTab(ctx context.Context, fileID string) (models.EditorTab, error) {
	var resp protocol.TabResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/tabs", protocol.OpenTabRequest{FileID: fileID}, &resp)
	return resp.Tab, err
}

// CloseTab closes an editor tab.
func (c *Client) CloseTab(ctx context.Context, tabID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/tabs/"+url.PathEscape(tabID), nil, nil)
}

// UpdateContent replaces a tab's working content.
func (c *Client) UpdateContent(ctx context.Context, tabID, content string) (models.EditorTab, error) {
	var resp protocol.TabResponse
	err := c.do(ctx, http.MethodPut, "/api/v1/tabs/"+url.PathEscape(tabID)+"/content",
		protocol.UpdateContentRequest{Content: content}, &resp)
	return resp.Tab, err
}

// SaveTab checkpoints a tab into its file.
func (c *Client) SaveTab(ctx context.Context, tabID string) (models.EditorTab, error) {
	var resp protocol.TabResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/tabs/"+url.PathEscape(tabID)+"/save", nil, &resp)
	return resp.Tab, err
}

// RunTab executes a tab's content in the sandbox.
func (c *Client) RunTab(ctx context.Context, tabID, input string) (protocol.ExecuteResponse, error) {
	var resp protocol.ExecuteResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/tabs/"+url.PathEscape(tabID)+"/run",
		protocol.RunTabRequest{Input: input}, &resp)
	return resp, err
}

// SummarizeTab asks the model to explain a tab's content.
func (c *Client) SummarizeTab(ctx context.Context, tabID string) (protocol.SummarizeResponse, error) {
	var resp protocol.SummarizeResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/tabs/"+url.PathEscape(tabID)+"/summarize", nil, &resp)
	return resp, err
}

// ─── Terminal and remote calls ──────────────────────────────────────────────

// TerminalCommand runs one terminal line.
func (c *Client) TerminalCommand(ctx context.Context, line string) (protocol.TerminalCommandResponse, error) {
	var resp protocol.TerminalCommandResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/terminal/command", protocol.TerminalCommandRequest{Command: line}, &resp)
	return resp, err
}

// Execute runs code without touching the workspace.
func (c *Client) Execute(ctx context.Context, req protocol.ExecuteRequest) (protocol.ExecuteResponse, error) {
	var resp protocol.ExecuteResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/execute", req, &resp)
	return resp, err
}

// Summarize explains code without touching the workspace.
func (c *Client) Summarize(ctx context.Context, req protocol.SummarizeRequest) (protocol.SummarizeResponse, error) {
	var resp protocol.SummarizeResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/summarize", req, &resp)
	return resp, err
}

// ─── Snippets and notes ─────────────────────────────────────────────────────

// Snippets lists saved snippets, newest first.
func (c *Client) Snippets(ctx context.Context) ([]models.CodeSnippet, error) {
	var out []models.CodeSnippet
	err := c.get(ctx, "/api/v1/snippets", &out)
	return out, err
}

// AddSnippet saves a snippet.
func (c *Client) AddSnippet(ctx context.Context, req protocol.SnippetRequest) (models.CodeSnippet, error) {
	var out models.CodeSnippet
	err := c.do(ctx, http.MethodPost, "/api/v1/snippets", req, &out)
	return out, err
}

// DeleteSnippet removes a snippet.
func (c *Client) DeleteSnippet(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/snippets/"+url.PathEscape(id), nil, nil)
}

// Notes lists sticky notes, newest first.
func (c *Client) Notes(ctx context.Context) ([]models.StickyNote, error) {
	var out []models.StickyNote
	err := c.get(ctx, "/api/v1/notes", &out)
	return out, err
}

// AddNote creates a sticky note.
func (c *Client) AddNote(ctx context.Context, req protocol.NoteRequest) (models.StickyNote, error) {
	var out models.StickyNote
	err := c.do(ctx, http.MethodPost, "/api/v1/notes", req, &out)
	return out, err
}

// DeleteNote removes a sticky note.
func (c *Client) DeleteNote(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/notes/"+url.PathEscape(id), nil, nil)
}

// ─── Snapshots ──────────────────────────────────────────────────────────────

// Snapshots lists the session's saved snapshots.
func (c *Client) Snapshots(ctx context.Context) ([]protocol.SnapshotResponse, error) {
	var out []protocol.SnapshotResponse
	err := c.get(ctx, "/api/v1/snapshots", &out)
	return out, err
}

// SaveSnapshot stores the current workspace under name.
func (c *Client) SaveSnapshot(ctx context.Context, name string) (protocol.SnapshotResponse, error) {
	var out protocol.SnapshotResponse
	err := c.do(ctx, http.MethodPut, "/api/v1/snapshots/"+url.PathEscape(name), nil, &out)
	return out, err
}

// RestoreSnapshot loads a snapshot into the workspace.
func (c *Client) RestoreSnapshot(ctx context.Context, name string) (models.ProjectSnapshot, error) {
	var resp protocol.StateResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/snapshots/"+url.PathEscape(name)+"/restore", nil, &resp)
	return resp.State, err
}

// DeleteSnapshot removes a saved snapshot.
func (c *Client) DeleteSnapshot(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/snapshots/"+url.PathEscape(name), nil, nil)
}
