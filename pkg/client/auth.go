package client

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/codenest/codenest/internal/logging"
	"github.com/codenest/codenest/pkg/protocol"
)

// TokenFile holds a saved session token.
type TokenFile struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Server    string    `json:"server"`
	SessionID string    `json:"session_id"`
}

// IsExpired returns true if the token has expired (with optional margin).
func (t *TokenFile) IsExpired(margin time.Duration) bool {
	return time.Now().Add(margin).After(t.ExpiresAt)
}

// StartSession creates a fresh workspace on the server and switches the
// client to its token.
func (c *Client) StartSession(ctx context.Context) (*TokenFile, error) {
	var resp protocol.SessionResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/sessions", nil, &resp); err != nil {
		return nil, err
	}
	c.SetAuthToken(resp.Token)
	logging.Debug("session started", logging.Session(resp.SessionID))

	return &TokenFile{
		Token:     resp.Token,
		ExpiresAt: resp.ExpiresAt,
		Server:    c.baseURL,
		SessionID: resp.SessionID,
	}, nil
}

// EndSession drops the workspace on the server. The token is cleared
// whether or not the server still knew the session.
func (c *Client) EndSession(ctx context.Context) error {
	err := c.do(ctx, http.MethodDelete, "/api/v1/sessions", nil, nil)
	c.SetAuthToken("")
	if IsNotFound(err) {
		return nil
	}
	return err
}

// TokenFilePath returns the default path for the token file.
func TokenFilePath() string {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, _ := os.UserHomeDir()
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, "CodeNest", "token.json")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "codenest", "token.json")
}

func tokenPath(path string) string {
	if path == "" {
		return TokenFilePath()
	}
	return path
}

// SaveToken writes a token file. An empty path uses TokenFilePath.
func SaveToken(path string, tf *TokenFile) error {
	path = tokenPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// LoadToken reads a token file. An empty path uses TokenFilePath.
func LoadToken(path string) (*TokenFile, error) {
	data, err := os.ReadFile(tokenPath(path))
	if err != nil {
		return nil, err
	}
	var tf TokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, err
	}
	return &tf, nil
}

// DeleteToken removes a token file. A missing file is not an error.
func DeleteToken(path string) error {
	err := os.Remove(tokenPath(path))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
