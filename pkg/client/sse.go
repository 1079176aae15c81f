package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/codenest/codenest/internal/logging"
	"github.com/codenest/codenest/pkg/protocol"
)

// SSEClient follows a session's workspace event stream and reconnects
// with backoff when the connection drops.
type SSEClient struct {
	baseURL      string
	httpClient   *http.Client
	reconnectMin time.Duration
	reconnectMax time.Duration
	mu           sync.RWMutex
	authToken    string
}

// NewSSEClient creates a new SSE client.
func NewSSEClient(baseURL string) *SSEClient {
	return &SSEClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 0, // streams stay open
		},
		reconnectMin: 1 * time.Second,
		reconnectMax: 30 * time.Second,
	}
}

// SetAuthToken sets the session token for the stream.
func (c *SSEClient) SetAuthToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authToken = token
}

// Subscribe connects to the event stream. Both channels close when ctx is
// done.
func (c *SSEClient) Subscribe(ctx context.Context) (<-chan protocol.WorkspaceEvent, <-chan error) {
	events := make(chan protocol.WorkspaceEvent, 100)
	errs := make(chan error, 1)

	go c.subscribeLoop(ctx, events, errs)

	return events, errs
}

func (c *SSEClient) subscribeLoop(ctx context.Context, events chan<- protocol.WorkspaceEvent, errs chan<- error) {
	defer close(events)
	defer close(errs)

	reconnectDelay := c.reconnectMin

	for {
		if ctx.Err() != nil {
			return
		}

		err := c.connect(ctx, events)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if ae, ok := AsAPIError(err); ok && ae.Status == http.StatusUnauthorized {
				errs <- err
				return
			}
			logging.Warn("event stream error",
				logging.Err(err),
				logging.Duration("reconnect_in", reconnectDelay))

			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
			}

			reconnectDelay *= 2
			if reconnectDelay > c.reconnectMax {
				reconnectDelay = c.reconnectMax
			}
			continue
		}

		reconnectDelay = c.reconnectMin
	}
}

func (c *SSEClient) connect(ctx context.Context, events chan<- protocol.WorkspaceEvent) error {
	url := c.baseURL + "/api/v1/events"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	c.mu.RLock()
	token := c.authToken
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readAPIError(resp)
	}

	logging.Debug("event stream connected", logging.String("url", url))

	scanner := bufio.NewScanner(resp.Body)
	var eventType, data string

	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			if data != "" {
				var event protocol.WorkspaceEvent
				if err := json.Unmarshal([]byte(data), &event); err != nil {
					logging.Debug("skipping malformed event", logging.Err(err))
				} else {
					if event.Type == "" {
						event.Type = eventType
					}
					select {
					case events <- event:
					case <-ctx.Done():
						return nil
					}
				}
			}
			eventType, data = "", ""
			continue
		}

		switch {
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read: %w", err)
	}

	return fmt.Errorf("connection closed")
}
