// Package events fans workspace change notifications out to SSE subscribers.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/codenest/codenest/internal/metrics"
	"github.com/codenest/codenest/pkg/protocol"
)

const (
	EventProject  = "project"
	EventFiles    = "files"
	EventTabs     = "tabs"
	EventContent  = "content"
	EventTerminal = "terminal"
	EventSnapshot = "snapshot"
	EventSnippets = "snippets"
	EventNotes    = "notes"
)

// subscriberBuffer is the per-subscriber queue depth before events are dropped.
const subscriberBuffer = 64

// Event is a change inside one session's workspace.
type Event struct {
	Session   string
	Type      string
	ID        string
	Timestamp int64
}

// Broadcaster manages SSE subscribers and publishes events.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[chan Event]string
}

// NewBroadcaster creates a new event broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[chan Event]string),
	}
}

// Subscribe adds a subscriber for one session and returns its event channel.
// The caller must call Unsubscribe when done.
func (b *Broadcaster) Subscribe(session string) chan Event {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	b.subscribers[ch] = session
	n := len(b.subscribers)
	b.mu.Unlock()
	metrics.SetSSEConnectionsActive(int64(n))
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
	n := len(b.subscribers)
	b.mu.Unlock()
	metrics.SetSSEConnectionsActive(int64(n))
}

// Publish delivers an event to the subscribers of its session. Non-blocking:
// drops events for slow consumers.
func (b *Broadcaster) Publish(event Event) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch, session := range b.subscribers {
		if session != event.Session {
			continue
		}
		select {
		case ch <- event:
		default:
			// Drop event for slow consumer
		}
	}
	metrics.RecordSSEEvent(event.Type)
}

// Notify is shorthand for publishing a change of kind typ on a session.
func (b *Broadcaster) Notify(session, typ, id string) {
	b.Publish(Event{Session: session, Type: typ, ID: id})
}

// Count returns the current number of subscribers.
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// MarshalEvent serializes an event to its wire form. The session id is not sent.
func MarshalEvent(e Event) ([]byte, error) {
	return json.Marshal(protocol.WorkspaceEvent{
		Type:      e.Type,
		ID:        e.ID,
		Timestamp: e.Timestamp,
	})
}
