package notes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/codenest/codenest/pkg/models"
	"github.com/codenest/codenest/pkg/protocol"
)

// Default geometry of a new sticky note.
const (
	DefaultNoteX      = 100
	DefaultNoteY      = 100
	DefaultNoteWidth  = 240
	DefaultNoteHeight = 160
)

// ErrInvalid is returned for records that fail validation.
var ErrInvalid = errors.New("invalid record")

// Service manages snippets and notes on top of a RecordStore. Every
// mutation is written through before it returns.
type Service struct {
	store RecordStore
	now   func() time.Time
	newID func() string
}

// NewService creates a notes service.
func NewService(store RecordStore) *Service {
	return &Service{store: store, now: time.Now, newID: uuid.NewString}
}

func (s *Service) put(ctx context.Context, collection, owner, id string, created time.Time, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", collection, err)
	}
	return s.store.Put(ctx, collection, owner, id, created, data)
}

func load[T any](ctx context.Context, store RecordStore, collection, owner, id string) (T, error) {
	var v T
	data, err := store.Get(ctx, collection, owner, id)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return v, nil
}

func list[T any](ctx context.Context, store RecordStore, collection, owner string) ([]T, error) {
	raw, err := store.List(ctx, collection, owner)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raw))
	for _, data := range raw {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", collection, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// ─── Snippets ───────────────────────────────────────────────────────────────

// ListSnippets returns an owner's snippets, newest first.
func (s *Service) ListSnippets(ctx context.Context, owner string) ([]models.CodeSnippet, error) {
	return list[models.CodeSnippet](ctx, s.store, Snippets, owner)
}

// AddSnippet stores a new snippet with a fresh id and timestamps.
func (s *Service) AddSnippet(ctx context.Context, owner string, req protocol.SnippetRequest) (models.CodeSnippet, error) {
	if strings.TrimSpace(req.Code) == "" {
		return models.CodeSnippet{}, fmt.Errorf("%w: code is required", ErrInvalid)
	}
	now := s.now().UTC()
	sn := models.CodeSnippet{
		ID:        s.newID(),
		Title:     req.Title,
		Code:      req.Code,
		Language:  req.Language,
		Tags:      req.Tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.put(ctx, Snippets, owner, sn.ID, sn.CreatedAt, sn); err != nil {
		return models.CodeSnippet{}, err
	}
	return sn, nil
}

// UpdateSnippet merges the set fields of patch and bumps UpdatedAt.
func (s *Service) UpdateSnippet(ctx context.Context, owner, id string, patch protocol.SnippetPatch) (models.CodeSnippet, error) {
	sn, err := load[models.CodeSnippet](ctx, s.store, Snippets, owner, id)
	if err != nil {
		return models.CodeSnippet{}, err
	}
	if patch.Title != nil {
		sn.Title = *patch.Title
	}
	if patch.Code != nil {
		sn.Code = *patch.Code
	}
	if patch.Language != nil {
		sn.Language = *patch.Language
	}
	if patch.Tags != nil {
		sn.Tags = *patch.Tags
	}
	sn.UpdatedAt = s.now().UTC()
	if err := s.put(ctx, Snippets, owner, sn.ID, sn.CreatedAt, sn); err != nil {
		return models.CodeSnippet{}, err
	}
	return sn, nil
}

// DeleteSnippet removes a snippet.
func (s *Service) DeleteSnippet(ctx context.Context, owner, id string) error {
	return s.store.Delete(ctx, Snippets, owner, id)
}

// ─── Sticky notes ───────────────────────────────────────────────────────────

// ListNotes returns an owner's notes, newest first.
func (s *Service) ListNotes(ctx context.Context, owner string) ([]models.StickyNote, error) {
	return list[models.StickyNote](ctx, s.store, Notes, owner)
}

// AddNote stores a new note at the default position and size.
func (s *Service) AddNote(ctx context.Context, owner string, req protocol.NoteRequest) (models.StickyNote, error) {
	n := models.StickyNote{
		ID:        s.newID(),
		Content:   req.Content,
		Color:     req.Color,
		CreatedAt: s.now().UTC(),
		X:         DefaultNoteX,
		Y:         DefaultNoteY,
		Width:     DefaultNoteWidth,
		Height:    DefaultNoteHeight,
	}
	if err := s.put(ctx, Notes, owner, n.ID, n.CreatedAt, n); err != nil {
		return models.StickyNote{}, err
	}
	return n, nil
}

// UpdateNote merges the set fields of patch.
func (s *Service) UpdateNote(ctx context.Context, owner, id string, patch protocol.NotePatch) (models.StickyNote, error) {
	n, err := load[models.StickyNote](ctx, s.store, Notes, owner, id)
	if err != nil {
		return models.StickyNote{}, err
	}
	if patch.Content != nil {
		n.Content = *patch.Content
	}
	if patch.Color != nil {
		n.Color = *patch.Color
	}
	if patch.X != nil {
		n.X = *patch.X
	}
	if patch.Y != nil {
		n.Y = *patch.Y
	}
	if patch.Width != nil {
		if *patch.Width <= 0 {
			return models.StickyNote{}, fmt.Errorf("%w: width must be positive", ErrInvalid)
		}
		n.Width = *patch.Width
	}
	if patch.Height != nil {
		if *patch.Height <= 0 {
			return models.StickyNote{}, fmt.Errorf("%w: height must be positive", ErrInvalid)
		}
		n.Height = *patch.Height
	}
	if err := s.put(ctx, Notes, owner, n.ID, n.CreatedAt, n); err != nil {
		return models.StickyNote{}, err
	}
	return n, nil
}

// DeleteNote removes a note.
func (s *Service) DeleteNote(ctx context.Context, owner, id string) error {
	return s.store.Delete(ctx, Notes, owner, id)
}
