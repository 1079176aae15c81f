// Package snapshot saves and restores whole-project snapshots in object
// storage under projects/<session>/<name>.json.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/codenest/codenest/internal/logging"
	"github.com/codenest/codenest/internal/metrics"
	"github.com/codenest/codenest/internal/storage"
	"github.com/codenest/codenest/internal/workspace"
	"github.com/codenest/codenest/pkg/models"
	"github.com/codenest/codenest/pkg/retry"
	"github.com/codenest/codenest/pkg/tree"
)

var (
	ErrNotFound    = errors.New("snapshot not found")
	ErrInvalidName = errors.New("invalid snapshot name")
)

const maxSnapshotSize = 32 << 20

var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// Info describes a stored snapshot.
type Info struct {
	Name    string    `json:"name"`
	Key     string    `json:"key"`
	Size    int64     `json:"size"`
	SavedAt time.Time `json:"savedAt"`
}

// Store reads and writes snapshots through a storage backend.
type Store struct {
	backend storage.Backend
	retry   retry.Config
	now     func() time.Time
}

// NewStore creates a snapshot store. Writes are retried with the default
// backoff.
func NewStore(backend storage.Backend) *Store {
	cfg := retry.DefaultConfig()
	cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
		logging.Warn("snapshot: retrying write",
			zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
	}
	return &Store{backend: backend, retry: cfg, now: time.Now}
}

// Key returns the object key of a snapshot.
func Key(session, name string) string {
	return "projects/" + session + "/" + name + ".json"
}

func checkName(name string) error {
	if !validName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Save writes snap under name, replacing an earlier snapshot of that name.
func (s *Store) Save(ctx context.Context, session, name string, snap models.ProjectSnapshot) (Info, error) {
	if err := checkName(name); err != nil {
		return Info{}, err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return Info{}, fmt.Errorf("marshal snapshot: %w", err)
	}

	key := Key(session, name)
	err = retry.Do(ctx, s.retry, func() error {
		if err := s.backend.PutObject(ctx, key, bytes.NewReader(data), int64(len(data))); err != nil {
			if ctx.Err() != nil {
				return err
			}
			return retry.Retryable(err)
		}
		return nil
	})
	metrics.RecordSnapshot("save", len(data), err == nil)
	if err != nil {
		return Info{}, fmt.Errorf("save snapshot %s: %w", name, err)
	}

	logging.Info("snapshot saved", logging.Session(session),
		zap.String("name", name), zap.Int("size", len(data)), zap.Int("nodes", tree.CountNodes(snap.Files)),
		zap.String("backend", s.backend.Type()))
	return Info{Name: name, Key: key, Size: int64(len(data)), SavedAt: s.now().UTC()}, nil
}

// Load reads a snapshot.
func (s *Store) Load(ctx context.Context, session, name string) (models.ProjectSnapshot, error) {
	var snap models.ProjectSnapshot
	if err := checkName(name); err != nil {
		return snap, err
	}

	rc, _, err := s.backend.GetObject(ctx, Key(session, name))
	if err != nil {
		metrics.RecordSnapshot("load", 0, false)
		if errors.Is(err, fs.ErrNotExist) {
			return snap, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return snap, fmt.Errorf("load snapshot %s: %w", name, err)
	}
	defer rc.Close()

	if err := json.NewDecoder(io.LimitReader(rc, maxSnapshotSize)).Decode(&snap); err != nil {
		metrics.RecordSnapshot("load", 0, false)
		return snap, fmt.Errorf("decode snapshot %s: %w", name, err)
	}
	metrics.RecordSnapshot("load", 0, true)
	return snap, nil
}

// List returns a session's snapshots, most recently saved first.
func (s *Store) List(ctx context.Context, session string) ([]Info, error) {
	prefix := "projects/" + session + "/"
	objs, err := s.backend.ListObjects(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	out := make([]Info, 0, len(objs))
	for _, o := range objs {
		name, ok := strings.CutSuffix(strings.TrimPrefix(o.Key, prefix), ".json")
		if !ok || strings.Contains(name, "/") {
			continue
		}
		out = append(out, Info{Name: name, Key: o.Key, Size: o.Size, SavedAt: o.LastModified})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SavedAt.After(out[j].SavedAt) })
	return out, nil
}

// Delete removes a snapshot.
func (s *Store) Delete(ctx context.Context, session, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	key := Key(session, name)
	ok, err := s.backend.ObjectExists(ctx, key)
	if err != nil {
		return fmt.Errorf("delete snapshot %s: %w", name, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err := s.backend.DeleteObject(ctx, key); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", name, err)
	}
	return nil
}

// Restore loads a snapshot into ws: the tree, project name and working
// directory are replaced and the saved tabs are reopened in order. The
// terminal transcript is kept.
func (s *Store) Restore(ctx context.Context, ws *workspace.Workspace, session, name string) (models.ProjectSnapshot, error) {
	snap, err := s.Load(ctx, session, name)
	if err != nil {
		return models.ProjectSnapshot{}, err
	}
	if err := ws.ReplaceTree(snap.Files); err != nil {
		return models.ProjectSnapshot{}, fmt.Errorf("restore %s: %w", name, err)
	}
	ws.SetProjectName(snap.ProjectName)
	if snap.CurrentDirectory != "" {
		ws.SetCurrentDirectory(snap.CurrentDirectory)
	}

	for _, tab := range snap.OpenTabs {
		if _, err := ws.OpenFile(tab.ID); err != nil {
			logging.Debug("snapshot: saved tab not reopened", zap.String("tab", tab.ID), zap.Error(err))
			continue
		}
		if tab.IsDirty {
			ws.UpdateTabContent(tab.ID, tab.Content)
		}
	}
	if snap.ActiveTab != "" {
		if _, ok := ws.Tab(snap.ActiveTab); ok {
			ws.SetActiveTab(snap.ActiveTab)
		}
	}
	return ws.Snapshot(), nil
}
