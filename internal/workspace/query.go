package workspace

import (
	"fmt"

	"github.com/sahilm/fuzzy"

	"github.com/codenest/codenest/pkg/models"
	"github.com/codenest/codenest/pkg/tree"
)

// SearchHit is one quick-open match over file paths.
type SearchHit struct {
	ID      string
	Path    string
	Score   int
	Matched []int
}

// exportNode converts an arena node into its nested form. Open files report
// their tab content. Callers must hold w.mu.
func (w *Workspace) exportNode(n *node) models.FileNode {
	out := models.FileNode{
		ID:   n.id,
		Name: n.name,
		Type: n.kind,
		Path: n.path,
	}
	if n.kind == models.TypeFile {
		out.Content = w.contentLocked(n)
		out.Extension = tree.Extension(n.name)
		return out
	}
	out.IsOpen = n.open
	out.Children = make([]*models.FileNode, 0, len(n.children))
	for _, id := range n.children {
		if c, ok := w.nodes[id]; ok {
			child := w.exportNode(c)
			out.Children = append(out.Children, &child)
		}
	}
	return out
}

func (w *Workspace) exportForest() []*models.FileNode {
	out := make([]*models.FileNode, 0, len(w.roots))
	for _, id := range w.roots {
		if n, ok := w.nodes[id]; ok {
			exported := w.exportNode(n)
			out = append(out, &exported)
		}
	}
	return out
}

func (w *Workspace) contentLocked(n *node) string {
	if i := w.tabIndex(n.id); i >= 0 {
		return w.tabs[i].Content
	}
	return n.content
}

// walk visits nodes in pre-order starting from ids.
func (w *Workspace) walk(ids []string, fn func(n *node) bool) bool {
	for _, id := range ids {
		n, ok := w.nodes[id]
		if !ok {
			continue
		}
		if !fn(n) {
			return false
		}
		if !w.walk(n.children, fn) {
			return false
		}
	}
	return true
}

// FindByID returns the node with the given id and its subtree.
func (w *Workspace) FindByID(id string) (models.FileNode, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, ok := w.nodes[id]
	if !ok {
		return models.FileNode{}, false
	}
	return w.exportNode(n), true
}

// FindByPath returns the first node with the given path in pre-order.
func (w *Workspace) FindByPath(path string) (models.FileNode, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var found *node
	w.walk(w.roots, func(n *node) bool {
		if n.path == path {
			found = n
			return false
		}
		return true
	})
	if found == nil {
		return models.FileNode{}, false
	}
	return w.exportNode(found), true
}

// Content returns the current content of a file: its tab's working copy
// when open, the stored content otherwise.
func (w *Workspace) Content(fileID string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, ok := w.nodes[fileID]
	if !ok {
		return "", fmt.Errorf("file %s: %w", fileID, ErrNotFound)
	}
	if n.kind != models.TypeFile {
		return "", fmt.Errorf("%s: %w", n.path, ErrNotAFile)
	}
	return w.contentLocked(n), nil
}

// CurrentFile returns the node referenced by the active file pointer.
func (w *Workspace) CurrentFile() (models.FileNode, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, ok := w.nodes[w.activeFile]
	if !ok {
		return models.FileNode{}, false
	}
	return w.exportNode(n), true
}

// Snapshot returns a consistent deep copy of the whole state.
func (w *Workspace) Snapshot() models.ProjectSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	tabs := make([]models.EditorTab, len(w.tabs))
	for i, t := range w.tabs {
		tabs[i] = t.EditorTab
	}
	lines := make([]models.TerminalLine, len(w.terminal))
	copy(lines, w.terminal)

	return models.ProjectSnapshot{
		Files:            w.exportForest(),
		OpenTabs:         tabs,
		ActiveFile:       w.activeFile,
		ActiveTab:        w.activeTab,
		TerminalHistory:  lines,
		IsTerminalOpen:   w.terminalOpen,
		CurrentDirectory: w.cwd,
		ProjectName:      w.projectName,
	}
}

// ProjectName returns the project display name.
func (w *Workspace) ProjectName() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.projectName
}

// Search fuzzy-matches pattern against the paths of all files, best first.
func (w *Workspace) Search(pattern string, limit int) []SearchHit {
	w.mu.Lock()
	var ids, paths []string
	w.walk(w.roots, func(n *node) bool {
		if n.kind == models.TypeFile {
			ids = append(ids, n.id)
			paths = append(paths, n.path)
		}
		return true
	})
	w.mu.Unlock()

	matches := fuzzy.Find(pattern, paths)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	hits := make([]SearchHit, len(matches))
	for i, m := range matches {
		hits[i] = SearchHit{
			ID:      ids[m.Index],
			Path:    m.Str,
			Score:   m.Score,
			Matched: m.MatchedIndexes,
		}
	}
	return hits
}

// ─── Request generations ────────────────────────────────────────────────────

// Request is the input captured for one remote call started from a tab.
type Request struct {
	TabID    string
	Seq      uint64
	Name     string
	Content  string
	Language string
}

// BeginRequest issues a new sequence number for tabID and captures the
// tab's current content. Earlier requests for the same tab become stale.
func (w *Workspace) BeginRequest(tabID string) (Request, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	i := w.tabIndex(tabID)
	if i < 0 {
		return Request{}, fmt.Errorf("tab %s: %w", tabID, ErrNotFound)
	}
	w.seq++
	t := w.tabs[i]
	t.seq = w.seq
	return Request{
		TabID:    t.ID,
		Seq:      t.seq,
		Name:     t.Name,
		Content:  t.Content,
		Language: t.Language,
	}, nil
}

// IsCurrent reports whether seq is the latest request issued for tabID.
// A closed tab has no current request.
func (w *Workspace) IsCurrent(tabID string, seq uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	i := w.tabIndex(tabID)
	return i >= 0 && w.tabs[i].seq == seq
}

// AppendIfCurrent appends terminal lines only when seq is still the latest
// request for tabID. It reports whether the lines were applied.
func (w *Workspace) AppendIfCurrent(tabID string, seq uint64, lines ...models.TerminalLine) ([]models.TerminalLine, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	i := w.tabIndex(tabID)
	if i < 0 || w.tabs[i].seq != seq {
		return nil, false
	}
	added := make([]models.TerminalLine, 0, len(lines))
	for _, l := range lines {
		if !l.Type.Valid() {
			continue
		}
		l.ID = w.newID()
		l.Timestamp = w.now()
		w.terminal = append(w.terminal, l)
		added = append(added, l)
	}
	return added, true
}
