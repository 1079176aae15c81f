// Package workspace holds the in-memory project state of one IDE session:
// the file tree, the open editor tabs, the active-selection pointers and the
// terminal transcript.
//
// Nodes live in an arena keyed by id with explicit parent and children
// indexes. The nested models.FileNode form only exists at the boundary
// (SetFiles, ReplaceTree, Snapshot). While a file has an open tab, the tab
// holds the authoritative content; the node record is refreshed when the tab
// is saved or closed.
package workspace

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codenest/codenest/pkg/models"
	"github.com/codenest/codenest/pkg/tree"
)

const (
	// DefaultProjectName is the project name of a fresh workspace.
	DefaultProjectName = "My Project"
	// DefaultDirectory is the terminal working directory of a fresh workspace.
	DefaultDirectory = "/"
	// WelcomeMessage is the single line left after the terminal is cleared.
	WelcomeMessage = "Welcome to the IDE Terminal!"
	welcomeLineID  = "1"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrNotAFile        = errors.New("not a file")
	ErrInvalidName     = errors.New("invalid name")
	ErrInvalidType     = errors.New("invalid node type")
	ErrInvalidTree     = errors.New("invalid tree")
	ErrInvalidLineType = errors.New("invalid terminal line type")
)

type node struct {
	id       string
	name     string
	kind     models.NodeType
	content  string
	path     string
	parent   string
	children []string
	open     bool
}

type tab struct {
	models.EditorTab
	seq uint64
}

// Workspace is the aggregate root for one session's project state.
// All methods are safe for concurrent use.
type Workspace struct {
	mu sync.Mutex

	nodes map[string]*node
	roots []string

	tabs       []*tab
	activeFile string
	activeTab  string

	terminal     []models.TerminalLine
	terminalOpen bool
	cwd          string
	projectName  string

	seq uint64

	now   func() time.Time
	newID func() string
}

// New creates an empty workspace with the default project name, working
// directory and welcome line.
func New() *Workspace {
	w := &Workspace{
		nodes:       make(map[string]*node),
		cwd:         DefaultDirectory,
		projectName: DefaultProjectName,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	w.terminal = []models.TerminalLine{w.welcomeLine()}
	return w
}

func (w *Workspace) welcomeLine() models.TerminalLine {
	return models.TerminalLine{
		ID:        welcomeLineID,
		Type:      models.LineOutput,
		Content:   WelcomeMessage,
		Timestamp: w.now(),
	}
}

// ─── Tree import ────────────────────────────────────────────────────────────

// importForest converts nested nodes into a fresh arena. Paths are derived
// from the structure; missing ids are generated.
func (w *Workspace) importForest(nodes []*models.FileNode) (map[string]*node, []string, error) {
	arena := make(map[string]*node)
	roots, err := w.importLevel(arena, nodes, "", "")
	if err != nil {
		return nil, nil, err
	}
	return arena, roots, nil
}

func (w *Workspace) importLevel(arena map[string]*node, nodes []*models.FileNode, parentID, parentPath string) ([]string, error) {
	ids := make([]string, 0, len(nodes))
	for _, in := range nodes {
		if in == nil {
			continue
		}
		if strings.TrimSpace(in.Name) == "" {
			return nil, fmt.Errorf("%w: node under %q has no name", ErrInvalidTree, parentPath)
		}
		kind := in.Type
		if kind == "" {
			kind = models.TypeFile
			if in.Children != nil {
				kind = models.TypeFolder
			}
		}
		if kind != models.TypeFile && kind != models.TypeFolder {
			return nil, fmt.Errorf("%w: %q has type %q", ErrInvalidTree, in.Name, in.Type)
		}
		if kind == models.TypeFile && len(in.Children) > 0 {
			return nil, fmt.Errorf("%w: file %q has children", ErrInvalidTree, in.Name)
		}

		id := in.ID
		if id == "" {
			id = w.newID()
		}
		if _, dup := arena[id]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidTree, id)
		}

		n := &node{
			id:     id,
			name:   in.Name,
			kind:   kind,
			path:   tree.BuildChildPath(parentPath, in.Name),
			parent: parentID,
		}
		if kind == models.TypeFile {
			n.content = in.Content
		} else {
			n.open = in.IsOpen
		}
		arena[id] = n

		if kind == models.TypeFolder {
			children, err := w.importLevel(arena, in.Children, id, n.path)
			if err != nil {
				return nil, err
			}
			n.children = children
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ReplaceTree discards the current tree and every open tab and installs
// nodes as the new tree. The terminal transcript is kept.
func (w *Workspace) ReplaceTree(nodes []*models.FileNode) error {
	arena, roots, err := w.importForest(nodes)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.nodes = arena
	w.roots = roots
	w.tabs = nil
	w.activeFile = ""
	w.activeTab = ""
	return nil
}

// SetFiles replaces the tree only. Open tabs are left as they are.
func (w *Workspace) SetFiles(nodes []*models.FileNode) error {
	arena, roots, err := w.importForest(nodes)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.nodes = arena
	w.roots = roots
	return nil
}

// SetProjectName sets the project display name.
func (w *Workspace) SetProjectName(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.projectName = name
}

// SetCurrentDirectory sets the terminal working directory.
func (w *Workspace) SetCurrentDirectory(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cwd = dir
}

// ToggleTerminal flips terminal visibility and returns the new value.
func (w *Workspace) ToggleTerminal() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.terminalOpen = !w.terminalOpen
	return w.terminalOpen
}

// ─── Tabs ───────────────────────────────────────────────────────────────────

func (w *Workspace) tabIndex(id string) int {
	for i, t := range w.tabs {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// OpenFile activates the tab for fileID, creating it from the node's stored
// content when it is not open yet. An already open tab keeps its working
// content.
func (w *Workspace) OpenFile(fileID string) (models.EditorTab, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if i := w.tabIndex(fileID); i >= 0 {
		w.activeFile = fileID
		w.activeTab = fileID
		return w.tabs[i].EditorTab, nil
	}

	n, ok := w.nodes[fileID]
	if !ok {
		return models.EditorTab{}, fmt.Errorf("file %s: %w", fileID, ErrNotFound)
	}
	if n.kind != models.TypeFile {
		return models.EditorTab{}, fmt.Errorf("%s: %w", n.path, ErrNotAFile)
	}

	t := &tab{EditorTab: models.EditorTab{
		ID:       n.id,
		Name:     n.name,
		Path:     n.path,
		Content:  n.content,
		Language: LanguageForFile(n.name),
	}}
	w.tabs = append(w.tabs, t)
	w.activeFile = fileID
	w.activeTab = fileID
	return t.EditorTab, nil
}

// removeTabs drops every tab for which drop returns true. When the active
// tab is dropped, activation falls to the last remaining tab, or none.
func (w *Workspace) removeTabs(drop func(t *tab) bool) int {
	kept := w.tabs[:0]
	removed := 0
	activeRemoved := false
	for _, t := range w.tabs {
		if drop(t) {
			removed++
			if t.ID == w.activeTab {
				activeRemoved = true
			}
			continue
		}
		kept = append(kept, t)
	}
	for i := len(kept); i < len(w.tabs); i++ {
		w.tabs[i] = nil
	}
	w.tabs = kept

	if activeRemoved {
		next := ""
		if len(w.tabs) > 0 {
			next = w.tabs[len(w.tabs)-1].ID
		}
		w.activeTab = next
		w.activeFile = next
	}
	return removed
}

// CloseTab closes a tab without prompting. Its working content is written
// back to the file node; the dirty flag is discarded.
func (w *Workspace) CloseTab(tabID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	i := w.tabIndex(tabID)
	if i < 0 {
		return fmt.Errorf("tab %s: %w", tabID, ErrNotFound)
	}
	if n, ok := w.nodes[tabID]; ok && n.kind == models.TypeFile {
		n.content = w.tabs[i].Content
	}
	w.removeTabs(func(t *tab) bool { return t.ID == tabID })
	return nil
}

// UpdateTabContent overwrites a tab's working content and marks it dirty.
func (w *Workspace) UpdateTabContent(tabID, content string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	i := w.tabIndex(tabID)
	if i < 0 {
		return fmt.Errorf("tab %s: %w", tabID, ErrNotFound)
	}
	w.tabs[i].Content = content
	w.tabs[i].IsDirty = true
	return nil
}

// SaveFile clears the dirty flag and checkpoints the tab content into the
// file node.
func (w *Workspace) SaveFile(tabID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	i := w.tabIndex(tabID)
	if i < 0 {
		return fmt.Errorf("tab %s: %w", tabID, ErrNotFound)
	}
	w.tabs[i].IsDirty = false
	if n, ok := w.nodes[tabID]; ok && n.kind == models.TypeFile {
		n.content = w.tabs[i].Content
	}
	return nil
}

// SetActiveTab points both active pointers at tabID. The id is not checked.
func (w *Workspace) SetActiveTab(tabID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.activeTab = tabID
	w.activeFile = tabID
}

// Tab returns a copy of an open tab.
func (w *Workspace) Tab(tabID string) (models.EditorTab, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if i := w.tabIndex(tabID); i >= 0 {
		return w.tabs[i].EditorTab, true
	}
	return models.EditorTab{}, false
}

// CurrentTab returns the active tab, if any.
func (w *Workspace) CurrentTab() (models.EditorTab, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.activeTab == "" {
		return models.EditorTab{}, false
	}
	if i := w.tabIndex(w.activeTab); i >= 0 {
		return w.tabs[i].EditorTab, true
	}
	return models.EditorTab{}, false
}

// ─── Tree mutations ─────────────────────────────────────────────────────────

// CreateFile adds a file or folder. An empty parentID appends a root-level
// node; otherwise the node is appended to that folder, which is forced open.
func (w *Workspace) CreateFile(parentID, name string, kind models.NodeType) (models.FileNode, error) {
	if strings.TrimSpace(name) == "" || strings.Contains(name, "/") {
		return models.FileNode{}, fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	if kind != models.TypeFile && kind != models.TypeFolder {
		return models.FileNode{}, fmt.Errorf("%q: %w", kind, ErrInvalidType)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	parentPath := ""
	var parent *node
	if parentID != "" {
		p, ok := w.nodes[parentID]
		if !ok || p.kind != models.TypeFolder {
			return models.FileNode{}, fmt.Errorf("folder %s: %w", parentID, ErrNotFound)
		}
		parent = p
		parentPath = p.path
	}

	n := &node{
		id:     w.newID(),
		name:   name,
		kind:   kind,
		path:   tree.BuildChildPath(parentPath, name),
		parent: parentID,
	}
	w.nodes[n.id] = n
	if parent == nil {
		w.roots = append(w.roots, n.id)
	} else {
		parent.children = append(parent.children, n.id)
		parent.open = true
	}
	return w.exportNode(n), nil
}

// DeleteFile removes a node and its whole subtree and closes every tab
// that showed a removed file.
func (w *Workspace) DeleteFile(fileID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, ok := w.nodes[fileID]
	if !ok {
		return fmt.Errorf("file %s: %w", fileID, ErrNotFound)
	}

	if n.parent == "" {
		w.roots = removeID(w.roots, fileID)
	} else if p, ok := w.nodes[n.parent]; ok {
		p.children = removeID(p.children, fileID)
	}

	removed := make(map[string]struct{})
	w.collectSubtree(fileID, removed)
	for id := range removed {
		delete(w.nodes, id)
	}

	w.removeTabs(func(t *tab) bool {
		_, gone := removed[t.ID]
		return gone
	})
	return nil
}

func (w *Workspace) collectSubtree(id string, into map[string]struct{}) {
	n, ok := w.nodes[id]
	if !ok {
		return
	}
	into[id] = struct{}{}
	for _, c := range n.children {
		w.collectSubtree(c, into)
	}
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}

// ToggleFolder flips the open flag of a folder.
func (w *Workspace) ToggleFolder(folderID string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, ok := w.nodes[folderID]
	if !ok || n.kind != models.TypeFolder {
		return false, fmt.Errorf("folder %s: %w", folderID, ErrNotFound)
	}
	n.open = !n.open
	return n.open, nil
}

// ─── Terminal ───────────────────────────────────────────────────────────────

// AddTerminalLine appends a line with a fresh id and the current time.
func (w *Workspace) AddTerminalLine(kind models.LineType, content string) (models.TerminalLine, error) {
	if !kind.Valid() {
		return models.TerminalLine{}, fmt.Errorf("%q: %w", kind, ErrInvalidLineType)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	line := models.TerminalLine{
		ID:        w.newID(),
		Type:      kind,
		Content:   content,
		Timestamp: w.now(),
	}
	w.terminal = append(w.terminal, line)
	return line, nil
}

// ClearTerminal resets the transcript to the welcome line.
func (w *Workspace) ClearTerminal() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.terminal = []models.TerminalLine{w.welcomeLine()}
}

// Terminal returns a copy of the transcript.
func (w *Workspace) Terminal() []models.TerminalLine {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]models.TerminalLine, len(w.terminal))
	copy(out, w.terminal)
	return out
}
