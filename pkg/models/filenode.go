// Package models contains the data types shared by the server, the CLI and
// the API wire format.
package models

import "time"

// NodeType distinguishes files from folders.
type NodeType string

const (
	TypeFile   NodeType = "file"
	TypeFolder NodeType = "folder"
)

// FileNode represents a file or folder in a project tree.
type FileNode struct {
	ID        string      `json:"id" yaml:"id,omitempty"`
	Name      string      `json:"name" yaml:"name"`
	Type      NodeType    `json:"type" yaml:"type"`
	Content   string      `json:"content,omitempty" yaml:"content,omitempty"`
	Children  []*FileNode `json:"children,omitempty" yaml:"children,omitempty"`
	Path      string      `json:"path" yaml:"path,omitempty"`
	Extension string      `json:"extension,omitempty" yaml:"-"`
	IsOpen    bool        `json:"isOpen,omitempty" yaml:"open,omitempty"`
}

// IsDir reports whether the node is a folder.
func (n *FileNode) IsDir() bool {
	return n.Type == TypeFolder
}

// EditorTab is an open, independently edited view of one file.
// Its ID is the ID of the file it shows.
type EditorTab struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	Content  string `json:"content"`
	IsDirty  bool   `json:"isDirty"`
	Language string `json:"language"`
}

// LineType classifies a terminal line.
type LineType string

const (
	LineCommand LineType = "command"
	LineOutput  LineType = "output"
	LineError   LineType = "error"
)

// Valid reports whether t is one of the known line types.
func (t LineType) Valid() bool {
	switch t {
	case LineCommand, LineOutput, LineError:
		return true
	}
	return false
}

// TerminalLine is one immutable entry in the terminal transcript.
type TerminalLine struct {
	ID        string    `json:"id"`
	Type      LineType  `json:"type"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ProjectSnapshot is a consistent copy of a workspace's state.
type ProjectSnapshot struct {
	Files            []*FileNode    `json:"files"`
	OpenTabs         []EditorTab    `json:"openTabs"`
	ActiveFile       string         `json:"activeFile,omitempty"`
	ActiveTab        string         `json:"activeTab,omitempty"`
	TerminalHistory  []TerminalLine `json:"terminalHistory"`
	IsTerminalOpen   bool           `json:"isTerminalOpen"`
	CurrentDirectory string         `json:"currentDirectory"`
	ProjectName      string         `json:"projectName"`
}

// CodeSnippet is a saved piece of code.
type CodeSnippet struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Code      string    `json:"code"`
	Language  string    `json:"language"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StickyNote is a free-floating note with a position and size on screen.
type StickyNote struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
}
