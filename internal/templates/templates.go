// Package templates provides the built-in starter projects.
package templates

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/codenest/codenest/internal/workspace"
	"github.com/codenest/codenest/pkg/models"
	"github.com/codenest/codenest/pkg/tree"
)

//go:embed templates.yaml
var templatesYAML []byte

// ErrUnknownTemplate is returned for a template id that is not built in.
var ErrUnknownTemplate = errors.New("unknown template")

// Template is a named starter project.
type Template struct {
	ID          string             `yaml:"id"`
	Name        string             `yaml:"name"`
	Description string             `yaml:"description"`
	Main        string             `yaml:"main"`
	Files       []*models.FileNode `yaml:"files"`
}

var (
	loadOnce sync.Once
	builtins []Template
	loadErr  error
)

func load() ([]Template, error) {
	loadOnce.Do(func() {
		var ts []Template
		if err := yaml.Unmarshal(templatesYAML, &ts); err != nil {
			loadErr = fmt.Errorf("parse templates: %w", err)
			return
		}
		builtins = ts
	})
	return builtins, loadErr
}

// List returns the built-in templates in display order.
func List() ([]Template, error) {
	ts, err := load()
	if err != nil {
		return nil, err
	}
	out := make([]Template, len(ts))
	copy(out, ts)
	return out, nil
}

// Get returns a built-in template by id.
func Get(id string) (Template, error) {
	ts, err := load()
	if err != nil {
		return Template{}, err
	}
	for _, t := range ts {
		if t.ID == id {
			return t, nil
		}
	}
	return Template{}, fmt.Errorf("%q: %w", id, ErrUnknownTemplate)
}

// Instantiate returns a copy of the template's files with fresh ids and
// paths derived from the structure.
func (t Template) Instantiate() []*models.FileNode {
	files := tree.Clone(t.Files)
	assign(files, "")
	return files
}

func assign(nodes []*models.FileNode, parentPath string) {
	for _, n := range nodes {
		n.ID = uuid.NewString()
		n.Path = tree.BuildChildPath(parentPath, n.Name)
		if n.Type == models.TypeFile {
			n.Extension = tree.Extension(n.Name)
		}
		assign(n.Children, n.Path)
	}
}

// Apply replaces the workspace tree with a fresh copy of the template,
// renames the project and opens the template's main file.
func Apply(ws *workspace.Workspace, id string) (Template, error) {
	t, err := Get(id)
	if err != nil {
		return Template{}, err
	}
	if err := ws.ReplaceTree(t.Instantiate()); err != nil {
		return Template{}, fmt.Errorf("load template %s: %w", id, err)
	}
	ws.SetProjectName(t.Name)

	if t.Main != "" {
		if main, ok := ws.FindByPath(t.Main); ok {
			if _, err := ws.OpenFile(main.ID); err != nil {
				return Template{}, fmt.Errorf("open %s: %w", t.Main, err)
			}
		}
	}
	return t, nil
}
