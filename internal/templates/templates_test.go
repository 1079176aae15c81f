package templates

import (
	"errors"
	"strings"
	"testing"

	"github.com/codenest/codenest/internal/workspace"
	"github.com/codenest/codenest/pkg/models"
	"github.com/codenest/codenest/pkg/tree"
)

func TestListBuiltins(t *testing.T) {
	ts, err := List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"typescript", "python", "java", "cpp", "c"}
	if len(ts) != len(want) {
		t.Fatalf("got %d templates, want %d", len(ts), len(want))
	}
	for i, id := range want {
		if ts[i].ID != id {
			t.Errorf("template %d = %q, want %q", i, ts[i].ID, id)
		}
		if ts[i].Main == "" || tree.FindByPath(ts[i].Instantiate(), ts[i].Main) == nil {
			t.Errorf("%s: main file %q not in tree", id, ts[i].Main)
		}
	}
}

func TestInstantiateFreshIDs(t *testing.T) {
	tmpl, err := Get("cpp")
	if err != nil {
		t.Fatal(err)
	}
	a := tmpl.Instantiate()
	b := tmpl.Instantiate()

	seen := map[string]bool{}
	tree.Walk(a, func(n *models.FileNode) bool {
		if n.ID == "" {
			t.Errorf("%s has no id", n.Name)
		}
		seen[n.ID] = true
		return true
	})
	tree.Walk(b, func(n *models.FileNode) bool {
		if seen[n.ID] {
			t.Errorf("id %s reused across instantiations", n.ID)
		}
		return true
	})

	if n := tree.FindByPath(a, "src/main.cpp"); n == nil || n.Extension != "cpp" {
		t.Errorf("src/main.cpp missing or wrong extension: %+v", n)
	}
	if tmpl.Files[0].ID != "" {
		t.Error("Instantiate mutated the template")
	}
}

func TestMakefileKeepsTab(t *testing.T) {
	tmpl, err := Get("c")
	if err != nil {
		t.Fatal(err)
	}
	mk := tree.FindByPath(tmpl.Instantiate(), "Makefile")
	if mk == nil {
		t.Fatal("Makefile missing")
	}
	want := "c_project: src/main.c\n\t$(CC)"
	if !strings.Contains(mk.Content, want) {
		t.Errorf("Makefile recipe lost its tab: %q", mk.Content)
	}
}

func TestApply(t *testing.T) {
	ws := workspace.New()
	if _, err := ws.AddTerminalLine(models.LineCommand, "ls"); err != nil {
		t.Fatal(err)
	}

	if _, err := Apply(ws, "python"); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	s := ws.Snapshot()
	if s.ProjectName != "Python" {
		t.Errorf("project name %q", s.ProjectName)
	}
	if len(s.Files) != 3 {
		t.Errorf("files = %d, want 3", len(s.Files))
	}
	tab, ok := ws.CurrentTab()
	if !ok || tab.Name != "main.py" || tab.Language != "python" {
		t.Errorf("main.py not opened: %+v", tab)
	}
	if len(s.TerminalHistory) != 2 {
		t.Errorf("terminal history touched: %d lines", len(s.TerminalHistory))
	}

	if _, err := Apply(ws, "java"); err != nil {
		t.Fatal(err)
	}
	s = ws.Snapshot()
	if len(s.OpenTabs) != 1 || s.OpenTabs[0].Path != "src/main/java/com/example/Main.java" {
		t.Errorf("tabs after second template: %+v", s.OpenTabs)
	}
}

func TestApplyUnknown(t *testing.T) {
	ws := workspace.New()
	if _, err := Apply(ws, "haskell"); !errors.Is(err, ErrUnknownTemplate) {
		t.Errorf("expected ErrUnknownTemplate, got %v", err)
	}
	if ws.ProjectName() != workspace.DefaultProjectName {
		t.Error("project renamed on failed template load")
	}
}
