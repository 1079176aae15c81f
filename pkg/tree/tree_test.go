package tree

import (
	"testing"

	"github.com/codenest/codenest/pkg/models"
)

func sampleForest() []*models.FileNode {
	return []*models.FileNode{
		{ID: "id-a", Name: "a.txt", Path: "a.txt", Type: models.TypeFile},
		{ID: "id-src", Name: "src", Path: "src", Type: models.TypeFolder, Children: []*models.FileNode{
			{ID: "id-b", Name: "b.ts", Path: "src/b.ts", Type: models.TypeFile},
			{ID: "id-lib", Name: "lib", Path: "src/lib", Type: models.TypeFolder, Children: []*models.FileNode{
				{ID: "id-c", Name: "c.py", Path: "src/lib/c.py", Type: models.TypeFile},
			}},
		}},
	}
}

func TestCountNodes(t *testing.T) {
	if got := CountNodes(sampleForest()); got != 5 {
		t.Errorf("CountNodes = %d, want 5", got)
	}
	if got := CountNodes(nil); got != 0 {
		t.Errorf("CountNodes(nil) = %d, want 0", got)
	}
}

func TestBuildChildPath(t *testing.T) {
	tests := []struct {
		parent, name, want string
	}{
		{"", "main.py", "main.py"},
		{"src", "index.ts", "src/index.ts"},
		{"src/lib", "c.py", "src/lib/c.py"},
	}
	for _, tt := range tests {
		if got := BuildChildPath(tt.parent, tt.name); got != tt.want {
			t.Errorf("BuildChildPath(%q, %q) = %q, want %q", tt.parent, tt.name, got, tt.want)
		}
	}
}

func TestExtension(t *testing.T) {
	tests := []struct {
		name, want string
	}{
		{"main.py", "py"},
		{"Main.JAVA", "java"},
		{"archive.tar.gz", "gz"},
		{"Makefile", "makefile"},
	}
	for _, tt := range tests {
		if got := Extension(tt.name); got != tt.want {
			t.Errorf("Extension(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := sampleForest()
	cp := Clone(orig)
	cp[1].Children[0].Content = "changed"
	if orig[1].Children[0].Content != "" {
		t.Error("Clone shares children with the original")
	}
}
