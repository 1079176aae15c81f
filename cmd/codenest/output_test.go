package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/codenest/codenest/pkg/models"
)

func TestWriteJSONQuery(t *testing.T) {
	state := models.ProjectSnapshot{
		ProjectName: "demo",
		Files: []*models.FileNode{
			{ID: "a", Name: "main.py", Path: "main.py", Type: models.TypeFile},
			{ID: "b", Name: "src", Path: "src", Type: models.TypeFolder},
		},
	}

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"string result prints raw", "projectName", "demo\n"},
		{"projection", "files[?type=='file'].name", "[\n  \"main.py\"\n]\n"},
		{"no query", "", `"projectName": "demo"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := writeJSON(&buf, state, tt.query); err != nil {
				t.Fatal(err)
			}
			if tt.query == "" {
				if !strings.Contains(buf.String(), tt.want) {
					t.Errorf("output %q", buf.String())
				}
				return
			}
			if buf.String() != tt.want {
				t.Errorf("got %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestWriteJSONBadQuery(t *testing.T) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, map[string]int{"a": 1}, "[[["); err == nil {
		t.Fatal("expected error for malformed expression")
	}
}

func TestReadSource(t *testing.T) {
	got, err := readSource(strings.NewReader("print(1)"), "-")
	if err != nil || got != "print(1)" {
		t.Fatalf("stdin: %q %v", got, err)
	}
	if _, err := readSource(nil, "/does/not/exist"); err == nil {
		t.Error("expected error for missing file")
	}
}
