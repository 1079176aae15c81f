package workspace

import "testing"

func TestLanguageForFile(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"main.py", "python"},
		{"index.ts", "typescript"},
		{"Main.java", "java"},
		{"main.cpp", "cpp"},
		{"main.c", "c"},
		{"util.H", "c"},
		{"README.md", PlaintextLanguage},
		{"Makefile", PlaintextLanguage},
		{"", PlaintextLanguage},
	}

	for _, tt := range tests {
		if got := LanguageForFile(tt.name); got != tt.want {
			t.Errorf("LanguageForFile(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
