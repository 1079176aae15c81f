package execute

import (
	"fmt"
	"sort"
	"strings"
)

// aliases maps what users type to the identifiers the sandbox knows.
var aliases = map[string]string{
	"python":     "python",
	"javascript": "javascript",
	"js":         "javascript",
	"node":       "javascript",
	"java":       "java",
	"cpp":        "cpp",
	"c":          "c",
	"typescript": "typescript",
	"ts":         "typescript",
}

var sourceExtensions = map[string]string{
	"python":     "py",
	"javascript": "js",
	"java":       "java",
	"cpp":        "cpp",
	"c":          "c",
	"typescript": "ts",
}

// UnsupportedLanguageError is returned for a language alias with no
// sandbox mapping.
type UnsupportedLanguageError struct {
	Language  string
	Supported []string
}

func (e *UnsupportedLanguageError) Error() string {
	return fmt.Sprintf("unsupported language %q (supported: %s)", e.Language, strings.Join(e.Supported, ", "))
}

// SupportedAliases returns every accepted alias, sorted.
func SupportedAliases() []string {
	out := make([]string, 0, len(aliases))
	for a := range aliases {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Canonical resolves a user alias, case-insensitively, to a sandbox
// language identifier.
func Canonical(alias string) (string, error) {
	if lang, ok := aliases[strings.ToLower(strings.TrimSpace(alias))]; ok {
		return lang, nil
	}
	return "", &UnsupportedLanguageError{Language: alias, Supported: SupportedAliases()}
}

func sourceFileName(language string) string {
	ext, ok := sourceExtensions[language]
	if !ok {
		ext = "txt"
	}
	return "main." + ext
}
