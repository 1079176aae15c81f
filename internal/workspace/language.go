package workspace

import "github.com/codenest/codenest/pkg/tree"

// PlaintextLanguage is the editor language for unrecognized extensions.
const PlaintextLanguage = "plaintext"

var extensionLanguages = map[string]string{
	"c":    "c",
	"cpp":  "cpp",
	"cc":   "cpp",
	"cxx":  "cpp",
	"h":    "c",
	"hpp":  "cpp",
	"java": "java",
	"py":   "python",
	"ts":   "typescript",
}

// LanguageForFile returns the editor language tag for a file name.
func LanguageForFile(name string) string {
	if lang, ok := extensionLanguages[tree.Extension(name)]; ok {
		return lang
	}
	return PlaintextLanguage
}
