package filetree

import (
	"path"
	"strings"
)

var languages = map[string]string{
	"py":   "python",
	"js":   "javascript",
	"ts":   "javascript",
	"go":   "go",
	"rb":   "ruby",
	"yml":  "yaml",
	"yaml": "yaml",
	"json": "json",
	"sql":  "sql",
	"md":   "markdown",
}

// Language maps a file name to a highlighting language, "text" when unknown.
func Language(p string) string {
	ext := strings.TrimPrefix(path.Ext(p), ".")
	if lang, ok := languages[strings.ToLower(ext)]; ok {
		return lang
	}
	return "text"
}
