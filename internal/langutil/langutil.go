// Package langutil maps file extensions to canonical language names.
// This is purely a display/grouping convenience — the Store's files
// table (spec §3) has no language column; language is always derived
// from the path's extension, the same way the teacher's
// internal/runtime/languages.go keyed tree-sitter grammars by extension.
package langutil

import "path/filepath"

var extToLanguage = map[string]string{
	".go":  "go",
	".rs":  "rust",
	".ts":  "typescript",
	".tsx": "typescript",
	".py":  "python",
}

// ForPath returns the canonical language name for path's extension, or
// "" if unrecognized.
func ForPath(path string) string {
	return extToLanguage[filepath.Ext(path)]
}

// Known reports whether path's extension has a registered language.
func Known(path string) bool {
	_, ok := extToLanguage[filepath.Ext(path)]
	return ok
}
