// Package pathutil produces the canonical string form of file paths the
// Engine stores and locates a workspace root from a starting directory.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// markerFiles identify a workspace root when found as a regular file or
// directory directly inside a candidate directory.
var markerFiles = []string{
	".gabb",
	".git",
	"Cargo.toml",
	"package.json",
	"pyproject.toml",
	"go.mod",
	"build.gradle",
	"build.gradle.kts",
	"pom.xml",
	"settings.gradle",
	"settings.gradle.kts",
}

// markerDirs identify a workspace root only when found as a directory.
var markerDirs = []string{".git", "gradle"}

// Normalize replaces backslashes with forward slashes, producing the
// lossy string form the Store keys every entity on. It does not resolve
// symlinks or make a path absolute — callers canonicalize before handing
// paths to the Engine.
func Normalize(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// Join joins path elements and normalizes the result.
func Join(elem ...string) string {
	return Normalize(filepath.Join(elem...))
}

// WorkspaceRoot walks upward from start looking for a marker file or
// directory. It stops at the user's home directory without ascending
// past it. Returns the first directory containing a marker, or an error
// if none is found before reaching home or the filesystem root.
func WorkspaceRoot(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	home, _ := os.UserHomeDir()
	home = filepath.Clean(home)

	dir := filepath.Clean(abs)
	for {
		if hasWorkspaceMarker(dir) {
			return Normalize(dir), nil
		}
		if home != "" && dir == home {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", &NoWorkspaceError{Start: abs}
}

// NoWorkspaceError is returned by WorkspaceRoot when no marker is found.
type NoWorkspaceError struct {
	Start string
}

func (e *NoWorkspaceError) Error() string {
	return "no workspace root found above " + e.Start +
		" (looked for .gabb, .git, Cargo.toml, package.json, pyproject.toml, go.mod, " +
		"build.gradle, build.gradle.kts, pom.xml, settings.gradle, settings.gradle.kts, or a .git/gradle directory)"
}

func hasWorkspaceMarker(dir string) bool {
	for _, name := range markerFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	for _, name := range markerDirs {
		info, err := os.Stat(filepath.Join(dir, name))
		if err == nil && info.IsDir() {
			return true
		}
	}
	return false
}

// WorkspaceRootFromDB derives a workspace root from a database path: if
// db's parent directory is named ".gabb", the workspace root is its
// grandparent; otherwise the workspace root is db's parent.
func WorkspaceRootFromDB(db string) string {
	abs, err := filepath.Abs(db)
	if err != nil {
		abs = db
	}
	parent := filepath.Dir(abs)
	if filepath.Base(parent) == ".gabb" {
		return Normalize(filepath.Dir(parent))
	}
	return Normalize(parent)
}
