package main

import (
	"fmt"
	"path/filepath"

	"github.com/jward/gabb/internal/pathutil"
)

// resolveWorkspace returns the workspace root and database path from
// the --workspace/--db flags, falling back to pathutil.WorkspaceRoot
// discovery and the default .gabb/index.db layout (spec §4.1, §6).
func resolveWorkspace() (root, dbPath string, err error) {
	root = flagWorkspace
	if root == "" {
		root, err = pathutil.WorkspaceRoot(".")
		if err != nil {
			return "", "", err
		}
	} else {
		abs, aerr := filepath.Abs(root)
		if aerr != nil {
			return "", "", fmt.Errorf("resolving workspace path %q: %w", root, aerr)
		}
		root = pathutil.Normalize(abs)
	}

	dbPath = flagDB
	if dbPath == "" {
		dbPath = filepath.Join(root, ".gabb", "index.db")
	} else if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(root, dbPath)
	}

	return root, dbPath, nil
}
