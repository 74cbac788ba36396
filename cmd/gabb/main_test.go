package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/gabb/internal/schema"
)

func TestResolveWorkspaceDiscoversFromGitRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	deep := filepath.Join(root, "sub", "deep")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	orig, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(orig)
	require.NoError(t, os.Chdir(deep))

	flagWorkspace, flagDB = "", ""
	gotRoot, gotDB, err := resolveWorkspace()
	require.NoError(t, err)
	assert.Equal(t, root, gotRoot)
	assert.Equal(t, filepath.Join(root, ".gabb", "index.db"), gotDB)
}

func TestResolveWorkspaceHonorsExplicitFlags(t *testing.T) {
	root := t.TempDir()
	defer func() { flagWorkspace, flagDB = "", "" }()

	flagWorkspace = root
	flagDB = "custom.db"
	gotRoot, gotDB, err := resolveWorkspace()
	require.NoError(t, err)
	assert.Equal(t, root, gotRoot)
	assert.Equal(t, filepath.Join(root, "custom.db"), gotDB)
}

func TestExitCodeForRegenerationRequired(t *testing.T) {
	reason := &schema.RegenerationReason{Kind: schema.MajorVersionMismatch, Detail: "boom"}
	wrapped := fmt.Errorf("opening index: %w", reason)
	assert.Equal(t, 2, exitCodeFor(wrapped))
}

func TestExitCodeForOrdinaryError(t *testing.T) {
	assert.Equal(t, 1, exitCodeFor(errors.New("some other failure")))
}
