package pathutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	require.Equal(t, "a/b/c", Normalize(`a\b\c`))
	require.Equal(t, "a/b/c", Normalize("a/b/c"))
}

func TestWorkspaceRootFindsGitMarker(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	sub := filepath.Join(root, "src", "pkg")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	got, err := WorkspaceRoot(sub)
	require.NoError(t, err)
	require.Equal(t, Normalize(root), got)
}

func TestWorkspaceRootFindsGoMod(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module x\n"), 0o644))
	sub := filepath.Join(root, "internal")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	got, err := WorkspaceRoot(sub)
	require.NoError(t, err)
	require.Equal(t, Normalize(root), got)
}

func TestWorkspaceRootNoMarker(t *testing.T) {
	// A temp dir with no markers anywhere up to home will fail to resolve
	// (or resolve to an ancestor outside the temp tree if the test runner's
	// environment happens to have one). We only assert the no-marker case
	// within an isolated temp tree that cannot reach home.
	root := t.TempDir()
	_, err := WorkspaceRoot(root)
	if err == nil {
		t.Skip("ancestor of tempdir unexpectedly contains a workspace marker")
	}
	var nwe *NoWorkspaceError
	require.ErrorAs(t, err, &nwe)
}

func TestWorkspaceRootFromDB(t *testing.T) {
	require.Equal(t, Normalize("/home/user/project"), WorkspaceRootFromDB("/home/user/project/.gabb/index.db"))
	require.Equal(t, Normalize("/home/user/project"), WorkspaceRootFromDB("/home/user/project/index.db"))
}
