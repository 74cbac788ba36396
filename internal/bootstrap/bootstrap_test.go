package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/gabb/internal/store"
)

func TestEnsureReturnsReadyStoreWithoutRecovery(t *testing.T) {
	root := t.TempDir()
	dbPath := filepath.Join(root, ".gabb", "index.db")
	require.NoError(t, os.MkdirAll(filepath.Dir(dbPath), 0o755))

	s, err := store.Open(dbPath)
	require.NoError(t, err)
	s.Close()

	res, err := Ensure(Options{WorkspaceRoot: root, DBPath: dbPath, NoDaemon: true})
	require.NoError(t, err)
	require.NotNil(t, res.Store)
	defer res.Store.Close()
	assert.False(t, res.VersionMismatch)
}

func TestEnsureNoStartDaemonFailsOnMissingDatabase(t *testing.T) {
	root := t.TempDir()
	dbPath := filepath.Join(root, ".gabb", "index.db")

	_, err := Ensure(Options{WorkspaceRoot: root, DBPath: dbPath, NoStartDaemon: true})
	require.Error(t, err)

	var re interface{ RegenerationRequired() bool }
	assert.ErrorAs(t, err, &re)
}

func TestEnsureNoStartDaemonTimesOutQuicklyIsNotApplicable(t *testing.T) {
	// NoStartDaemon short-circuits before the poll loop, so this must
	// return immediately rather than waiting out PollTimeout.
	root := t.TempDir()
	dbPath := filepath.Join(root, ".gabb", "index.db")

	start := time.Now()
	_, err := Ensure(Options{WorkspaceRoot: root, DBPath: dbPath, NoStartDaemon: true, PollTimeout: 5 * time.Second})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Less(t, elapsed, 1*time.Second)
}
