package daemon

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/gabb/internal/schema"
)

func TestGetStatusNoPIDFile(t *testing.T) {
	root := t.TempDir()
	st, err := GetStatus(root, "db.sqlite")
	require.NoError(t, err)
	assert.False(t, st.Running)
	assert.Equal(t, root, st.WorkspaceRoot)
}

func TestGetStatusRunningWithVersionMismatch(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, WritePIDFile(root, PIDFile{PID: os.Getpid(), Version: "stale-version"}))

	st, err := GetStatus(root, "db.sqlite")
	require.NoError(t, err)
	assert.True(t, st.Running)
	assert.NotEqual(t, schema.AppVersion, "stale-version")
	assert.True(t, st.VersionMismatch)
}

func TestRequireNotRunningRefusesLiveDaemon(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, WritePIDFile(root, PIDFile{PID: os.Getpid()}))

	err := RequireNotRunning(root)
	assert.Error(t, err)
}

func TestRequireNotRunningCleansStalePIDFile(t *testing.T) {
	root := t.TempDir()
	// A pid essentially guaranteed not to be alive on a test machine.
	require.NoError(t, WritePIDFile(root, PIDFile{PID: 1 << 30}))

	err := RequireNotRunning(root)
	require.NoError(t, err)

	_, err = ReadPIDFile(root)
	assert.Error(t, err, "stale pid file should have been removed")
}

func TestStopNoOpWithoutPIDFile(t *testing.T) {
	root := t.TempDir()
	assert.NoError(t, Stop(root, false))
}

func TestStopRemovesStalePIDFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, WritePIDFile(root, PIDFile{PID: 1 << 30}))

	require.NoError(t, Stop(root, false))
	_, err := ReadPIDFile(root)
	assert.Error(t, err)
}
