package daemon

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRemovePIDFile(t *testing.T) {
	root := t.TempDir()

	_, err := ReadPIDFile(root)
	assert.Error(t, err, "no pid file yet")

	pf := PIDFile{PID: os.Getpid(), Version: "v1", SchemaVersion: "1.0", StartedAt: time.Now().Unix()}
	require.NoError(t, WritePIDFile(root, pf))

	got, err := ReadPIDFile(root)
	require.NoError(t, err)
	assert.Equal(t, pf.PID, got.PID)
	assert.Equal(t, pf.Version, got.Version)

	require.NoError(t, RemovePIDFile(root))
	_, err = ReadPIDFile(root)
	assert.Error(t, err)

	// Removing an already-absent PID file is not an error.
	require.NoError(t, RemovePIDFile(root))
}

func TestIsAlive(t *testing.T) {
	assert.True(t, IsAlive(os.Getpid()), "the test process itself is alive")
	assert.False(t, IsAlive(0))
	assert.False(t, IsAlive(-1))
}

func TestWaitForLivenessTimesOut(t *testing.T) {
	// PID 0 is never alive, so waiting for it to become alive times out.
	ok := waitForLiveness(0, true, 150*time.Millisecond)
	assert.False(t, ok)
}
