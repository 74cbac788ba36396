package main_test

import (
	"database/sql"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildBinary compiles the gabb binary and returns its path. The binary
// lands in t.TempDir() so it's cleaned up automatically.
func buildBinary(t *testing.T) string {
	t.Helper()
	binName := "gabb"
	if runtime.GOOS == "windows" {
		binName += ".exe"
	}
	bin := filepath.Join(t.TempDir(), binName)
	cmd := exec.Command("go", "build", "-o", bin, ".")
	cmd.Dir = filepath.Join(projectRoot(t), "cmd", "gabb")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=1")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "build failed: %s", string(out))
	return bin
}

// projectRoot walks up from this test file's directory to find go.mod.
func projectRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "runtime.Caller failed")
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		require.NotEqual(t, parent, dir, "could not find project root")
		dir = parent
	}
}

// createGoFixture creates a temp directory with a .git dir and a Go file,
// so workspace-root discovery resolves to the fixture itself.
func createGoFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))

	src := `package main

import "fmt"

func main() {
	fmt.Println(helper())
}

func helper() string {
	return "world"
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte(src), 0o644))
	return dir
}

func openDB(t *testing.T, dbPath string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func fileCount(t *testing.T, db *sql.DB) int {
	t.Helper()
	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM files").Scan(&count))
	return count
}

func symbolCount(t *testing.T, db *sql.DB) int {
	t.Helper()
	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM symbols").Scan(&count))
	return count
}

func TestIndexCreatesDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createGoFixture(t)

	cmd := exec.Command(bin, "index")
	cmd.Dir = fixture
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "index failed: %s", string(out))

	dbPath := filepath.Join(fixture, ".gabb", "index.db")
	_, err = os.Stat(dbPath)
	require.NoError(t, err, ".gabb/index.db should exist")

	db := openDB(t, dbPath)
	assert.Equal(t, 1, fileCount(t, db), "should have indexed 1 Go file")
	assert.Greater(t, symbolCount(t, db), 0, "should have extracted symbols")
}

func TestIndexForceClearsAndReindexes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createGoFixture(t)
	dbPath := filepath.Join(fixture, ".gabb", "index.db")

	cmd := exec.Command(bin, "index")
	cmd.Dir = fixture
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "first index failed: %s", string(out))

	db1 := openDB(t, dbPath)
	initialSymbols := symbolCount(t, db1)
	db1.Close()

	require.NoError(t, os.WriteFile(filepath.Join(fixture, "extra.go"), []byte(`package main

func extra() int { return 42 }
`), 0o644))

	cmd = exec.Command(bin, "index", "--force")
	cmd.Dir = fixture
	out, err = cmd.CombinedOutput()
	require.NoError(t, err, "force index failed: %s", string(out))

	db2 := openDB(t, dbPath)
	assert.Equal(t, 2, fileCount(t, db2), "should have 2 files after force reindex")
	assert.Greater(t, symbolCount(t, db2), initialSymbols, "should have more symbols with extra file")
}

func TestIndexCustomDBPath(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createGoFixture(t)
	customDB := filepath.Join(t.TempDir(), "custom.db")

	cmd := exec.Command(bin, "index", "--db", customDB)
	cmd.Dir = fixture
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "index with --db failed: %s", string(out))

	_, err = os.Stat(customDB)
	require.NoError(t, err, "custom DB should exist at %s", customDB)

	_, err = os.Stat(filepath.Join(fixture, ".gabb", "index.db"))
	assert.True(t, os.IsNotExist(err), ".gabb/index.db should not be created when --db is set")
}

func TestIndexIncrementalSkip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createGoFixture(t)
	dbPath := filepath.Join(fixture, ".gabb", "index.db")

	cmd := exec.Command(bin, "index")
	cmd.Dir = fixture
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "first index failed: %s", string(out))

	db1 := openDB(t, dbPath)
	firstSymbolCount := symbolCount(t, db1)
	firstFileCount := fileCount(t, db1)
	db1.Close()
	require.Greater(t, firstSymbolCount, 0, "first index should produce symbols")

	cmd = exec.Command(bin, "index")
	cmd.Dir = fixture
	out, err = cmd.CombinedOutput()
	require.NoError(t, err, "second index failed: %s", string(out))

	db2 := openDB(t, dbPath)
	assert.Equal(t, firstFileCount, fileCount(t, db2), "file count should be the same after re-index")
	assert.Equal(t, firstSymbolCount, symbolCount(t, db2), "symbol count should be the same after re-index")
}
