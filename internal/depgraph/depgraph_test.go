package depgraph

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/gabb/internal/store"
)

func newTestStoreForDepgraph(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpdateAndQueryFile(t *testing.T) {
	g := New()
	g.UpdateFile("a.go", []*store.FileDependency{{FromFile: "a.go", ToFile: "b.go", Kind: "import"}})
	g.UpdateFile("b.go", []*store.FileDependency{{FromFile: "b.go", ToFile: "c.go", Kind: "import"}})

	assert.ElementsMatch(t, []string{"b.go"}, g.GetDependencies("a.go"))
	assert.ElementsMatch(t, []string{"a.go"}, g.GetDependents("b.go"))
	assert.ElementsMatch(t, []string{"b.go"}, g.GetDependents("c.go"))
}

func TestGetInvalidationSetOrdering(t *testing.T) {
	g := New()
	// a -> b -> c (a depends on b, b depends on c)
	g.UpdateFile("a.go", []*store.FileDependency{{FromFile: "a.go", ToFile: "b.go"}})
	g.UpdateFile("b.go", []*store.FileDependency{{FromFile: "b.go", ToFile: "c.go"}})

	// Changing c.go invalidates its transitive dependents, b.go and a.go
	// (the changed file itself is not part of its own invalidation set).
	set := g.GetInvalidationSet("c.go")
	require.Len(t, set, 2)

	pos := map[string]int{}
	for i, p := range set {
		pos[p] = i
	}
	assert.Less(t, pos["b.go"], pos["a.go"], "b.go must come before its dependent a.go")
}

func TestRemoveFile(t *testing.T) {
	g := New()
	g.UpdateFile("a.go", []*store.FileDependency{{FromFile: "a.go", ToFile: "b.go"}})
	g.RemoveFile("a.go")

	assert.Empty(t, g.GetDependents("b.go"))
}

func TestLoadFromStore(t *testing.T) {
	s := newTestStoreForDepgraph(t)

	file := &store.File{Path: "a.go", ContentHash: "h", Mtime: 1, IndexedAt: 1}
	deps := []*store.FileDependency{{FromFile: "a.go", ToFile: "b.go", Kind: "import"}}
	require.NoError(t, s.ReplaceFile(file, nil, nil, nil, deps, nil))

	g, err := Load(s)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b.go"}, g.GetDependencies("a.go"))
}
