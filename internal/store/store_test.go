package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jward/gabb/internal/schema"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestReplaceFileAndFileStats(t *testing.T) {
	s := newTestStore(t)

	file := &File{Path: "a.go", ContentHash: "h1", Mtime: 1, IndexedAt: 1}
	syms := []*Symbol{
		{ID: "a.go#0-10", File: "a.go", Kind: "function", Name: "Foo", Start: 0, End: 10},
		{ID: "a.go#12-30", File: "a.go", Kind: "struct", Name: "Bar", Start: 12, End: 30},
	}
	require.NoError(t, s.ReplaceFile(file, syms, nil, nil, nil, nil))

	got, err := s.FileByPath("a.go")
	require.NoError(t, err)
	require.Equal(t, "h1", got.ContentHash)

	stats, err := s.FileStatsFor("a.go")
	require.NoError(t, err)
	require.NotNil(t, stats)
	require.Equal(t, 2, stats.SymbolCount)
	require.Equal(t, 1, stats.FunctionCount)
	require.Equal(t, 1, stats.ClassCount)
}

func TestEmptyFileHasNoStatsRow(t *testing.T) {
	s := newTestStore(t)
	file := &File{Path: "empty.go", ContentHash: "h", Mtime: 1, IndexedAt: 1}
	require.NoError(t, s.ReplaceFile(file, nil, nil, nil, nil, nil))

	stats, err := s.FileStatsFor("empty.go")
	require.NoError(t, err)
	require.Nil(t, stats)
}

func TestDeleteFileCascades(t *testing.T) {
	s := newTestStore(t)

	fileA := &File{Path: "a.rs", ContentHash: "h1", Mtime: 1, IndexedAt: 1}
	symFoo := &Symbol{ID: "a.rs#0-20", File: "a.rs", Kind: "function", Name: "foo", Start: 0, End: 20}
	require.NoError(t, s.ReplaceFile(fileA, []*Symbol{symFoo}, nil, nil, nil, nil))

	fileB := &File{Path: "b.rs", ContentHash: "h2", Mtime: 1, IndexedAt: 1}
	symMain := &Symbol{ID: "b.rs#0-40", File: "b.rs", Kind: "function", Name: "main", Start: 0, End: 40}
	edge := &Edge{Src: symMain.ID, Dst: symFoo.ID, Kind: "calls"}
	refs := []*Reference{{File: "b.rs", Start: 30, End: 33, SymbolID: symFoo.ID}}
	require.NoError(t, s.ReplaceFile(fileB, []*Symbol{symMain}, []*Edge{edge}, refs, nil, nil))

	require.NoError(t, s.DeleteFile("a.rs"))

	_, err := s.FileByPath("a.rs")
	require.Error(t, err)

	syms, err := s.SymbolsInFile("a.rs")
	require.NoError(t, err)
	require.Empty(t, syms)

	stats, err := s.FileStatsFor("a.rs")
	require.NoError(t, err)
	require.Nil(t, stats)
}

func TestSymbolsCoveringOffsetNarrowest(t *testing.T) {
	s := newTestStore(t)
	file := &File{Path: "a.ts", ContentHash: "h", Mtime: 1, IndexedAt: 1}
	outer := &Symbol{ID: "a.ts#0-100", File: "a.ts", Kind: "class", Name: "Outer", Start: 0, End: 100}
	inner := &Symbol{ID: "a.ts#10-20", File: "a.ts", Kind: "method", Name: "run", Start: 10, End: 20, Container: "Outer"}
	require.NoError(t, s.ReplaceFile(file, []*Symbol{outer, inner}, nil, nil, nil, nil))

	covering, err := s.SymbolsCoveringOffset("a.ts", 15)
	require.NoError(t, err)
	require.Len(t, covering, 2)
	require.Equal(t, "run", covering[0].Name) // narrowest first
}

func TestEdgesAndTraversal(t *testing.T) {
	s := newTestStore(t)
	file := &File{Path: "x.go", ContentHash: "h", Mtime: 1, IndexedAt: 1}
	a := &Symbol{ID: "x.go#0-5", File: "x.go", Kind: "function", Name: "a", Start: 0, End: 5}
	b := &Symbol{ID: "x.go#6-11", File: "x.go", Kind: "function", Name: "b", Start: 6, End: 11}
	c := &Symbol{ID: "x.go#12-17", File: "x.go", Kind: "function", Name: "c", Start: 12, End: 17}
	edges := []*Edge{
		{Src: a.ID, Dst: b.ID, Kind: "calls"},
		{Src: b.ID, Dst: c.ID, Kind: "calls"},
	}
	require.NoError(t, s.ReplaceFile(file, []*Symbol{a, b, c}, edges, nil, nil, nil))

	direct, err := s.Callees(a.ID, false)
	require.NoError(t, err)
	require.Len(t, direct, 1)
	require.Equal(t, "b", direct[0].Name)

	transitive, err := s.Callees(a.ID, true)
	require.NoError(t, err)
	names := map[string]bool{}
	for _, sym := range transitive {
		names[sym.Name] = true
	}
	require.True(t, names["b"])
	require.True(t, names["c"])
	require.False(t, names["a"]) // origin excluded
}

func TestUnresolvedEdgesAndResolution(t *testing.T) {
	s := newTestStore(t)
	file := &File{Path: "impl.ts", ContentHash: "h", Mtime: 1, IndexedAt: 1}
	child := &Symbol{ID: "impl.ts#0-50", File: "impl.ts", Kind: "class", Name: "Child", Start: 0, End: 50}
	edge := &Edge{Src: child.ID, Dst: "base.ts#Base", Kind: "extends"}
	require.NoError(t, s.ReplaceFile(file, []*Symbol{child}, []*Edge{edge}, nil, nil, nil))

	unresolved, err := s.GetUnresolvedEdges()
	require.NoError(t, err)
	require.Len(t, unresolved, 1)

	require.NoError(t, s.UpdateEdgeDestination(child.ID, "base.ts#Base", "base.ts#0-40"))

	unresolved, err = s.GetUnresolvedEdges()
	require.NoError(t, err)
	require.Empty(t, unresolved)
}

func TestTopologicalSort(t *testing.T) {
	s := newTestStore(t)
	for _, d := range []*FileDependency{
		{FromFile: "b.go", ToFile: "a.go", Kind: "import"},
		{FromFile: "c.go", ToFile: "b.go", Kind: "import"},
	} {
		file := &File{Path: d.FromFile, ContentHash: "h", Mtime: 1, IndexedAt: 1}
		require.NoError(t, s.ReplaceFile(file, nil, nil, nil, []*FileDependency{d}, nil))
	}
	require.NoError(t, s.ReplaceFile(&File{Path: "a.go", ContentHash: "h", Mtime: 1, IndexedAt: 1}, nil, nil, nil, nil, nil))

	order, err := s.TopologicalSort([]string{"a.go", "b.go", "c.go"})
	require.NoError(t, err)

	pos := map[string]int{}
	for i, f := range order {
		pos[f] = i
	}
	require.Less(t, pos["a.go"], pos["b.go"])
	require.Less(t, pos["b.go"], pos["c.go"])
}

func TestFindDuplicateGroups(t *testing.T) {
	s := newTestStore(t)
	fileA := &File{Path: "a.py", ContentHash: "h1", Mtime: 1, IndexedAt: 1}
	fileB := &File{Path: "b.py", ContentHash: "h2", Mtime: 1, IndexedAt: 1}
	symA := &Symbol{ID: "a.py#0-10", File: "a.py", Kind: "function", Name: "normalize", Start: 0, End: 10, ContentHash: "same"}
	symB := &Symbol{ID: "b.py#0-10", File: "b.py", Kind: "function", Name: "normalize", Start: 0, End: 10, ContentHash: "same"}
	require.NoError(t, s.ReplaceFile(fileA, []*Symbol{symA}, nil, nil, nil, nil))
	require.NoError(t, s.ReplaceFile(fileB, []*Symbol{symB}, nil, nil, nil, nil))

	groups, err := s.FindDuplicateGroups(2, "function", "")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Symbols, 2)
}

func TestTryOpenFreshDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	result, err := TryOpen(path)
	require.NoError(t, err)
	require.True(t, result.Ready())
	defer result.Store.Close()

	meta, err := result.Store.SchemaMeta()
	require.NoError(t, err)
	require.Equal(t, "1.0", meta["schema_version"])
}

func TestTryOpenLegacyDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	raw, err := Open(path)
	require.NoError(t, err)
	_, err = raw.db.Exec(`DROP TABLE schema_meta`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	result, err := TryOpen(path)
	require.NoError(t, err)
	require.False(t, result.Ready())
	require.Equal(t, schema.LegacyDatabase, result.Reason.Kind)
}
