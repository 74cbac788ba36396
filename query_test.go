package gabb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/gabb/internal/store"
)

func newTestQueryBuilder(t *testing.T) (*QueryBuilder, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewQueryBuilder(s, nil), s
}

func TestOffsetForPosition(t *testing.T) {
	src := []byte("line one\nline two\nline three")
	assert.Equal(t, 0, OffsetForPosition(src, 1, 1))
	assert.Equal(t, 9, OffsetForPosition(src, 2, 1))
	assert.Equal(t, 14, OffsetForPosition(src, 2, 6))
	assert.Equal(t, len(src), OffsetForPosition(src, 99, 1))
}

func TestSymbolAtFindsCoveringSymbol(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	src := "package demo\n\nfunc Foo() {\n\treturn\n}\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	q, s := newTestQueryBuilder(t)
	start := 14 // byte offset of "func Foo..."
	end := len(src) - 1
	sym := &store.Symbol{ID: path + "#14-" + itoa(end), File: path, Kind: "function", Name: "Foo", Start: start, End: end}
	require.NoError(t, s.ReplaceFile(&store.File{Path: path, ContentHash: "h"}, []*store.Symbol{sym}, nil, nil, nil, nil))

	got, err := q.SymbolAt(path, 3, 6) // inside "Foo" on line 3
	require.NoError(t, err)
	assert.Equal(t, "Foo", got.Name)
}

func TestSymbolAtReturnsErrNoSymbolAtPosition(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.go")
	require.NoError(t, os.WriteFile(path, []byte("package demo\n"), 0o644))

	q, _ := newTestQueryBuilder(t)
	_, err := q.SymbolAt(path, 1, 1)
	assert.ErrorIs(t, err, ErrNoSymbolAtPosition)
}

func TestFindUsagesExcludesDeclarationAndDedupes(t *testing.T) {
	q, s := newTestQueryBuilder(t)

	target := &store.Symbol{ID: "a.go#0-10", File: "a.go", Name: "Foo", Start: 0, End: 10}
	refs := []*store.Reference{
		{File: "a.go", Start: 0, End: 3, SymbolID: target.ID},   // inside the declaration, excluded
		{File: "b.go", Start: 5, End: 8, SymbolID: target.ID},   // a real usage
		{File: "b.go", Start: 5, End: 8, SymbolID: target.ID},   // duplicate of the above
	}
	require.NoError(t, s.ReplaceFile(&store.File{Path: "a.go", ContentHash: "h"}, []*store.Symbol{target}, nil, nil, nil, nil))
	require.NoError(t, s.ReplaceFile(&store.File{Path: "b.go", ContentHash: "h"}, nil, nil, refs, nil, nil))

	usages, err := q.FindUsages(target)
	require.NoError(t, err)
	require.Len(t, usages, 1)
	assert.Equal(t, "b.go", usages[0].Reference.File)
}

func TestFindImplementationsByEdgeKind(t *testing.T) {
	q, s := newTestQueryBuilder(t)

	base := &store.Symbol{ID: "a.go#0-10", File: "a.go", Name: "Shape", Kind: "interface"}
	impl := &store.Symbol{ID: "b.go#0-10", File: "b.go", Name: "Widget", Kind: "struct"}
	edge := &store.Edge{Src: impl.ID, Dst: base.ID, Kind: "implements"}

	require.NoError(t, s.ReplaceFile(&store.File{Path: "a.go", ContentHash: "h"}, []*store.Symbol{base}, nil, nil, nil, nil))
	require.NoError(t, s.ReplaceFile(&store.File{Path: "b.go", ContentHash: "h"}, []*store.Symbol{impl}, []*store.Edge{edge}, nil, nil, nil))

	out, err := q.FindImplementations(base)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Widget", out[0].Name)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
