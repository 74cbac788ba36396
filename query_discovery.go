package gabb

import (
	"sort"

	"github.com/jward/gabb/internal/store"
)

// ListSymbols is a pass-through to list_symbols_filtered (spec §4.7
// "List symbols / show symbol").
func (q *QueryBuilder) ListSymbols(filter store.SymbolFilter, page store.Page) ([]*store.Symbol, int, error) {
	return q.store.ListSymbolsFiltered(filter, page)
}

// SearchSymbols is a pass-through to the Store's fuzzy search surface.
func (q *QueryBuilder) SearchSymbols(pattern string, filter store.SymbolFilter, page store.Page) ([]*store.Symbol, int, error) {
	return q.store.SearchSymbols(pattern, filter, page)
}

// SymbolDetail is the "show symbol" variant (spec §4.7): a symbol plus
// its outgoing edges, incoming edges, the number of references to it,
// and its file's stats. The references themselves are not included.
type SymbolDetail struct {
	Symbol    *store.Symbol
	Outgoing  []*store.Edge
	Incoming  []*store.Edge
	RefCount  int
	FileStats *store.FileStats
}

// ShowSymbol collects a symbol's full detail view.
func (q *QueryBuilder) ShowSymbol(id string) (*SymbolDetail, error) {
	sym, err := q.store.SymbolByID(id)
	if err != nil {
		return nil, err
	}
	outgoing, err := q.store.EdgesFrom(id)
	if err != nil {
		return nil, err
	}
	incoming, err := q.store.EdgesTo(id)
	if err != nil {
		return nil, err
	}
	refs, err := q.store.ReferencesForSymbol(id)
	if err != nil {
		return nil, err
	}
	stats, err := q.store.FileStatsFor(sym.File)
	if err != nil {
		return nil, err
	}
	return &SymbolDetail{Symbol: sym, Outgoing: outgoing, Incoming: incoming, RefCount: len(refs), FileStats: stats}, nil
}

// SymbolNode is one node of the file-structure tree (spec §4.7 "File
// structure").
type SymbolNode struct {
	Symbol   *store.Symbol
	Children []*SymbolNode
}

// FileStructure builds the container-nesting tree for every symbol in
// path: top-level symbols become roots, and each symbol with a
// container equal to some top-level symbol's name is attached beneath
// it. Symbols whose container names no root are promoted to roots.
// Siblings are sorted by start offset.
func (q *QueryBuilder) FileStructure(path string) ([]*SymbolNode, error) {
	syms, err := q.store.SymbolsInFile(path)
	if err != nil {
		return nil, err
	}

	byName := map[string]*SymbolNode{}
	nodes := make([]*SymbolNode, 0, len(syms))
	for _, sym := range syms {
		n := &SymbolNode{Symbol: sym}
		nodes = append(nodes, n)
		if sym.Container == "" {
			byName[sym.Name] = n
		}
	}

	var roots []*SymbolNode
	for _, n := range nodes {
		if n.Symbol.Container == "" {
			roots = append(roots, n)
			continue
		}
		parent, ok := byName[n.Symbol.Container]
		if !ok || parent == n {
			roots = append(roots, n)
			continue
		}
		parent.Children = append(parent.Children, n)
	}

	sortNodes(roots)
	for _, n := range nodes {
		sortNodes(n.Children)
	}
	return roots, nil
}

func sortNodes(nodes []*SymbolNode) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Symbol.Start < nodes[j].Symbol.Start })
}

// DuplicateGroups is a pass-through to find_duplicate_groups (spec
// §4.7 "Duplicate detection").
func (q *QueryBuilder) DuplicateGroups(minCount int, kindFilter, fileFilter string) ([]*store.DuplicateGroup, error) {
	return q.store.FindDuplicateGroups(minCount, kindFilter, fileFilter)
}

// TotalStats is a pass-through to the Store's aggregate rollup.
func (q *QueryBuilder) TotalStats() (*store.TotalStats, error) {
	return q.store.GetTotalStats()
}

// IndexStats is a pass-through to the Store's full aggregate report.
func (q *QueryBuilder) IndexStats() (*store.IndexStats, error) {
	return q.store.GetIndexStats()
}
