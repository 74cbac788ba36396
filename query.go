package gabb

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jward/gabb/internal/depgraph"
	"github.com/jward/gabb/internal/store"
)

// QueryBuilder is the read-only Query Resolver surface (spec §4.7): a
// thin layer over the Store that implements position→symbol
// resolution, go-to-definition, find-usages, and find-implementations,
// each with their documented fallbacks.
type QueryBuilder struct {
	store *store.Store
	graph *depgraph.Graph
}

// NewQueryBuilder binds a QueryBuilder to s. graph may be nil, in which
// case cross-file fallbacks degrade to a whole-index scan.
func NewQueryBuilder(s *store.Store, graph *depgraph.Graph) *QueryBuilder {
	return &QueryBuilder{store: s, graph: graph}
}

// ErrNoSymbolAtPosition is returned by SymbolAt when no symbol can be
// resolved at the given position, even via the name-fallback search
// (spec §4.7 step 6).
var ErrNoSymbolAtPosition = errors.New("no symbol at position")

// declaratorKeywords are tokens that can appear as the identifier under
// the cursor but never name the symbol itself (spec §4.7 step 4).
var declaratorKeywords = map[string]bool{
	"fn": true, "function": true, "class": true, "interface": true,
	"enum": true, "struct": true, "impl": true,
}

// OffsetForPosition translates a 1-based (line, character) pair into a
// byte offset into source, via an explicit line scan, clamping the
// character to the line's length (spec §4.7 step 1).
func OffsetForPosition(source []byte, line, character int) int {
	if line < 1 {
		line = 1
	}
	if character < 1 {
		character = 1
	}
	currentLine := 1
	lineStart := 0
	for i, b := range source {
		if currentLine == line {
			lineStart = i
			break
		}
		if b == '\n' {
			currentLine++
			lineStart = i + 1
		}
	}
	if currentLine < line {
		// Position is past EOF; clamp to end of file.
		return len(source)
	}
	lineEnd := len(source)
	for i := lineStart; i < len(source); i++ {
		if source[i] == '\n' {
			lineEnd = i
			break
		}
	}
	offset := lineStart + (character - 1)
	if offset > lineEnd {
		offset = lineEnd
	}
	if offset < lineStart {
		offset = lineStart
	}
	return offset
}

// identifierAt returns the [start,end) word-identifier token
// (`[A-Za-z0-9_]`) containing offset, and the token text, or ("", -1,
// -1) if offset doesn't sit inside one.
func identifierAt(source []byte, offset int) (string, int, int) {
	isWord := func(b byte) bool {
		return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
	}
	if offset < 0 || offset >= len(source) || !isWord(source[offset]) {
		return "", -1, -1
	}
	start := offset
	for start > 0 && isWord(source[start-1]) {
		start--
	}
	end := offset
	for end < len(source) && isWord(source[end]) {
		end++
	}
	return string(source[start:end]), start, end
}

// SymbolAt implements Position→Symbol resolution (spec §4.7).
func (q *QueryBuilder) SymbolAt(file string, line, character int) (*store.Symbol, error) {
	source, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}
	offset := OffsetForPosition(source, line, character)
	return q.symbolAtOffset(file, source, offset)
}

func (q *QueryBuilder) symbolAtOffset(file string, source []byte, offset int) (*store.Symbol, error) {
	token, _, _ := identifierAt(source, offset)

	covering, err := q.store.SymbolsCoveringOffset(file, offset)
	if err != nil {
		return nil, err
	}
	for _, sym := range covering {
		if token != "" && sym.Name != token && !declaratorKeywords[token] {
			continue
		}
		return sym, nil
	}

	if token == "" {
		return nil, ErrNoSymbolAtPosition
	}

	syms, _, err := q.store.ListSymbolsFiltered(store.SymbolFilter{Name: store.NameFilter{Exact: token}}, store.Page{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(syms) == 0 {
		return nil, ErrNoSymbolAtPosition
	}
	return syms[0], nil
}

// DefinitionAt implements go-to-definition (spec §4.7): it checks for a
// recorded reference at the position first, falling through to
// SymbolAt if none exists.
func (q *QueryBuilder) DefinitionAt(file string, line, character int) (*store.Symbol, error) {
	source, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}
	offset := OffsetForPosition(source, line, character)

	if ref, err := q.store.ReferenceAtPosition(file, offset); err == nil && ref != nil {
		return q.store.SymbolByID(ref.SymbolID)
	}

	return q.symbolAtOffset(file, source, offset)
}

// Usage is one textual usage site, optionally annotated with the
// import-binding text that brought the symbol into scope there.
type Usage struct {
	Reference  *store.Reference
	ImportText string
}

// FindUsages implements find-usages (spec §4.7): resolve the target,
// collect references, excluding the target's own declaration span and
// deduplicating by (file,start,end), falling back to a dependency-
// scoped or whole-index name search when no references are recorded.
func (q *QueryBuilder) FindUsages(target *store.Symbol) ([]*Usage, error) {
	refs, err := q.store.ReferencesForSymbol(target.ID)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var usages []*Usage
	for _, ref := range refs {
		if ref.File == target.File && ref.Start >= target.Start && ref.End <= target.End {
			continue
		}
		key := fmt.Sprintf("%s:%d:%d", ref.File, ref.Start, ref.End)
		if seen[key] {
			continue
		}
		seen[key] = true
		usages = append(usages, &Usage{Reference: ref})
	}

	if len(usages) == 0 {
		usages, err = q.crossFileUsageFallback(target)
		if err != nil {
			return nil, err
		}
	}

	byFile := map[string]string{}
	for _, u := range usages {
		if u.ImportText != "" {
			continue
		}
		if text, ok := byFile[u.Reference.File]; ok {
			u.ImportText = text
			continue
		}
		binding, err := q.store.ImportBindingsByLocalName(u.Reference.File, target.Name)
		if err == nil && binding != nil {
			byFile[u.Reference.File] = binding.ImportText
			u.ImportText = binding.ImportText
		}
	}

	return usages, nil
}

// crossFileUsageFallback scans files dependent on target.File (or, when
// no graph is loaded or it lists no dependents, every indexed file) for
// a textual occurrence of
// target.Name, used when no references were recorded for the symbol
// (spec §4.6 cross-file fallback, invoked from §4.7's find-usages).
func (q *QueryBuilder) crossFileUsageFallback(target *store.Symbol) ([]*Usage, error) {
	var candidates []string
	if q.graph != nil {
		candidates = q.graph.GetDependents(target.File)
	}
	if len(candidates) == 0 {
		files, err := q.store.AllFiles()
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			candidates = append(candidates, f.Path)
		}
	}

	var usages []*Usage
	for _, file := range candidates {
		source, err := os.ReadFile(file)
		if err != nil {
			continue
		}
		for idx := 0; ; {
			i := strings.Index(string(source[idx:]), target.Name)
			if i < 0 {
				break
			}
			start := idx + i
			end := start + len(target.Name)
			if wordBoundary(source, start, end) {
				usages = append(usages, &Usage{Reference: &store.Reference{File: file, Start: start, End: end, SymbolID: target.ID}})
			}
			idx = end
		}
	}
	return usages, nil
}

func wordBoundary(source []byte, start, end int) bool {
	isWord := func(b byte) bool {
		return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
	}
	if start > 0 && isWord(source[start-1]) {
		return false
	}
	if end < len(source) && isWord(source[end]) {
		return false
	}
	return true
}

// implementationEdgeKinds is the set of edge kinds that identify an
// implementer when the store's dst equals the target (spec §4.7 find-
// implementations).
var implementationEdgeKinds = []string{"extends", "implements", "trait_impl", "overrides"}

// FindImplementations implements find-implementations (spec §4.7):
// edges into the target with an implementation-kind identify
// implementers directly; absent that, fall back to a dependency-scoped
// name search.
func (q *QueryBuilder) FindImplementations(target *store.Symbol) ([]*store.Symbol, error) {
	edges, err := q.store.EdgesTo(target.ID)
	if err != nil {
		return nil, err
	}
	implKinds := map[string]bool{}
	for _, k := range implementationEdgeKinds {
		implKinds[k] = true
	}

	seen := map[string]bool{target.ID: true}
	var out []*store.Symbol
	for _, e := range edges {
		if !implKinds[e.Kind] || seen[e.Src] {
			continue
		}
		seen[e.Src] = true
		sym, err := q.store.SymbolByID(e.Src)
		if err == nil {
			out = append(out, sym)
		}
	}

	if len(out) > 0 {
		return out, nil
	}

	var candidates []string
	if q.graph != nil {
		candidates = q.graph.GetDependents(target.File)
	}
	for _, file := range candidates {
		syms, _, err := q.store.ListSymbolsFiltered(store.SymbolFilter{
			FileExact: file,
			Name:      store.NameFilter{Exact: target.Name},
		}, store.Page{Limit: 500})
		if err != nil {
			continue
		}
		for _, sym := range syms {
			if seen[sym.ID] {
				continue
			}
			seen[sym.ID] = true
			out = append(out, sym)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].File < out[j].File })
	return out, nil
}
