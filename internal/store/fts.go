package store

import (
	"sort"

	"github.com/hbollon/go-edlib"
)

// fuzzySuggestSymbols ranks every symbol name by edit-distance similarity
// to pattern when the FTS trigram index returns nothing — the
// name-fallback search path named in spec §4.7. This only runs when the
// exact/FTS paths are empty, so scanning every name is acceptable; it is
// not the hot path.
func (s *Store) fuzzySuggestSymbols(pattern string, filter SymbolFilter, page Page) ([]*Symbol, int, error) {
	where, args := buildSymbolWhere(filter)
	rows, err := s.db.Query(symbolSelect+where, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	all, err := scanSymbols(rows)
	if err != nil {
		return nil, 0, err
	}

	type scored struct {
		sym   *Symbol
		score float32
	}
	var candidates []scored
	for _, sym := range all {
		if filter.FileGlob != "" && !matchesGlob(filter.FileGlob, sym.File) {
			continue
		}
		if filter.Name.Glob != "" && !matchesGlob(filter.Name.Glob, sym.Name) {
			continue
		}
		sim, err := edlib.StringsSimilarity(pattern, sym.Name, edlib.JaroWinkler)
		if err != nil {
			continue
		}
		if sim < 0.5 {
			continue
		}
		candidates = append(candidates, scored{sym, sim})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].sym.Name < candidates[j].sym.Name
	})

	total := len(candidates)
	lo := page.Offset
	if lo > total {
		lo = total
	}
	hi := lo + page.Limit
	if hi > total {
		hi = total
	}
	out := make([]*Symbol, 0, hi-lo)
	for _, c := range candidates[lo:hi] {
		out = append(out, c.sym)
	}
	return out, total, nil
}
