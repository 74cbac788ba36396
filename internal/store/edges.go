package store

import "fmt"

// EdgesFrom returns every edge whose src is symbolID, using the
// (src,dst,kind) covering index.
func (s *Store) EdgesFrom(symbolID string) ([]*Edge, error) {
	return s.queryEdges(`SELECT src, dst, kind FROM edges WHERE src = ?`, symbolID)
}

// EdgesTo returns every edge whose dst is symbolID, using the
// (dst,src,kind) covering index.
func (s *Store) EdgesTo(symbolID string) ([]*Edge, error) {
	return s.queryEdges(`SELECT src, dst, kind FROM edges WHERE dst = ?`, symbolID)
}

func (s *Store) queryEdges(query string, args ...any) ([]*Edge, error) {
	rows, err := s.queryStmt(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Edge
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.Src, &e.Dst, &e.Kind); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// GetUnresolvedEdges returns every edge whose dst is still a placeholder
// (§4.5 Phase A/B two-phase resolution).
func (s *Store) GetUnresolvedEdges() ([]*Edge, error) {
	all, err := s.queryEdges(`SELECT src, dst, kind FROM edges`)
	if err != nil {
		return nil, err
	}
	var out []*Edge
	for _, e := range all {
		if e.IsPlaceholder() {
			out = append(out, e)
		}
	}
	return out, nil
}

// UpdateEdgeDestination rewrites a placeholder edge (src, oldDst) into a
// resolved one (src, newDst), per spec §4.5 Phase B. It updates every
// matching row (an edge multi-set may have duplicates).
func (s *Store) UpdateEdgeDestination(src, oldDst, newDst string) error {
	_, err := s.execStmt(`UPDATE edges SET dst = ? WHERE src = ? AND dst = ?`, newDst, src, oldDst)
	if err != nil {
		return fmt.Errorf("resolving edge %s->%s: %w", src, oldDst, err)
	}
	return nil
}

var supertypeKinds = []string{"extends", "implements", "trait_impl"}
var callKinds = []string{"calls"}

// Supertypes returns the symbols directly (or, if transitive, through
// BFS over) extends/implements/trait_impl edges originating from id.
// The origin id is never included in the results.
func (s *Store) Supertypes(id string, transitive bool) ([]*Symbol, error) {
	return s.traverseGraph(id, supertypeKinds, true, transitive)
}

// Subtypes is the reverse of Supertypes: symbols whose supertype edges
// point at id.
func (s *Store) Subtypes(id string, transitive bool) ([]*Symbol, error) {
	return s.traverseGraph(id, supertypeKinds, false, transitive)
}

// Callers returns symbols with a "calls" edge pointing at id (directly,
// or transitively via BFS).
func (s *Store) Callers(id string, transitive bool) ([]*Symbol, error) {
	return s.traverseGraph(id, callKinds, false, transitive)
}

// Callees returns symbols id calls (directly, or transitively via BFS).
func (s *Store) Callees(id string, transitive bool) ([]*Symbol, error) {
	return s.traverseGraph(id, callKinds, true, transitive)
}

// traverseGraph performs BFS over edges of the given kinds, starting
// from id. forward=true walks src->dst (id is src, looking for dst);
// forward=false walks dst->src (id is dst, looking for src). The origin
// is excluded from the result set, per spec §4.3's graph-helper
// contract. Non-transitive calls stop after one hop.
func (s *Store) traverseGraph(id string, kinds []string, forward bool, transitive bool) ([]*Symbol, error) {
	visited := map[string]bool{id: true}
	frontier := []string{id}
	var foundIDs []string

	for depth := 0; len(frontier) > 0; depth++ {
		if depth > 0 && !transitive {
			break
		}
		var next []string
		for _, cur := range frontier {
			neighbors, err := s.neighbors(cur, kinds, forward)
			if err != nil {
				return nil, err
			}
			for _, n := range neighbors {
				if visited[n] {
					continue
				}
				visited[n] = true
				foundIDs = append(foundIDs, n)
				next = append(next, n)
			}
		}
		frontier = next
	}

	return s.SymbolsByIDs(foundIDs)
}

func (s *Store) neighbors(id string, kinds []string, forward bool) ([]string, error) {
	col, other := "src", "dst"
	if !forward {
		col, other = "dst", "src"
	}
	query := fmt.Sprintf(`SELECT %s FROM edges WHERE %s = ? AND kind IN (%s)`, other, col, placeholderList(len(kinds)))
	args := append([]any{id}, stringsToArgs(kinds)...)
	rows, err := s.queryStmt(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
