// Package depgraph maintains the in-memory forward/reverse file
// dependency maps described in spec §4.6: loaded once from the Store when
// an Engine is opened, kept current by Engine.IndexFile/RemoveFile, and used
// to compute the set of files that need re-resolution when a file
// changes. Grounded on the teacher's in-memory blast-radius accumulation
// (engine.go's blastRadius map[int64]bool) but generalized from
// auto-increment file ids to path strings, and from a plain map to a
// RoaringBitmap-backed invalidation set (as standardbeagle-lci's
// dense-id caches do) via a path<->int interner, since Roaring only
// operates on integer ids.
package depgraph

import (
	"sync"

	"github.com/RoaringBitmap/roaring"

	"github.com/jward/gabb/internal/store"
)

// Graph is the in-memory, concurrency-safe dependency cache.
type Graph struct {
	mu      sync.RWMutex
	forward map[string]map[string]bool // from_file -> set of to_file
	reverse map[string]map[string]bool // to_file -> set of from_file

	interner *interner
}

// New builds an empty Graph.
func New() *Graph {
	return &Graph{
		forward:  map[string]map[string]bool{},
		reverse:  map[string]map[string]bool{},
		interner: newInterner(),
	}
}

// Load populates the Graph from every row in the store; gabb.OpenWith
// runs it once per Engine.
func Load(s *store.Store) (*Graph, error) {
	deps, err := s.AllDependencies()
	if err != nil {
		return nil, err
	}
	g := New()
	for _, d := range deps {
		g.addLocked(d.FromFile, d.ToFile)
	}
	return g, nil
}

func (g *Graph) addLocked(from, to string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.forward[from] == nil {
		g.forward[from] = map[string]bool{}
	}
	g.forward[from][to] = true
	if g.reverse[to] == nil {
		g.reverse[to] = map[string]bool{}
	}
	g.reverse[to][from] = true
	g.interner.intern(from)
	g.interner.intern(to)
}

// UpdateFile replaces from's forward edges with deps, keeping the
// reverse maps consistent, after a (re)index of from.
func (g *Graph) UpdateFile(from string, deps []*store.FileDependency) {
	g.mu.Lock()
	for to := range g.forward[from] {
		delete(g.reverse[to], from)
	}
	delete(g.forward, from)
	g.mu.Unlock()

	for _, d := range deps {
		g.addLocked(from, d.ToFile)
	}
}

// RemoveFile drops path from both maps, used when a file is deleted.
func (g *Graph) RemoveFile(path string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for to := range g.forward[path] {
		delete(g.reverse[to], path)
	}
	delete(g.forward, path)
	for from := range g.reverse[path] {
		delete(g.forward[from], path)
	}
	delete(g.reverse, path)
}

// GetDependencies returns the files path directly depends on.
func (g *Graph) GetDependencies(path string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return keys(g.forward[path])
}

// GetDependents returns the files that directly depend on path.
func (g *Graph) GetDependents(path string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return keys(g.reverse[path])
}

// GetInvalidationSet computes the transitive closure of files that
// depend on changed, directly or indirectly, via the reverse edges,
// then orders the result so that dependencies precede dependents
// (spec §4.6: "the invalidation set drives re-resolution order").
// The closure itself is computed over a RoaringBitmap of interned file
// ids, which keeps the working set compact when invalidation fans out
// across a large dependency graph.
func (g *Graph) GetInvalidationSet(changed string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := roaring.New()
	var order []string
	queue := []string{changed}
	originID, ok := g.interner.idFor(changed)
	if ok {
		visited.Add(originID)
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for dependent := range g.reverse[cur] {
			id, ok := g.interner.idFor(dependent)
			if !ok || visited.Contains(id) {
				continue
			}
			visited.Add(id)
			order = append(order, dependent)
			queue = append(queue, dependent)
		}
	}

	return g.topoSubset(order)
}

// topoSubset orders the given files (the changed file itself is not
// among them) via the same dependency-precedes-dependent rule as
// store.TopologicalSort, but using the in-memory forward map instead of
// a store round-trip.
func (g *Graph) topoSubset(files []string) []string {
	set := make(map[string]bool, len(files))
	for _, f := range files {
		set[f] = true
	}
	indegree := make(map[string]int, len(files))
	forward := make(map[string][]string, len(files))
	for _, f := range files {
		indegree[f] = 0
	}
	for from, tos := range g.forward {
		if !set[from] {
			continue
		}
		for to := range tos {
			if !set[to] {
				continue
			}
			forward[to] = append(forward[to], from)
			indegree[from]++
		}
	}

	var queue []string
	for _, f := range files {
		if indegree[f] == 0 {
			queue = append(queue, f)
		}
	}
	var out []string
	seen := make(map[string]bool, len(files))
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		out = append(out, cur)
		for _, next := range forward[cur] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	for _, f := range files {
		if !seen[f] {
			out = append(out, f)
		}
	}
	return out
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// interner assigns a dense uint32 id to each path seen, so the
// invalidation-set visited tracker can use a RoaringBitmap instead of a
// string-keyed set.
type interner struct {
	ids  map[string]uint32
	next uint32
}

func newInterner() *interner {
	return &interner{ids: map[string]uint32{}}
}

func (in *interner) intern(path string) uint32 {
	if id, ok := in.ids[path]; ok {
		return id
	}
	id := in.next
	in.next++
	in.ids[path] = id
	return id
}

func (in *interner) idFor(path string) (uint32, bool) {
	id, ok := in.ids[path]
	return id, ok
}
