package gabb

import "github.com/jward/gabb/internal/store"

// Callers returns symbols with a "calls" edge pointing at id.
func (q *QueryBuilder) Callers(id string, transitive bool) ([]*store.Symbol, error) {
	return q.store.Callers(id, transitive)
}

// Callees returns symbols id calls.
func (q *QueryBuilder) Callees(id string, transitive bool) ([]*store.Symbol, error) {
	return q.store.Callees(id, transitive)
}

// Supertypes returns id's extends/implements/trait_impl targets.
func (q *QueryBuilder) Supertypes(id string, transitive bool) ([]*store.Symbol, error) {
	return q.store.Supertypes(id, transitive)
}

// Subtypes returns symbols whose supertype edges point at id.
func (q *QueryBuilder) Subtypes(id string, transitive bool) ([]*store.Symbol, error) {
	return q.store.Subtypes(id, transitive)
}

// Dependencies returns the files path directly depends on, preferring
// the in-memory dependency cache when one is loaded.
func (q *QueryBuilder) Dependencies(path string) ([]string, error) {
	if q.graph != nil {
		return q.graph.GetDependencies(path), nil
	}
	deps, err := q.store.DependenciesOf(path)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(deps))
	for i, d := range deps {
		out[i] = d.ToFile
	}
	return out, nil
}

// Dependents returns the files that directly depend on path.
func (q *QueryBuilder) Dependents(path string) ([]string, error) {
	if q.graph != nil {
		return q.graph.GetDependents(path), nil
	}
	deps, err := q.store.DependentsOf(path)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(deps))
	for i, d := range deps {
		out[i] = d.FromFile
	}
	return out, nil
}

// InvalidationSet returns the ordered set of files that must be
// re-resolved after changed is reindexed, using the in-memory
// dependency cache.
func (q *QueryBuilder) InvalidationSet(changed string) []string {
	if q.graph == nil {
		return nil
	}
	return q.graph.GetInvalidationSet(changed)
}

// TopologicalOrder is a pass-through to the Store's Kahn's-algorithm
// sort, restricted to files.
func (q *QueryBuilder) TopologicalOrder(files []string) ([]string, error) {
	return q.store.TopologicalSort(files)
}
