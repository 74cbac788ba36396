// Package walker defines the Parser Output Contract (spec §4.4): the
// language-neutral shape every per-language walker must emit, and the
// registry the Engine uses to dispatch a file to its walker by
// extension. The walkers themselves — the tree-sitter grammars that
// implement Func below for a given language — are not part of the core
// spec; this package only fixes the boundary they must honor.
package walker

import "github.com/jward/gabb/internal/store"

// ParseResult is the output of parsing one file: every declaration,
// relationship, usage site, file dependency, and import binding the
// walker could identify, all keyed to byte offsets within source.
type ParseResult struct {
	Symbols      []*store.Symbol
	Edges        []*store.Edge
	References   []*store.Reference
	Dependencies []*store.FileDependency
	Imports      []*store.ImportBinding
}

// Func is the walker ABI: a pure function from (path, source) to a
// ParseResult. Implementations MUST NOT mutate source and MUST NOT
// retain it past the call.
//
// Obligations (spec §4.4):
//   - Symbol.Start/End MUST be byte offsets into source.
//   - Every identifiable declaration MUST be emitted, with Container set
//     to the enclosing definition's name when nested.
//   - Cross-file relationships MUST be emitted as edges with placeholder
//     destinations (store.IsPlaceholderDst), never left out.
//   - References MUST cover usage sites only; a reference whose span
//     equals a declaration's span MUST NOT be emitted.
//   - Import bindings record both local alias and original name;
//     wildcard imports use local name "*"; side-effect imports use "".
type Func func(path string, source []byte) (*ParseResult, error)

// Registry maps file extensions (including the leading dot, e.g. ".go")
// to the walker responsible for them. A file whose extension has no
// entry is silently skipped by full indexing and logged at debug, per
// spec §4.4's last sentence.
type Registry struct {
	byExt map[string]Func
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byExt: map[string]Func{}}
}

// Register binds ext (e.g. ".py") to fn. A later call for the same
// extension replaces the earlier one.
func (r *Registry) Register(ext string, fn Func) {
	r.byExt[ext] = fn
}

// Lookup returns the walker for ext, if any.
func (r *Registry) Lookup(ext string) (Func, bool) {
	fn, ok := r.byExt[ext]
	return fn, ok
}

// Extensions returns every registered extension.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	return out
}
