// Package gabb implements a persistent code-intelligence index for a
// multi-language source tree: a daemon watches a workspace, dispatches
// each file to a language walker, and maintains an on-disk SQLite index
// of symbol definitions, inter-symbol edges, textual references, file
// dependencies, and import bindings.
//
// Engine ties the pieces together: internal/store for persistence,
// internal/indexer for the parse-and-write pipeline, internal/depgraph
// for the in-memory dependency cache, and internal/walker for the
// per-language parser contract. The query surface in this package
// (QueryBuilder) is the read-only API a CLI or MCP server builds on.
package gabb
