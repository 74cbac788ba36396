package gabb

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jward/gabb/internal/config"
	"github.com/jward/gabb/internal/depgraph"
	"github.com/jward/gabb/internal/indexer"
	"github.com/jward/gabb/internal/pathutil"
	"github.com/jward/gabb/internal/store"
	"github.com/jward/gabb/internal/walker"
	"github.com/jward/gabb/internal/walkers/golang"
	"github.com/jward/gabb/internal/walkers/python"
	"github.com/jward/gabb/internal/walkers/rust"
	"github.com/jward/gabb/internal/walkers/typescript"
)

// Engine orchestrates the index pipeline: a Store, an Indexer driving
// the walker Registry, and an in-memory Dependency Graph cache. It is
// the library entry point cmd/gabb's query commands build on; the
// daemon drives an Indexer directly instead.
type Engine struct {
	Store    *store.Store
	Indexer  *indexer.Indexer
	Graph    *depgraph.Graph
	Registry *walker.Registry

	workspaceRoot string
}

// Option configures an Engine at construction.
type Option func(*engineConfig)

type engineConfig struct {
	logger *slog.Logger
}

// WithLogger sets the *slog.Logger the Indexer logs through. Defaults
// to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *engineConfig) { c.logger = l }
}

// DefaultRegistry wires every walker this build ships against the file
// extensions it claims, per spec §4.4's extension dispatch. Exported so
// cmd/gabb can build an Indexer directly against a Store it opened
// itself (e.g. via the §4.2 compatibility gate) without a full Engine.
func DefaultRegistry() *walker.Registry {
	reg := walker.NewRegistry()
	reg.Register(".go", golang.Walk)
	reg.Register(".rs", rust.Walk)
	reg.Register(".ts", typescript.Walk)
	reg.Register(".tsx", typescript.Walk)
	reg.Register(".py", python.Walk)
	return reg
}

// Open opens (or creates) the index database at dbPath, wires the
// walker registry and dependency cache, and returns a ready Engine.
// Callers that need the §4.2 compatibility gate should call
// store.TryOpen themselves and pass the resulting Store via OpenWith.
func Open(workspaceRoot, dbPath string, opts ...Option) (*Engine, error) {
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return OpenWith(workspaceRoot, s, opts...)
}

// OpenWith builds an Engine around an already-open Store, used by
// cmd/gabb's query commands, which open the Store through the
// auto-bootstrap gate.
func OpenWith(workspaceRoot string, s *store.Store, opts ...Option) (*Engine, error) {
	cfg := &engineConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	reg := DefaultRegistry()
	ix := indexer.New(s, reg, cfg.logger)

	if c, err := config.Load(workspaceRoot); err == nil {
		ix = ix.WithExcludes(c.ExcludeDirs, c.ExcludeGlobs)
	} else {
		cfg.logger.Warn("ignoring malformed .gabb/config.hcl", "error", err)
	}

	graph, err := depgraph.Load(s)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("loading dependency graph: %w", err)
	}

	return &Engine{
		Store:         s,
		Indexer:       ix,
		Graph:         graph,
		Registry:      reg,
		workspaceRoot: workspaceRoot,
	}, nil
}

// Close releases the underlying Store connection.
func (e *Engine) Close() error {
	return e.Store.Close()
}

// IndexAll runs a full index of the workspace root, reporting progress
// through fn (may be nil).
func (e *Engine) IndexAll(ctx context.Context, fn indexer.ProgressFunc) error {
	return e.Indexer.IndexDirectory(ctx, e.workspaceRoot, fn)
}

// IndexFile (re)indexes a single file and refreshes the in-memory
// dependency cache for it.
func (e *Engine) IndexFile(path string) error {
	if err := e.Indexer.IndexFile(path); err != nil {
		return err
	}
	deps, err := e.Store.DependenciesOf(path)
	if err == nil {
		e.Graph.UpdateFile(path, deps)
	}
	return nil
}

// RemoveFile deletes a file from the index and the dependency cache.
func (e *Engine) RemoveFile(path string) error {
	if err := e.Indexer.RemoveFile(path); err != nil {
		return err
	}
	e.Graph.RemoveFile(path)
	return nil
}

// WorkspaceRoot returns the root this Engine indexes.
func (e *Engine) WorkspaceRoot() string {
	return e.workspaceRoot
}

// Query returns a QueryBuilder bound to this Engine's Store.
func (e *Engine) Query() *QueryBuilder {
	return NewQueryBuilder(e.Store, e.Graph)
}

// ResolveWorkspaceRoot is a thin re-export of internal/pathutil's
// workspace-root search for callers (cmd/gabb) that only need the
// Path Normalizer component, not a full Engine.
func ResolveWorkspaceRoot(start string) (string, error) {
	return pathutil.WorkspaceRoot(start)
}
