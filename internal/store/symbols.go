package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// SymbolByID returns a symbol by its deterministic id, or sql.ErrNoRows.
func (s *Store) SymbolByID(id string) (*Symbol, error) {
	row, err := s.queryRowStmt(symbolSelect+` WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	return scanSymbol(row)
}

// SymbolsByIDs is a batched fetch; order-preserving is not required.
func (s *Store) SymbolsByIDs(ids []string) ([]*Symbol, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := symbolSelect + ` WHERE id IN (` + placeholderList(len(ids)) + `)`
	rows, err := s.db.Query(query, stringsToArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// SymbolsInFile returns every symbol declared in path, ordered by start.
func (s *Store) SymbolsInFile(path string) ([]*Symbol, error) {
	rows, err := s.queryStmt(symbolSelect+` WHERE file = ? ORDER BY start`, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// SymbolsCoveringOffset returns every symbol in path whose [start,end)
// span contains offset, ordered by ascending span width (narrowest
// first) — the core of the narrowest-enclosing rule in spec §4.7.
func (s *Store) SymbolsCoveringOffset(path string, offset int) ([]*Symbol, error) {
	rows, err := s.queryStmt(symbolSelect+` WHERE file = ? AND start <= ? AND end > ? ORDER BY (end - start) ASC`,
		path, offset, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// NameFilter describes the supported name-matching modes for
// list_symbols_filtered.
type NameFilter struct {
	Exact      string
	Glob       string
	Substring  string
	IgnoreCase bool
}

// SymbolFilter is the composable filter for list_symbols_filtered (spec
// §4.3). Zero values mean "unconstrained".
type SymbolFilter struct {
	FileExact     string
	FileDirPrefix string
	FileGlob      string
	Kind          string
	Name          NameFilter
	QualifierPrefix string
	Container     string
	Visibility    string
}

// Page is a simple offset/limit page request with a sane cap, mirroring
// the teacher's Pagination type.
type Page struct {
	Offset int
	Limit  int
}

const defaultLimit = 50
const maxLimit = 500

func (p Page) normalize() Page {
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// ListSymbolsFiltered implements the hot query surface's
// list_symbols_filtered design (spec §4.3): a composable filter with
// LIMIT/OFFSET pagination, returning the total match count alongside the
// page of results for keyset-style continuation by callers.
func (s *Store) ListSymbolsFiltered(filter SymbolFilter, page Page) ([]*Symbol, int, error) {
	page = page.normalize()
	where, args := buildSymbolWhere(filter)

	if filter.FileGlob == "" && filter.Name.Glob == "" {
		var total int
		countQuery := `SELECT count(*) FROM symbols` + where
		if err := s.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("counting filtered symbols: %w", err)
		}

		dataQuery := symbolSelect + where + ` ORDER BY file, start LIMIT ? OFFSET ?`
		dataArgs := append(append([]any{}, args...), page.Limit, page.Offset)
		rows, err := s.db.Query(dataQuery, dataArgs...)
		if err != nil {
			return nil, 0, fmt.Errorf("listing filtered symbols: %w", err)
		}
		defer rows.Close()
		syms, err := scanSymbols(rows)
		return syms, total, err
	}

	// FileGlob/Name.Glob express patterns (alternation, "**") that SQL
	// LIKE can't, so fetch every row the SQL-expressible clauses admit,
	// apply the glob in Go, and paginate the filtered slice.
	rows, err := s.db.Query(symbolSelect+where+` ORDER BY file, start`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing filtered symbols: %w", err)
	}
	defer rows.Close()
	all, err := scanSymbols(rows)
	if err != nil {
		return nil, 0, err
	}

	matched := make([]*Symbol, 0, len(all))
	for _, sym := range all {
		if filter.FileGlob != "" && !matchesGlob(filter.FileGlob, sym.File) {
			continue
		}
		if filter.Name.Glob != "" && !matchesGlob(filter.Name.Glob, sym.Name) {
			continue
		}
		matched = append(matched, sym)
	}

	total := len(matched)
	start := page.Offset
	if start > total {
		start = total
	}
	end := start + page.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// SearchSymbols runs the fuzzy-search surface: first the FTS5 trigram
// index over name+qualifier, falling back to edit-distance ranking (via
// go-edlib) against every symbol name when FTS returns nothing — the
// "name-fallback search" named in spec §4.7.
func (s *Store) SearchSymbols(pattern string, filter SymbolFilter, page Page) ([]*Symbol, int, error) {
	page = page.normalize()
	where, args := buildSymbolWhere(filter)
	args = append(args, ftsQuery(pattern), page.Limit, page.Offset)
	ftsRows, err := s.db.Query(
		`SELECT s.id, s.file, s.kind, s.name, s.start, s.end, s.qualifier, s.visibility, s.container, s.content_hash, s.is_test
		 FROM symbols_fts f JOIN (SELECT rowid AS rid, * FROM symbols`+where+`) s ON s.rid = f.rowid
		 WHERE symbols_fts MATCH ? ORDER BY rank LIMIT ? OFFSET ?`,
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("fts search %q: %w", pattern, err)
	}
	defer ftsRows.Close()
	syms, err := scanSymbols(ftsRows)
	if err != nil {
		return nil, 0, err
	}
	if len(syms) > 0 {
		return syms, len(syms), nil
	}
	return s.fuzzySuggestSymbols(pattern, filter, page)
}

func ftsQuery(pattern string) string {
	// trigram tokenizer matches substrings; quote to treat the pattern as
	// a literal phrase rather than FTS5 query syntax.
	escaped := strings.ReplaceAll(pattern, `"`, `""`)
	return `"` + escaped + `"`
}

func buildSymbolWhere(f SymbolFilter) (string, []any) {
	var clauses []string
	var args []any

	switch {
	case f.FileExact != "":
		clauses = append(clauses, "file = ?")
		args = append(args, f.FileExact)
	case f.FileDirPrefix != "":
		clauses = append(clauses, "file LIKE ?")
		args = append(args, strings.TrimSuffix(f.FileDirPrefix, "/")+"/%")
	}
	if f.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, f.Kind)
	}
	if f.QualifierPrefix != "" {
		clauses = append(clauses, "qualifier LIKE ?")
		args = append(args, escapeLike(f.QualifierPrefix)+"%")
	}
	if f.Container != "" {
		clauses = append(clauses, "container = ?")
		args = append(args, f.Container)
	}
	if f.Visibility != "" {
		clauses = append(clauses, "visibility = ?")
		args = append(args, f.Visibility)
	}
	switch {
	case f.Name.Exact != "":
		if f.Name.IgnoreCase {
			clauses = append(clauses, "name = ? COLLATE NOCASE")
		} else {
			clauses = append(clauses, "name = ?")
		}
		args = append(args, f.Name.Exact)
	case f.Name.Substring != "":
		clauses = append(clauses, "name LIKE ?")
		args = append(args, "%"+escapeLike(f.Name.Substring)+"%")
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// matchesGlob applies a doublestar glob (e.g. "src/**/*.go" for file
// filters or "Get*" for name filters) in Go, used where SQL LIKE can't
// express the pattern (glob classes, alternation).
func matchesGlob(glob, value string) bool {
	ok, _ := doublestar.Match(glob, value)
	return ok
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

const symbolSelect = `SELECT id, file, kind, name, start, end, qualifier, visibility, container, content_hash, is_test FROM symbols`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSymbol(row rowScanner) (*Symbol, error) {
	var sym Symbol
	var isTest int
	if err := row.Scan(&sym.ID, &sym.File, &sym.Kind, &sym.Name, &sym.Start, &sym.End,
		&sym.Qualifier, &sym.Visibility, &sym.Container, &sym.ContentHash, &isTest); err != nil {
		return nil, err
	}
	sym.IsTest = isTest != 0
	return &sym, nil
}

func scanSymbols(rows *sql.Rows) ([]*Symbol, error) {
	var out []*Symbol
	for rows.Next() {
		sym, err := scanSymbol(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

func placeholderList(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

func stringsToArgs(ss []string) []any {
	args := make([]any, len(ss))
	for i, s := range ss {
		args[i] = s
	}
	return args
}
