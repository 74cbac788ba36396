package store

import (
	"database/sql"
	"fmt"
)

// FileByPath returns the file row for path, or sql.ErrNoRows if absent.
func (s *Store) FileByPath(path string) (*File, error) {
	row := s.db.QueryRow(`SELECT path, content_hash, mtime, indexed_at FROM files WHERE path = ?`, path)
	var f File
	if err := row.Scan(&f.Path, &f.ContentHash, &f.Mtime, &f.IndexedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

// ListPaths returns every indexed file path.
func (s *Store) ListPaths() (map[string]bool, error) {
	rows, err := s.db.Query(`SELECT path FROM files`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]bool{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = true
	}
	return out, rows.Err()
}

// AllFiles returns every file row.
func (s *Store) AllFiles() ([]*File, error) {
	rows, err := s.db.Query(`SELECT path, content_hash, mtime, indexed_at FROM files`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.Path, &f.ContentHash, &f.Mtime, &f.IndexedAt); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

// ReplaceFile atomically replaces every row belonging to file.Path: it
// deletes prior symbols/edges/references/import-bindings for the path,
// inserts the new ParseResult rows, upserts the file row, and recomputes
// the file_stats rollup — all within a single transaction, per spec
// §4.3's "Atomically replace all rows for a file on reindex".
func (s *Store) ReplaceFile(file *File, symbols []*Symbol, edges []*Edge, refs []*Reference, deps []*FileDependency, imports []*ImportBinding) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := deleteFileRowsTx(tx, file.Path); err != nil {
		return err
	}

	if _, err := tx.Exec(`INSERT INTO files(path, content_hash, mtime, indexed_at) VALUES (?,?,?,?)
		ON CONFLICT(path) DO UPDATE SET content_hash=excluded.content_hash, mtime=excluded.mtime, indexed_at=excluded.indexed_at`,
		file.Path, file.ContentHash, file.Mtime, file.IndexedAt); err != nil {
		return fmt.Errorf("upserting file %s: %w", file.Path, err)
	}

	for _, sym := range symbols {
		if _, err := tx.Exec(`INSERT INTO symbols(id, file, kind, name, start, end, qualifier, visibility, container, content_hash, is_test)
			VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
			sym.ID, sym.File, sym.Kind, sym.Name, sym.Start, sym.End, sym.Qualifier, sym.Visibility, sym.Container, sym.ContentHash, boolToInt(sym.IsTest)); err != nil {
			return fmt.Errorf("inserting symbol %s: %w", sym.ID, err)
		}
	}

	for _, e := range edges {
		if _, err := tx.Exec(`INSERT INTO edges(src, dst, kind) VALUES (?,?,?)`, e.Src, e.Dst, e.Kind); err != nil {
			return fmt.Errorf("inserting edge %s->%s: %w", e.Src, e.Dst, err)
		}
	}

	for _, r := range refs {
		if _, err := tx.Exec(`INSERT INTO references_tbl(file, start, end, symbol_id) VALUES (?,?,?,?)`,
			r.File, r.Start, r.End, r.SymbolID); err != nil {
			return fmt.Errorf("inserting reference at %s:%d-%d: %w", r.File, r.Start, r.End, err)
		}
	}

	for _, d := range deps {
		if _, err := tx.Exec(`INSERT INTO file_dependencies(from_file, to_file, kind) VALUES (?,?,?)
			ON CONFLICT(from_file, to_file) DO UPDATE SET kind=excluded.kind`, d.FromFile, d.ToFile, d.Kind); err != nil {
			return fmt.Errorf("inserting dependency %s->%s: %w", d.FromFile, d.ToFile, err)
		}
	}

	for _, ib := range imports {
		if _, err := tx.Exec(`INSERT INTO import_bindings(file, local_name, original_name, source_file, import_text) VALUES (?,?,?,?,?)
			ON CONFLICT(file, local_name) DO UPDATE SET original_name=excluded.original_name, source_file=excluded.source_file, import_text=excluded.import_text`,
			ib.File, ib.LocalName, ib.OriginalName, ib.SourceFile, ib.ImportText); err != nil {
			return fmt.Errorf("inserting import binding %s/%s: %w", ib.File, ib.LocalName, err)
		}
	}

	if err := recomputeFileStatsTx(tx, file.Path); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteFile removes file and every row across the schema that
// references it, per invariant I4: symbols, edges originating from its
// symbols, references, file_stats, import bindings, and dependencies in
// both directions.
func (s *Store) DeleteFile(path string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := deleteFileRowsTx(tx, path); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM file_dependencies WHERE to_file = ?`, path); err != nil {
		return fmt.Errorf("deleting incoming file_dependencies for %s: %w", path, err)
	}
	if _, err := tx.Exec(`DELETE FROM files WHERE path = ?`, path); err != nil {
		return err
	}
	return tx.Commit()
}

func deleteFileRowsTx(tx *sql.Tx, path string) error {
	// Edges originate from symbols belonging to this file; delete those
	// before the symbols themselves so stale src ids never survive.
	if _, err := tx.Exec(`DELETE FROM edges WHERE src IN (SELECT id FROM symbols WHERE file = ?)`, path); err != nil {
		return fmt.Errorf("deleting edges for %s: %w", path, err)
	}
	if _, err := tx.Exec(`DELETE FROM symbols WHERE file = ?`, path); err != nil {
		return fmt.Errorf("deleting symbols for %s: %w", path, err)
	}
	if _, err := tx.Exec(`DELETE FROM references_tbl WHERE file = ?`, path); err != nil {
		return fmt.Errorf("deleting references for %s: %w", path, err)
	}
	if _, err := tx.Exec(`DELETE FROM file_stats WHERE file = ?`, path); err != nil {
		return fmt.Errorf("deleting file_stats for %s: %w", path, err)
	}
	if _, err := tx.Exec(`DELETE FROM import_bindings WHERE file = ?`, path); err != nil {
		return fmt.Errorf("deleting import_bindings for %s: %w", path, err)
	}
	if _, err := tx.Exec(`DELETE FROM file_dependencies WHERE from_file = ?`, path); err != nil {
		return fmt.Errorf("deleting file_dependencies for %s: %w", path, err)
	}
	return nil
}

func recomputeFileStatsTx(tx *sql.Tx, path string) error {
	rows, err := tx.Query(`SELECT kind FROM symbols WHERE file = ?`, path)
	if err != nil {
		return err
	}
	defer rows.Close()
	var stats FileStats
	stats.File = path
	for rows.Next() {
		var kind string
		if err := rows.Scan(&kind); err != nil {
			return err
		}
		stats.SymbolCount++
		isFunc, isClass, isIface := classify(kind)
		if isFunc {
			stats.FunctionCount++
		}
		if isClass {
			stats.ClassCount++
		}
		if isIface {
			stats.InterfaceCount++
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if stats.SymbolCount == 0 {
		// Boundary behavior (spec §8): an empty file indexes with zero
		// symbols and no file_stats row, not a zeroed-out row.
		return nil
	}
	_, err = tx.Exec(`INSERT INTO file_stats(file, symbol_count, function_count, class_count, interface_count) VALUES (?,?,?,?,?)
		ON CONFLICT(file) DO UPDATE SET symbol_count=excluded.symbol_count, function_count=excluded.function_count, class_count=excluded.class_count, interface_count=excluded.interface_count`,
		stats.File, stats.SymbolCount, stats.FunctionCount, stats.ClassCount, stats.InterfaceCount)
	return err
}

// FileStatsFor returns the file_stats row for path, or nil if absent
// (which is itself a valid state for an empty file).
func (s *Store) FileStatsFor(path string) (*FileStats, error) {
	row := s.db.QueryRow(`SELECT file, symbol_count, function_count, class_count, interface_count FROM file_stats WHERE file = ?`, path)
	var fs FileStats
	if err := row.Scan(&fs.File, &fs.SymbolCount, &fs.FunctionCount, &fs.ClassCount, &fs.InterfaceCount); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &fs, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
