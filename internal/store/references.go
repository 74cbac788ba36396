package store

import "database/sql"

// ReferencesForSymbol returns every reference to symbolID using the
// (symbol_id,file,start,end) covering index.
func (s *Store) ReferencesForSymbol(symbolID string) ([]*Reference, error) {
	rows, err := s.queryStmt(`SELECT file, start, end, symbol_id FROM references_tbl WHERE symbol_id = ? ORDER BY file, start`, symbolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReferences(rows)
}

// ReferenceAtPosition returns the narrowest reference covering offset in
// path, i.e. the smallest [start,end) span containing it, or nil if none.
func (s *Store) ReferenceAtPosition(path string, offset int) (*Reference, error) {
	row, err := s.queryRowStmt(
		`SELECT file, start, end, symbol_id FROM references_tbl
		 WHERE file = ? AND start <= ? AND end > ?
		 ORDER BY (end - start) ASC LIMIT 1`,
		path, offset, offset)
	if err != nil {
		return nil, err
	}
	var r Reference
	if err := row.Scan(&r.File, &r.Start, &r.End, &r.SymbolID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

// ReferencesInFile returns every reference recorded in path.
func (s *Store) ReferencesInFile(path string) ([]*Reference, error) {
	rows, err := s.queryStmt(`SELECT file, start, end, symbol_id FROM references_tbl WHERE file = ? ORDER BY start`, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReferences(rows)
}

func scanReferences(rows *sql.Rows) ([]*Reference, error) {
	var out []*Reference
	for rows.Next() {
		var r Reference
		if err := rows.Scan(&r.File, &r.Start, &r.End, &r.SymbolID); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// GetImportBinding is the inverse-lookup used by the Query Resolver to
// annotate usage output: find the binding in usageFile that imports
// originalName from sourceFile.
func (s *Store) GetImportBinding(usageFile, sourceFile, originalName string) (*ImportBinding, error) {
	row, err := s.queryRowStmt(
		`SELECT file, local_name, original_name, source_file, import_text FROM import_bindings
		 WHERE file = ? AND source_file = ? AND original_name = ? LIMIT 1`,
		usageFile, sourceFile, originalName)
	if err != nil {
		return nil, err
	}
	var ib ImportBinding
	if err := row.Scan(&ib.File, &ib.LocalName, &ib.OriginalName, &ib.SourceFile, &ib.ImportText); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &ib, nil
}

// ImportBindingsByLocalName is used by Phase B to resolve a qualifier-
// free name used in a file back to the file that defines it.
func (s *Store) ImportBindingsByLocalName(file, localName string) (*ImportBinding, error) {
	row, err := s.queryRowStmt(
		`SELECT file, local_name, original_name, source_file, import_text FROM import_bindings
		 WHERE file = ? AND local_name = ? LIMIT 1`, file, localName)
	if err != nil {
		return nil, err
	}
	var ib ImportBinding
	if err := row.Scan(&ib.File, &ib.LocalName, &ib.OriginalName, &ib.SourceFile, &ib.ImportText); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &ib, nil
}
