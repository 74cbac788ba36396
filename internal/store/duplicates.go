package store

// DuplicateGroup is a set of symbols sharing the same content_hash.
type DuplicateGroup struct {
	ContentHash string
	Symbols     []*Symbol
}

// FindDuplicateGroups selects content hashes occurring at least minCount
// times, optionally filtered by kind and a file directory prefix, then
// fetches their full symbol sets. Groups are ordered by descending
// count, per spec §4.7's duplicate-detection design.
func (s *Store) FindDuplicateGroups(minCount int, kindFilter, filePrefixFilter string) ([]*DuplicateGroup, error) {
	if minCount < 2 {
		minCount = 2
	}

	query := `SELECT content_hash, count(*) as c FROM symbols WHERE content_hash != ''`
	var args []any
	if kindFilter != "" {
		query += ` AND kind = ?`
		args = append(args, kindFilter)
	}
	if filePrefixFilter != "" {
		query += ` AND file LIKE ?`
		args = append(args, escapeLike(filePrefixFilter)+"%")
	}
	query += ` GROUP BY content_hash HAVING c >= ? ORDER BY c DESC`
	args = append(args, minCount)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type hashCount struct {
		hash  string
		count int
	}
	var hashes []hashCount
	for rows.Next() {
		var hc hashCount
		if err := rows.Scan(&hc.hash, &hc.count); err != nil {
			return nil, err
		}
		hashes = append(hashes, hc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var groups []*DuplicateGroup
	for _, hc := range hashes {
		symQuery := `SELECT id, file, kind, name, start, end, qualifier, visibility, container, content_hash, is_test FROM symbols WHERE content_hash = ?`
		symArgs := []any{hc.hash}
		if kindFilter != "" {
			symQuery += ` AND kind = ?`
			symArgs = append(symArgs, kindFilter)
		}
		if filePrefixFilter != "" {
			symQuery += ` AND file LIKE ?`
			symArgs = append(symArgs, escapeLike(filePrefixFilter)+"%")
		}
		symRows, err := s.db.Query(symQuery, symArgs...)
		if err != nil {
			return nil, err
		}
		syms, err := scanSymbols(symRows)
		symRows.Close()
		if err != nil {
			return nil, err
		}
		groups = append(groups, &DuplicateGroup{ContentHash: hc.hash, Symbols: syms})
	}

	return groups, nil
}
