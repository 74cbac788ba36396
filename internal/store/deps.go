package store

// DependenciesOf returns the files path directly depends on (forward
// direction: from_file = path).
func (s *Store) DependenciesOf(path string) ([]*FileDependency, error) {
	return s.queryDeps(`SELECT from_file, to_file, kind FROM file_dependencies WHERE from_file = ?`, path)
}

// DependentsOf returns the files that directly depend on path (reverse
// direction, using the (to_file,from_file) index).
func (s *Store) DependentsOf(path string) ([]*FileDependency, error) {
	return s.queryDeps(`SELECT from_file, to_file, kind FROM file_dependencies WHERE to_file = ?`, path)
}

// AllDependencies returns every file_dependencies row, used by the
// Dependency Graph cache to build its forward/reverse maps at daemon
// start (spec §4.6).
func (s *Store) AllDependencies() ([]*FileDependency, error) {
	return s.queryDeps(`SELECT from_file, to_file, kind FROM file_dependencies`)
}

func (s *Store) queryDeps(query string, args ...any) ([]*FileDependency, error) {
	rows, err := s.queryStmt(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*FileDependency
	for rows.Next() {
		var d FileDependency
		if err := rows.Scan(&d.FromFile, &d.ToFile, &d.Kind); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

// TopologicalSort orders files using Kahn's algorithm so that every
// dependency precedes its dependent, restricted to the edges among
// files in the supplied subset. Files participating in a cycle are
// appended, in arbitrary order, after every cycle-free node has been
// emitted; no error is raised (spec §4.3, P4).
func (s *Store) TopologicalSort(files []string) ([]string, error) {
	set := make(map[string]bool, len(files))
	for _, f := range files {
		set[f] = true
	}

	indegree := make(map[string]int, len(files))
	forward := make(map[string][]string, len(files))
	for _, f := range files {
		indegree[f] = 0
	}

	deps, err := s.AllDependencies()
	if err != nil {
		return nil, err
	}
	for _, d := range deps {
		if !set[d.FromFile] || !set[d.ToFile] {
			continue
		}
		// from_file depends on to_file: to_file must precede from_file.
		forward[d.ToFile] = append(forward[d.ToFile], d.FromFile)
		indegree[d.FromFile]++
	}

	var queue []string
	for _, f := range files {
		if indegree[f] == 0 {
			queue = append(queue, f)
		}
	}

	var order []string
	seen := make(map[string]bool, len(files))
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		order = append(order, cur)
		for _, next := range forward[cur] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) < len(files) {
		for _, f := range files {
			if !seen[f] {
				order = append(order, f)
				seen[f] = true
			}
		}
	}

	return order, nil
}
