package store

import (
	"os"
	"time"

	"github.com/jward/gabb/internal/langutil"
	"github.com/jward/gabb/internal/schema"
)

// TotalStats aggregates FileStats across the whole index.
type TotalStats struct {
	FileCount      int
	SymbolCount    int
	FunctionCount  int
	ClassCount     int
	InterfaceCount int
}

// GetTotalStats sums file_stats across every file.
func (s *Store) GetTotalStats() (*TotalStats, error) {
	row := s.db.QueryRow(`SELECT count(*), COALESCE(sum(symbol_count),0), COALESCE(sum(function_count),0), COALESCE(sum(class_count),0), COALESCE(sum(interface_count),0) FROM file_stats`)
	var t TotalStats
	if err := row.Scan(&t.FileCount, &t.SymbolCount, &t.FunctionCount, &t.ClassCount, &t.InterfaceCount); err != nil {
		return nil, err
	}
	return &t, nil
}

// IndexStats is the aggregate report named in spec §4.3's
// get_index_stats(): files grouped by language, symbols grouped by
// kind, DB size, last-updated timestamp, schema version, and the list
// of files whose most recent index attempt failed to parse.
type IndexStats struct {
	FilesByLanguage map[string]int
	SymbolsByKind   map[string]int
	DBSizeBytes     int64
	LastUpdated     string
	SchemaVersion   string
	ParseFailures   []string
}

// GetIndexStats computes the full aggregate report.
func (s *Store) GetIndexStats() (*IndexStats, error) {
	stats := &IndexStats{
		FilesByLanguage: map[string]int{},
		SymbolsByKind:   map[string]int{},
	}

	files, err := s.AllFiles()
	if err != nil {
		return nil, err
	}
	var lastUpdated int64
	for _, f := range files {
		lang := langutil.ForPath(f.Path)
		if lang == "" {
			lang = "unknown"
		}
		stats.FilesByLanguage[lang]++
		if f.IndexedAt > lastUpdated {
			lastUpdated = f.IndexedAt
		}
	}
	if lastUpdated > 0 {
		stats.LastUpdated = time.Unix(lastUpdated, 0).UTC().Format(time.RFC3339)
	}

	rows, err := s.db.Query(`SELECT kind, count(*) FROM symbols GROUP BY kind`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		stats.SymbolsByKind[kind] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if info, err := os.Stat(s.dbPath); err == nil {
		stats.DBSizeBytes = info.Size()
	}

	meta, err := s.SchemaMeta()
	if err != nil {
		return nil, err
	}
	if v, ok := meta["schema_version"]; ok {
		stats.SchemaVersion = v
	} else {
		stats.SchemaVersion = schema.Current().String()
	}

	stats.ParseFailures = s.parseFailures()

	return stats, nil
}

// parseFailures is populated by the Indexer as files fail to parse
// during the most recent pass (spec §4.8: parse failures log at WARN
// and don't abort indexing, but get_index_stats reports them).
func (s *Store) parseFailures() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.lastParseFailures))
	copy(out, s.lastParseFailures)
	return out
}

// SetParseFailures records the set of paths that failed to parse during
// the most recent indexing pass, for surfacing via GetIndexStats.
func (s *Store) SetParseFailures(paths []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastParseFailures = append([]string(nil), paths...)
}
