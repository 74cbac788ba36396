package store

// schemaDDL creates every table, covering index, and FTS5 trigger the
// Store needs. Grounded on the original Rust implementation's
// init_schema (original_source/src/store.rs): table and column names are
// kept identical to that ground truth, translated into sqlite3's Go
// idiom the way the teacher's schemaDDL constant in store.go was written.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
	path        TEXT PRIMARY KEY,
	content_hash TEXT NOT NULL,
	mtime       INTEGER NOT NULL,
	indexed_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS symbols (
	id           TEXT PRIMARY KEY,
	file         TEXT NOT NULL,
	kind         TEXT NOT NULL,
	name         TEXT NOT NULL,
	start        INTEGER NOT NULL,
	end          INTEGER NOT NULL,
	qualifier    TEXT NOT NULL DEFAULT '',
	visibility   TEXT NOT NULL DEFAULT '',
	container    TEXT NOT NULL DEFAULT '',
	content_hash TEXT NOT NULL DEFAULT '',
	is_test      INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);
CREATE INDEX IF NOT EXISTS idx_symbols_position ON symbols(file, start, end);
CREATE INDEX IF NOT EXISTS idx_symbols_kind_name ON symbols(kind, name);
CREATE INDEX IF NOT EXISTS idx_symbols_content_hash ON symbols(content_hash);
CREATE INDEX IF NOT EXISTS idx_symbols_file_kind_name ON symbols(file, kind, name);
CREATE INDEX IF NOT EXISTS idx_symbols_kind_visibility ON symbols(kind, visibility);

CREATE TABLE IF NOT EXISTS edges (
	src  TEXT NOT NULL,
	dst  TEXT NOT NULL,
	kind TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_edges_src_covering ON edges(src, dst, kind);
CREATE INDEX IF NOT EXISTS idx_edges_dst_covering ON edges(dst, src, kind);

CREATE TABLE IF NOT EXISTS references_tbl (
	file      TEXT NOT NULL,
	start     INTEGER NOT NULL,
	end       INTEGER NOT NULL,
	symbol_id TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_refs_symbol_covering ON references_tbl(symbol_id, file, start, end);
CREATE INDEX IF NOT EXISTS idx_refs_file_position ON references_tbl(file, start, end, symbol_id);

CREATE VIRTUAL TABLE IF NOT EXISTS symbols_fts USING fts5(
	name, qualifier,
	content='symbols', content_rowid='rowid',
	tokenize='trigram'
);

CREATE TRIGGER IF NOT EXISTS symbols_ai AFTER INSERT ON symbols BEGIN
	INSERT INTO symbols_fts(rowid, name, qualifier) VALUES (new.rowid, new.name, new.qualifier);
END;

CREATE TRIGGER IF NOT EXISTS symbols_ad AFTER DELETE ON symbols BEGIN
	INSERT INTO symbols_fts(symbols_fts, rowid, name, qualifier) VALUES ('delete', old.rowid, old.name, old.qualifier);
END;

CREATE TRIGGER IF NOT EXISTS symbols_au AFTER UPDATE ON symbols BEGIN
	INSERT INTO symbols_fts(symbols_fts, rowid, name, qualifier) VALUES ('delete', old.rowid, old.name, old.qualifier);
	INSERT INTO symbols_fts(rowid, name, qualifier) VALUES (new.rowid, new.name, new.qualifier);
END;

CREATE TABLE IF NOT EXISTS file_stats (
	file            TEXT PRIMARY KEY,
	symbol_count    INTEGER NOT NULL DEFAULT 0,
	function_count  INTEGER NOT NULL DEFAULT 0,
	class_count     INTEGER NOT NULL DEFAULT 0,
	interface_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS file_dependencies (
	from_file TEXT NOT NULL,
	to_file   TEXT NOT NULL,
	kind      TEXT NOT NULL,
	PRIMARY KEY (from_file, to_file)
);

CREATE INDEX IF NOT EXISTS idx_deps_to_file ON file_dependencies(to_file, from_file);

CREATE TABLE IF NOT EXISTS import_bindings (
	file          TEXT NOT NULL,
	local_name    TEXT NOT NULL,
	original_name TEXT NOT NULL,
	source_file   TEXT NOT NULL DEFAULT '',
	import_text   TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (file, local_name)
);

CREATE INDEX IF NOT EXISTS idx_imports_source ON import_bindings(source_file, original_name);

CREATE TABLE IF NOT EXISTS schema_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// pragmaDDL tunes SQLite for a single-writer/many-reader workload, per
// spec §4.3 and §5. Values follow the original Rust implementation's
// init_schema pragmas.
const pragmaDDL = `
PRAGMA journal_mode=WAL;
PRAGMA synchronous=NORMAL;
PRAGMA cache_size=-64000;
PRAGMA mmap_size=268435456;
PRAGMA page_size=4096;
PRAGMA temp_store=MEMORY;
PRAGMA foreign_keys=OFF;
`
