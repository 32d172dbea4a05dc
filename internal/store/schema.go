package store

// ddlStatements is the idempotent DDL applied on every Open. Each statement
// uses CREATE ... IF NOT EXISTS so bootstrap is safe to rerun against an
// existing store.
var ddlStatements = []string{
	`CREATE TABLE IF NOT EXISTS sources (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		dsn TEXT NOT NULL,
		include_schemas TEXT NOT NULL DEFAULT '[]',
		skip_patterns TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		last_indexed_at TEXT,
		last_error TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS db_objects (
		object_id TEXT PRIMARY KEY,
		source_id INTEGER NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
		schema_name TEXT NOT NULL DEFAULT '',
		object_name TEXT NOT NULL,
		object_type TEXT NOT NULL,
		fqname TEXT NOT NULL,
		definition TEXT NOT NULL DEFAULT '',
		comment TEXT NOT NULL DEFAULT '',
		signature TEXT NOT NULL DEFAULT '',
		owner TEXT NOT NULL DEFAULT '',
		is_system INTEGER NOT NULL DEFAULT 0,
		UNIQUE(source_id, object_type, fqname)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_db_objects_source ON db_objects(source_id)`,
	`CREATE TABLE IF NOT EXISTS columns (
		object_id TEXT NOT NULL REFERENCES db_objects(object_id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		data_type TEXT NOT NULL DEFAULT '',
		nullable INTEGER NOT NULL DEFAULT 1,
		ordinal INTEGER NOT NULL DEFAULT 0,
		default_value TEXT NOT NULL DEFAULT '',
		comment TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (object_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS constraints (
		object_id TEXT NOT NULL REFERENCES db_objects(object_id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		kind TEXT NOT NULL DEFAULT '',
		columns TEXT NOT NULL DEFAULT '[]',
		definition TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (object_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS indexes (
		object_id TEXT NOT NULL REFERENCES db_objects(object_id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		is_unique INTEGER NOT NULL DEFAULT 0,
		is_primary INTEGER NOT NULL DEFAULT 0,
		definition TEXT NOT NULL DEFAULT '',
		columns TEXT NOT NULL DEFAULT '[]',
		PRIMARY KEY (object_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS dependencies (
		object_id TEXT NOT NULL REFERENCES db_objects(object_id) ON DELETE CASCADE,
		depends_on_object_id TEXT NOT NULL REFERENCES db_objects(object_id) ON DELETE CASCADE,
		dependency_type TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (object_id, depends_on_object_id, dependency_type)
	)`,
	`CREATE TABLE IF NOT EXISTS contexts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		target_uri TEXT NOT NULL,
		body TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_contexts_target ON contexts(target_uri)`,
	`CREATE TABLE IF NOT EXISTS object_context_effective (
		object_id TEXT PRIMARY KEY REFERENCES db_objects(object_id) ON DELETE CASCADE,
		context_text TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS lexical_docs (
		object_id TEXT PRIMARY KEY REFERENCES db_objects(object_id) ON DELETE CASCADE,
		source_id INTEGER NOT NULL,
		source_name TEXT NOT NULL,
		schema_name TEXT NOT NULL DEFAULT '',
		kind TEXT NOT NULL,
		name_col TEXT NOT NULL DEFAULT '',
		comment_col TEXT NOT NULL DEFAULT '',
		defs_col TEXT NOT NULL DEFAULT '',
		context_col TEXT NOT NULL DEFAULT ''
	)`,
	// objects_fts mirrors lexical_docs for full-text search. unicode61 with
	// remove_diacritics strips accents; source_name/schema_name/kind are
	// UNINDEXED so they act as filters, not ranked tokens.
	`CREATE VIRTUAL TABLE IF NOT EXISTS objects_fts USING fts5(
		object_id UNINDEXED,
		source_name UNINDEXED,
		schema_name UNINDEXED,
		kind UNINDEXED,
		name_col,
		comment_col,
		defs_col,
		context_col,
		tokenize = 'unicode61 remove_diacritics 2'
	)`,
	`CREATE TABLE IF NOT EXISTS object_vectors (
		object_id TEXT PRIMARY KEY REFERENCES db_objects(object_id) ON DELETE CASCADE,
		embedding BLOB NOT NULL,
		is_native INTEGER NOT NULL DEFAULT 0,
		model TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS llm_cache (
		key TEXT PRIMARY KEY,
		value_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		expires_at TEXT
	)`,
}

// sourcesColumnAdditions lists columns later schema versions appended to
// "sources". bootstrap adds any that are missing from an existing store so
// upgrades never require a destructive migration.
var sourcesColumnAdditions = []string{
	"last_error TEXT NOT NULL DEFAULT ''",
}
