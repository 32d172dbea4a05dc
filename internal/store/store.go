// Package store owns the embedded local content store: its schema,
// bootstrap/migration sequencing, and the one *sql.DB connection the rest
// of the core is built against.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"sync"

	_ "github.com/ncruces/go-sqlite3/driver" // registers the "sqlite3" database/sql driver
	_ "github.com/ncruces/go-sqlite3/embed"  // embeds libSQLite3 so no cgo toolchain is required
)

// vectorExtensionEnv names the environment variable pointing at a
// sqlite-vec shared library build. When unset, no native extension is
// loaded and the vector index falls back to its JSON/in-process path.
const vectorExtensionEnv = "QPG_VECTOR_EXTENSION_PATH"

// Store wraps the local embedded database connection. Mu serializes access
// where several goroutines share the store: the HTTP tool server, which may
// dispatch a request on any goroutine, and generate-context, which runs
// candidates concurrently. Other CLI commands and the stdio server are
// single-threaded and never contend on it.
type Store struct {
	DB *sql.DB
	Mu sync.Mutex
}

// Open bootstraps (or reuses) the local store at path. multiThread is true
// for the HTTP tool server and generate-context; other commands and the
// stdio server use false.
func Open(path string, multiThread bool) (*Store, error) {
	db, err := sql.Open("sqlite3", ConnString(path, multiThread))
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	if multiThread {
		// A single shared connection serialized by Store.Mu; the pool must
		// not hand out a second one underneath us.
		db.SetMaxOpenConns(1)
	}

	if err := bootstrap(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{DB: db}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.DB.Close()
}

// bootstrap loads the vector extension (best-effort), applies DDL, and
// appends any sources columns introduced by later schema versions.
func bootstrap(db *sql.DB) error {
	loadVectorExtension(db)

	for _, stmt := range ddlStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	if err := addMissingSourcesColumns(db); err != nil {
		return err
	}
	return nil
}

// loadVectorExtension attempts to load the native sqlite-vec extension.
// Extension loading is enabled only for the duration of the call and then
// disabled again; failure is soft, since the vector index falls back to a
// JSON-encoded in-process cosine implementation when the extension is
// unavailable. See internal/vector for the two code paths this selects
// between.
func loadVectorExtension(db *sql.DB) {
	path := os.Getenv(vectorExtensionEnv)
	if path == "" {
		return
	}

	conn, err := db.Conn(nil)
	if err != nil {
		return
	}
	defer conn.Close()

	_ = conn.Raw(func(driverConn any) error {
		type extensionLoader interface {
			EnableLoadExtension(bool) error
			LoadExtension(file, proc string) error
		}
		loader, ok := driverConn.(extensionLoader)
		if !ok {
			return nil
		}
		if err := loader.EnableLoadExtension(true); err != nil {
			return nil
		}
		defer loader.EnableLoadExtension(false)
		_ = loader.LoadExtension(path, "sqlite3_vec_init")
		return nil
	})
}

// addMissingSourcesColumns ALTERs in any column from sourcesColumnAdditions
// that an older copy of the store does not yet have.
func addMissingSourcesColumns(db *sql.DB) error {
	rows, err := db.Query(`PRAGMA table_info(sources)`)
	if err != nil {
		return fmt.Errorf("inspect sources columns: %w", err)
	}
	existing := map[string]bool{}
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			rows.Close()
			return err
		}
		existing[name] = true
	}
	rows.Close()

	for _, addition := range sourcesColumnAdditions {
		colName := addition
		if idx := indexOfSpace(addition); idx >= 0 {
			colName = addition[:idx]
		}
		if existing[colName] {
			continue
		}
		if _, err := db.Exec("ALTER TABLE sources ADD COLUMN " + addition); err != nil {
			return fmt.Errorf("add sources column %s: %w", colName, err)
		}
	}
	return nil
}

func indexOfSpace(s string) int {
	for i, r := range s {
		if r == ' ' {
			return i
		}
	}
	return -1
}

// HasNativeVector reports whether the vec_f32 function is available,
// indicating the native vector extension loaded successfully.
func HasNativeVector(db *sql.DB) bool {
	var dummy string
	err := db.QueryRow(`SELECT vec_f32('[0.0]')`).Scan(&dummy)
	return err == nil
}

// QuickCheck runs PRAGMA quick_check and reports whether the store passed.
// No CLI command calls it.
func QuickCheck(db *sql.DB) (bool, error) {
	var result string
	if err := db.QueryRow(`PRAGMA quick_check`).Scan(&result); err != nil {
		return false, err
	}
	return result == "ok", nil
}
