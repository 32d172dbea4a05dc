// Package types holds the data model shared across the qpg core: sources,
// normalized database objects, context records, and search results.
package types

import "time"

// ObjectType enumerates the kinds of normalized database entities.
type ObjectType string

const (
	ObjectSchema    ObjectType = "schema"
	ObjectTable     ObjectType = "table"
	ObjectView      ObjectType = "view"
	ObjectFunction  ObjectType = "function"
	ObjectProcedure ObjectType = "procedure"
	ObjectExtension ObjectType = "extension"
	ObjectColumn    ObjectType = "column"
	ObjectConstraint ObjectType = "constraint"
	ObjectIndex     ObjectType = "index"
)

// Source is a registered PostgreSQL database known to the local store.
type Source struct {
	ID              int64
	Name            string
	DSN             string
	IncludeSchemas  []string
	SkipPatterns    []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastIndexedAt   *time.Time
	LastError       string
}

// DbObject is a normalized schema entity, either a root catalog object or a
// synthetic child (column/constraint/index) materialized for retrieval.
type DbObject struct {
	ObjectID    string
	SourceID    int64
	SchemaName  string
	ObjectName  string
	ObjectType  ObjectType
	Fqname      string
	Definition  string
	Comment     string
	Signature   string
	Owner       string
	IsSystem    bool
}

// Column describes a single table/view column.
type Column struct {
	ObjectID   string // owning root object
	Name       string
	DataType   string
	Nullable   bool
	Ordinal    int
	Default    string
	Comment    string
}

// Constraint describes a table constraint.
type Constraint struct {
	ObjectID string // owning root object
	Name     string
	Kind     string // primary key, foreign key, unique, check, exclusion
	Columns  []string
	Definition string
}

// Index describes a table/materialized-view index.
type Index struct {
	ObjectID   string // owning root object
	Name       string
	Unique     bool
	Primary    bool
	Definition string
	Columns    []string
}

// Dependency is a directed edge between two resolved objects.
type Dependency struct {
	ObjectID       string
	DependsOnID    string
	DependencyType string
}

// ContextRecord is a user- or LLM-authored natural-language annotation.
type ContextRecord struct {
	ID        int64
	TargetURI string
	Body      string
	CreatedAt time.Time
}

// ScopeKind distinguishes the granularity a ContextScope binds to.
type ScopeKind int

const (
	ScopeSource ScopeKind = iota
	ScopeSchema
	ScopeObject
	ScopeObjectID
)

// ContextScope is the parsed form of a qpg:// context target URI.
type ContextScope struct {
	Kind     ScopeKind
	Source   string
	Schema   string
	Object   string
	ObjectID string
}

// ObjectRef identifies a normalized object for context-resolution purposes.
type ObjectRef struct {
	Source   string
	Schema   string
	Name     string
	ObjectID string
}

// LexicalDoc is the per-object text representation fed to the full-text index.
type LexicalDoc struct {
	ObjectID   string
	SourceID   int64
	SourceName string
	SchemaName string
	Kind       ObjectType
	NameCol    string
	CommentCol string
	DefsCol    string
	ContextCol string
}

// ObjectVector is the stored embedding for an object.
type ObjectVector struct {
	ObjectID  string
	Embedding []float32
	Model     string
	UpdatedAt time.Time
}

// IngestStats summarizes the outcome of a single update_source_index run.
type IngestStats struct {
	Objects      int
	Columns      int
	Constraints  int
	Indexes      int
	Dependencies int
	Vectors      int
}

// SearchResult is a single hit returned from lexical, vector or fused search.
type SearchResult struct {
	Object        *DbObject
	Score         float64
	LexicalScore  float64
	VectorScore   float64
	RRFScore      float64
	NameSnippet   string
	ContextSnippet string
}
