package types

import "errors"

// Distinguishable error kinds surfaced across the core. Callers use
// errors.Is / errors.As against these sentinels and wrapper types rather
// than matching on message text.
var (
	ErrSourceNotFound            = errors.New("source not found")
	ErrContextSourceNotFound     = errors.New("context source not found")
	ErrObjectNotFound            = errors.New("object not found")
	ErrVectorModelNotInitialized = errors.New("vector model not initialized")
	ErrPostgresDependency        = errors.New("postgres driver unavailable")
)

// SourceExistsError is returned when registering a source whose name is
// already taken.
type SourceExistsError struct {
	Name string
}

func (e *SourceExistsError) Error() string {
	return "source already exists: " + e.Name
}

// SourceNotFoundError is returned when an operation names a source that is
// not registered.
type SourceNotFoundError struct {
	Name string
}

func (e *SourceNotFoundError) Error() string {
	return "source not found: " + e.Name
}

func (e *SourceNotFoundError) Unwrap() error { return ErrSourceNotFound }

// InvalidContextTarget is returned when a context target URI fails to parse.
type InvalidContextTarget struct {
	Target string
	Reason string
}

func (e *InvalidContextTarget) Error() string {
	return "invalid context target " + e.Target + ": " + e.Reason
}

// ContextSourceNotFoundError is returned when add_context names a source
// that has not been registered.
type ContextSourceNotFoundError struct {
	Source string
}

func (e *ContextSourceNotFoundError) Error() string {
	return "context source not found: " + e.Source
}

func (e *ContextSourceNotFoundError) Unwrap() error { return ErrContextSourceNotFound }

// ObjectNotFoundError is returned by lookup-by-id when no object matches.
type ObjectNotFoundError struct {
	ID string
}

func (e *ObjectNotFoundError) Error() string {
	return "object not found: " + e.ID
}

func (e *ObjectNotFoundError) Unwrap() error { return ErrObjectNotFound }

// ContextGenerationError wraps a failure from the LLM context generator.
// It never aborts a batch; callers log it and continue to the next candidate.
type ContextGenerationError struct {
	TableFqname string
	Err         error
}

func (e *ContextGenerationError) Error() string {
	return "context generation failed for " + e.TableFqname + ": " + e.Err.Error()
}

func (e *ContextGenerationError) Unwrap() error { return e.Err }

// RerankHookError wraps a failure from the external QPG_RERANK_HOOK process.
// queryengine.Query ignores it, keeping the unreranked order; the error is
// not logged.
type RerankHookError struct {
	Stderr string
}

func (e *RerankHookError) Error() string {
	return "rerank hook failed: " + e.Stderr
}

// MCPError is a tool-layer failure. It is always surfaced to clients as
// a {isError:true} tool response, never as a JSON-RPC error envelope.
type MCPError struct {
	Message string
}

func (e *MCPError) Error() string { return e.Message }
