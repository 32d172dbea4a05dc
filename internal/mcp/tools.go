package mcp

import "encoding/json"

// ToolSchema describes one exposed tool's JSON Schema input contract.
type ToolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

func prop(kind string, extra map[string]any) map[string]any {
	out := map[string]any{"type": kind}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// toolSchemas is the static set of tool contracts advertised by tools/list.
var toolSchemas = []ToolSchema{
	{
		Name:        "qpg_search",
		Description: "Hybrid lexical + vector search over normalized database schema objects.",
		InputSchema: map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"required":             []string{"query"},
			"properties": map[string]any{
				"query":     prop("string", nil),
				"source":    prop("string", nil),
				"schema":    prop("string", nil),
				"kind":      prop("string", nil),
				"min_score": prop("number", map[string]any{"minimum": 0, "maximum": 1}),
				"limit":     prop("integer", map[string]any{"minimum": 1, "maximum": 100}),
			},
		},
	},
	{
		Name:        "qpg_deep_search",
		Description: "Hybrid search with external reranking applied to the fused result list.",
		InputSchema: map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"required":             []string{"query"},
			"properties": map[string]any{
				"query":     prop("string", nil),
				"source":    prop("string", nil),
				"schema":    prop("string", nil),
				"kind":      prop("string", nil),
				"min_score": prop("number", map[string]any{"minimum": 0, "maximum": 1}),
				"limit":     prop("integer", map[string]any{"minimum": 1, "maximum": 100}),
			},
		},
	},
	{
		Name:        "qpg_get",
		Description: "Fetch one normalized object by its object_id.",
		InputSchema: map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"required":             []string{"object_id"},
			"properties": map[string]any{
				"object_id": prop("string", nil),
			},
		},
	},
	{
		Name:        "qpg_status",
		Description: "Report ingest freshness (last indexed time and last error) for registered sources.",
		InputSchema: map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties":           map[string]any{},
		},
	},
	{
		Name:        "qpg_list_sources",
		Description: "List every registered source.",
		InputSchema: map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties":           map[string]any{},
		},
	},
}

// Handlers maps tool name to its implementation. Handlers return a result
// value and an error; errors become {isError:true} responses, never a
// JSON-RPC error envelope.
type Handlers struct {
	Search       func(args json.RawMessage) (any, error)
	DeepSearch   func(args json.RawMessage) (any, error)
	Get          func(args json.RawMessage) (any, error)
	Status       func(args json.RawMessage) (any, error)
	ListSources  func(args json.RawMessage) (any, error)
}

func (h Handlers) dispatch(name string, args json.RawMessage) (any, error) {
	switch name {
	case "qpg_search":
		return h.Search(args)
	case "qpg_deep_search":
		return h.DeepSearch(args)
	case "qpg_get":
		return h.Get(args)
	case "qpg_status":
		return h.Status(args)
	case "qpg_list_sources":
		return h.ListSources(args)
	default:
		return nil, &unknownToolError{name: name}
	}
}

type unknownToolError struct{ name string }

func (e *unknownToolError) Error() string { return "unknown tool: " + e.name }
