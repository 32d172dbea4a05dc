package mcp

import (
	"encoding/json"
)

// Dispatcher routes JSON-RPC 2.0 and legacy requests to tool handlers.
type Dispatcher struct {
	handlers Handlers
}

// NewDispatcher returns a Dispatcher wired to handlers.
func NewDispatcher(handlers Handlers) *Dispatcher {
	return &Dispatcher{handlers: handlers}
}

type initializeParams struct {
	ProtocolVersion string `json:"protocolVersion"`
}

type initializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      map[string]any `json:"serverInfo"`
	Instructions    string         `json:"instructions"`
}

type toolsCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Dispatch handles one JSON-RPC request and returns the response to emit.
// notifications (method "notifications/initialized") return a nil
// Response: the transport must emit nothing for them.
func (d *Dispatcher) Dispatch(req Request) *Response {
	if req.IsLegacy() {
		return d.dispatchLegacy(req)
	}

	switch req.Method {
	case "initialize":
		return d.handleInitialize(req)
	case "ping":
		return &Response{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{}}
	case "tools/list":
		return &Response{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{"tools": toolSchemas}}
	case "tools/call":
		return d.handleToolsCall(req)
	case "notifications/initialized":
		return nil
	default:
		return &Response{JSONRPC: "2.0", ID: req.ID, Error: &RPCError{Code: codeMethodNotFound, Message: "method not found: " + req.Method}}
	}
}

func (d *Dispatcher) handleInitialize(req Request) *Response {
	var params initializeParams
	_ = json.Unmarshal(req.Params, &params)

	version := params.ProtocolVersion
	if version == "" {
		version = SupportedProtocolVersions[0]
	}

	result := initializeResult{
		ProtocolVersion: version,
		Capabilities: map[string]any{
			"tools": map[string]any{"listChanged": false},
		},
		ServerInfo: map[string]any{
			"name":    ServerName,
			"version": ServerVersion,
		},
		Instructions: "This server is retrieval-only: it reads normalized schema metadata and cannot execute arbitrary SQL or mutate any connected database.",
	}
	return &Response{JSONRPC: "2.0", ID: req.ID, Result: result}
}

func (d *Dispatcher) handleToolsCall(req Request) *Response {
	var params toolsCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		return &Response{JSONRPC: "2.0", ID: req.ID, Error: &RPCError{Code: codeInvalidRequest, Message: "tools/call requires a string name"}}
	}

	result, err := d.handlers.dispatch(params.Name, params.Arguments)
	if err != nil {
		return &Response{JSONRPC: "2.0", ID: req.ID, Result: errorToolResult(err.Error())}
	}
	return &Response{JSONRPC: "2.0", ID: req.ID, Result: successToolResult(result)}
}

type legacyResponse struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Result any             `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func (d *Dispatcher) dispatchLegacy(req Request) *Response {
	result, err := d.handlers.dispatch(req.Tool, req.Args)
	if err != nil {
		return &Response{ID: req.ID, Error: &RPCError{Message: err.Error()}}
	}
	return &Response{ID: req.ID, Result: result}
}
