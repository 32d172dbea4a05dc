package mcp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func testHandlers() Handlers {
	return Handlers{
		Search:      func(args json.RawMessage) (any, error) { return []string{"a"}, nil },
		DeepSearch:  func(args json.RawMessage) (any, error) { return []string{"a"}, nil },
		Get:         func(args json.RawMessage) (any, error) { return nil, errBoom{} },
		Status:      func(args json.RawMessage) (any, error) { return map[string]any{"ok": true}, nil },
		ListSources: func(args json.RawMessage) (any, error) { return []string{"work"}, nil },
	}
}

type errBoom struct{}

func (errBoom) Error() string { return "object not found" }

// TestInitialize_EchoesClientProtocolVersion exercises scenario S6.
func TestInitialize_EchoesClientProtocolVersion(t *testing.T) {
	d := NewDispatcher(testHandlers())
	req := Request{JSONRPC: "2.0", ID: json.RawMessage(`1`), Method: "initialize",
		Params: json.RawMessage(`{"protocolVersion":"2026-01-01"}`)}

	resp := d.Dispatch(req)
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(initializeResult)
	require.True(t, ok)
	require.Equal(t, "2026-01-01", result.ProtocolVersion)
	require.Equal(t, ServerName, result.ServerInfo["name"])
	require.Contains(t, result.Capabilities, "tools")
}

func TestInitialize_DefaultsToNewestSupportedVersion(t *testing.T) {
	d := NewDispatcher(testHandlers())
	resp := d.Dispatch(Request{JSONRPC: "2.0", Method: "initialize", Params: json.RawMessage(`{}`)})
	result := resp.Result.(initializeResult)
	require.Equal(t, SupportedProtocolVersions[0], result.ProtocolVersion)
}

func TestToolsCall_HandlerErrorSurfacesAsIsErrorNotRPCError(t *testing.T) {
	d := NewDispatcher(testHandlers())
	resp := d.Dispatch(Request{JSONRPC: "2.0", Method: "tools/call",
		Params: json.RawMessage(`{"name":"qpg_get","arguments":{}}`)})

	require.Nil(t, resp.Error)
	result := resp.Result.(ToolCallResult)
	require.True(t, result.IsError)
}

func TestToolsCall_UnknownMethodReturnsRPCError(t *testing.T) {
	d := NewDispatcher(testHandlers())
	resp := d.Dispatch(Request{JSONRPC: "2.0", Method: "bogus"})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestNotificationsInitialized_ProducesNoResponse(t *testing.T) {
	d := NewDispatcher(testHandlers())
	resp := d.Dispatch(Request{JSONRPC: "2.0", Method: "notifications/initialized"})
	require.Nil(t, resp)
}

func TestLegacyDispatch_ReturnsIDAndResult(t *testing.T) {
	d := NewDispatcher(testHandlers())
	resp := d.Dispatch(Request{ID: json.RawMessage(`5`), Tool: "qpg_status"})
	require.Nil(t, resp.Error)
	require.Equal(t, json.RawMessage(`5`), resp.ID)
	require.NotNil(t, resp.Result)
}

func TestToolsList_ReturnsStaticSchemas(t *testing.T) {
	d := NewDispatcher(testHandlers())
	resp := d.Dispatch(Request{JSONRPC: "2.0", Method: "tools/list"})
	result := resp.Result.(map[string]any)
	tools := result["tools"].([]ToolSchema)
	require.Len(t, tools, 5)
}
