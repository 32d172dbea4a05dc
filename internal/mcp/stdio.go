package mcp

import (
	"bufio"
	"encoding/json"
	"io"
)

// ServeStdio reads one JSON object per line from r and writes one response
// line per request to w, until EOF. Parse errors yield a JSON-RPC -32700
// reply with id:null; non-object payloads yield -32600; notifications
// produce no output line.
func ServeStdio(d *Dispatcher, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var raw json.RawMessage
		if err := json.Unmarshal(line, &raw); err != nil {
			if encErr := enc.Encode(&Response{JSONRPC: "2.0", ID: json.RawMessage("null"), Error: &RPCError{Code: codeParseError, Message: "parse error"}}); encErr != nil {
				return encErr
			}
			continue
		}
		if len(raw) == 0 || raw[0] != '{' {
			if err := enc.Encode(&Response{JSONRPC: "2.0", Error: &RPCError{Code: codeInvalidRequest, Message: "request must be a JSON object"}}); err != nil {
				return err
			}
			continue
		}

		var req Request
		if err := json.Unmarshal(raw, &req); err != nil {
			if encErr := enc.Encode(&Response{JSONRPC: "2.0", Error: &RPCError{Code: codeInvalidRequest, Message: "malformed request"}}); encErr != nil {
				return encErr
			}
			continue
		}

		resp := d.Dispatch(req)
		if resp == nil {
			continue
		}
		if err := enc.Encode(resp); err != nil {
			return err
		}
	}
	return scanner.Err()
}
