package middleware

import (
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// methodToolsCall is the only MCP method the middleware inspects; every
// other method passes straight through.
const methodToolsCall = "tools/call"

// toolNameFromRequest extracts the tool name from a tools/call request,
// or "" if the request does not carry one.
func toolNameFromRequest(req mcp.Request) string {
	if req == nil {
		return ""
	}
	params := req.GetParams()
	if params == nil {
		return ""
	}
	callParams, ok := params.(*mcp.CallToolParamsRaw)
	if !ok || callParams == nil {
		return ""
	}
	return callParams.Name
}

// argumentsFromRequest decodes the raw tool arguments into a map, or nil
// when there are none or they do not decode.
func argumentsFromRequest(req mcp.Request) map[string]any {
	if req == nil {
		return nil
	}
	params := req.GetParams()
	if params == nil {
		return nil
	}
	callParams, ok := params.(*mcp.CallToolParamsRaw)
	if !ok || callParams == nil || len(callParams.Arguments) == 0 {
		return nil
	}
	var args map[string]any
	if err := json.Unmarshal(callParams.Arguments, &args); err != nil {
		return nil
	}
	return args
}

// resultError reports whether the result is a tool-level error and, if
// so, returns its message. Tool handlers signal failure through
// CallToolResult.IsError rather than a Go error.
func resultError(result mcp.Result) (string, bool) {
	callResult, ok := result.(*mcp.CallToolResult)
	if !ok || callResult == nil || !callResult.IsError {
		return "", false
	}
	if len(callResult.Content) == 0 {
		return "", true
	}
	if textContent, ok := callResult.Content[0].(*mcp.TextContent); ok {
		return textContent.Text, true
	}
	return "", true
}

// resultText returns the first text content block of a tool result.
func resultText(result mcp.Result) (string, bool) {
	callResult, ok := result.(*mcp.CallToolResult)
	if !ok || callResult == nil || len(callResult.Content) == 0 {
		return "", false
	}
	if textContent, ok := callResult.Content[0].(*mcp.TextContent); ok {
		return textContent.Text, true
	}
	return "", false
}
