package middleware

import (
	"context"
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-postgis/pkg/audit"
	"github.com/txn2/mcp-postgis/pkg/registry"
)

// AuditLogger is the part of the audit trail the middleware writes to.
type AuditLogger interface {
	Log(ctx context.Context, event audit.Event) error
}

// ToolkitResolver attributes a tool name to the toolkit that provides
// it. *registry.Registry satisfies this.
type ToolkitResolver interface {
	GetToolkitForTool(toolName string) registry.ToolkitMatch
}

// MCPAuditMiddleware creates MCP protocol-level middleware that records
// an audit event for every tools/call request. Events are logged
// asynchronously so a slow audit store never delays the response. A nil
// logger disables auditing.
func MCPAuditMiddleware(logger AuditLogger, resolver ToolkitResolver) mcp.Middleware {
	if logger == nil {
		return func(next mcp.MethodHandler) mcp.MethodHandler {
			return next
		}
	}

	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			if method != methodToolsCall {
				return next(ctx, method, req)
			}

			start := time.Now()
			result, err := next(ctx, method, req)
			duration := time.Since(start)

			event := buildAuditEvent(ctx, resolver, req, result, err, start, duration)
			go func() {
				_ = logger.Log(context.Background(), event)
			}()

			return result, err
		}
	}
}

// buildAuditEvent assembles the audit event for one tool call.
func buildAuditEvent(
	ctx context.Context,
	resolver ToolkitResolver,
	req mcp.Request,
	result mcp.Result,
	err error,
	start time.Time,
	duration time.Duration,
) audit.Event {
	toolName := toolNameFromRequest(req)

	success := err == nil
	errorMsg := ""
	if err != nil {
		errorMsg = err.Error()
	} else if msg, isErr := resultError(result); isErr {
		success = false
		errorMsg = msg
	}

	args := argumentsFromRequest(req)

	event := audit.NewEvent(toolName).
		WithRequestID(GetRequestID(ctx)).
		WithParameters(audit.SanitizeParameters(args)).
		WithResult(success, errorMsg, duration.Milliseconds())
	event.Timestamp = start

	if resolver != nil {
		if match := resolver.GetToolkitForTool(toolName); match.Found {
			event.WithToolkit(match.Kind, match.Name)
		}
	}

	// Confirmation-protocol calls carry the session they act on; thread
	// it through so translate, confirm, and cancel events correlate.
	if id, ok := args["session_id"].(string); ok && id != "" {
		event.WithSession(id)
	}

	sqlText, intent := statementFromCall(args, result)
	if sqlText != "" {
		event.WithStatement(sqlText)
	}
	if intent != "" {
		event.WithIntent(intent)
	}

	return *event
}

// statementFromCall recovers the SQL a tool call carried: directly
// submitted SQL travels in the "sql" argument, and translations report
// generated_sql and query_type in their result payload.
func statementFromCall(args map[string]any, result mcp.Result) (sqlText, intent string) {
	if s, ok := args["sql"].(string); ok {
		sqlText = s
	}

	text, ok := resultText(result)
	if !ok {
		return sqlText, intent
	}
	var payload struct {
		GeneratedSQL string `json:"generated_sql"`
		QueryType    string `json:"query_type"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return sqlText, intent
	}
	if payload.GeneratedSQL != "" {
		sqlText = payload.GeneratedSQL
	}
	return sqlText, payload.QueryType
}
