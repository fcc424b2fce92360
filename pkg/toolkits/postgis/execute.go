package postgis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-postgis/pkg/confirm"
	nl2sqlcore "github.com/txn2/mcp-postgis/pkg/nl2sql"
	"github.com/txn2/mcp-postgis/pkg/sqlguard"
)

// executionWarning reminds the caller that submission is not execution.
const executionWarning = "SQL has not been executed. Call postgis_confirm_execution with the " +
	"session_id to run it, or postgis_cancel_execution to discard it."

// pendingExecution is the session payload for SQL submitted directly
// through postgis_execute_sql. Translator-generated statements arrive as
// nl2sqlcore.GeneratedStatement instead.
type pendingExecution struct {
	SQL   string `json:"sql"`
	Limit int    `json:"limit"`
}

// executeSQLInput defines the input schema for postgis_execute_sql.
type executeSQLInput struct {
	SQL   string `json:"sql"`
	Limit int    `json:"limit,omitempty"`
}

// executeSQLOutput is the pending-session response.
type executeSQLOutput struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id"`
	SQL       string `json:"sql"`
	Limit     int    `json:"limit"`
	Warning   string `json:"warning"`
}

// sessionInput identifies the session a confirm or cancel acts on.
type sessionInput struct {
	SessionID string `json:"session_id"`
}

// confirmOutput is the executed-statement response.
type confirmOutput struct {
	Success   bool     `json:"success"`
	SessionID string   `json:"session_id"`
	State     string   `json:"state"`
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	RowCount  int      `json:"row_count"`
	Truncated bool     `json:"truncated,omitempty"`
}

// cancelOutput is the discarded-session response.
type cancelOutput struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id"`
	State     string `json:"state"`
}

// handleExecuteSQL handles the postgis_execute_sql tool call. The
// statement is guard-checked and parked in a pending session; nothing
// touches the database here.
func (t *Toolkit) handleExecuteSQL(ctx context.Context, _ *mcp.CallToolRequest, input executeSQLInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.SQL) == "" {
		return errorResult("sql is required"), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	if err := sqlguard.Check(input.SQL); err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	if t.sessions == nil {
		return errorResult("no confirmation session store configured"), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	limit := t.clampLimit(input.Limit)
	id, err := t.sessions.Create(ctx, confirm.KindSQLExecution, pendingExecution{SQL: input.SQL, Limit: limit})
	if err != nil {
		return errorResult("registering confirmation session: "+err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	return marshalResult(executeSQLOutput{
		Success:   true,
		SessionID: id,
		SQL:       input.SQL,
		Limit:     limit,
		Warning:   executionWarning,
	})
}

// handleConfirmExecution handles the postgis_confirm_execution tool call.
// Confirm hands the payload over exactly once; the guard runs again on
// the payload before it reaches the executor.
func (t *Toolkit) handleConfirmExecution(ctx context.Context, _ *mcp.CallToolRequest, input sessionInput) (*mcp.CallToolResult, any, error) {
	if input.SessionID == "" {
		return errorResult("session_id is required"), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	if t.sessions == nil {
		return errorResult("no confirmation session store configured"), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	payload, err := t.sessions.Confirm(ctx, input.SessionID, confirm.KindSQLExecution)
	if err != nil {
		return errorResult(sessionErrorMessage(err)), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	sqlText, args, limit, err := statementFromPayload(payload)
	if err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	if err := sqlguard.Check(sqlText); err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	if t.executor == nil {
		return errorResult("no query provider configured"), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	result, err := t.executor.Execute(ctx, sqlText, args, t.clampLimit(limit))
	if err != nil {
		return errorResult("executing statement: "+err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	return marshalResult(confirmOutput{
		Success:   true,
		SessionID: input.SessionID,
		State:     string(confirm.StateConfirmed),
		Columns:   result.Columns,
		Rows:      result.Rows,
		RowCount:  result.Count,
		Truncated: result.Truncated,
	})
}

// handleCancelExecution handles the postgis_cancel_execution tool call.
func (t *Toolkit) handleCancelExecution(ctx context.Context, _ *mcp.CallToolRequest, input sessionInput) (*mcp.CallToolResult, any, error) {
	if input.SessionID == "" {
		return errorResult("session_id is required"), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	if t.sessions == nil {
		return errorResult("no confirmation session store configured"), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	if err := t.sessions.Cancel(ctx, input.SessionID, confirm.KindSQLExecution); err != nil {
		return errorResult(sessionErrorMessage(err)), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	return marshalResult(cancelOutput{
		Success:   true,
		SessionID: input.SessionID,
		State:     string(confirm.StateCancelled),
	})
}

// statementFromPayload unpacks the two payload shapes a sql_execution
// session can carry: a statement generated by the translator, or SQL
// submitted directly through postgis_execute_sql.
func statementFromPayload(payload any) (sqlText string, args []any, limit int, err error) {
	switch p := payload.(type) {
	case nl2sqlcore.GeneratedStatement:
		return p.SQL, p.BoundArgs, p.Limit, nil
	case pendingExecution:
		return p.SQL, nil, p.Limit, nil
	default:
		return "", nil, 0, fmt.Errorf("unexpected session payload type %T", payload)
	}
}

// sessionErrorMessage maps session errors onto the stable codes surfaced
// to callers.
func sessionErrorMessage(err error) string {
	switch {
	case errors.Is(err, confirm.ErrNotFound):
		return "not_found"
	case errors.Is(err, confirm.ErrAlreadyFinalized):
		return "already_finalized"
	case errors.Is(err, confirm.ErrExpired):
		return "expired"
	case errors.Is(err, confirm.ErrKindMismatch):
		return "kind_mismatch"
	}
	return err.Error()
}
