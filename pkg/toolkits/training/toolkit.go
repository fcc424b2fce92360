// Package training provides the training submission toolkit. Submitted
// DDL, documentation, and question/SQL pairs are held in confirmation
// sessions and handed to a Sink only after explicit confirmation, so an
// agent cannot silently feed material into a downstream pipeline.
package training

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-postgis/pkg/confirm"
	"github.com/txn2/mcp-postgis/pkg/query"
	"github.com/txn2/mcp-postgis/pkg/sqlguard"
)

const (
	toolSubmitDDL           = "training_submit_ddl"
	toolSubmitDocumentation = "training_submit_documentation"
	toolSubmitSQLExample    = "training_submit_sql_example"
	toolConfirm             = "training_confirm"
	toolCancel              = "training_cancel"

	// previewLimit caps the echoed content preview in runes.
	previewLimit = 120
)

// submissionWarning reminds the caller that nothing has been recorded yet.
const submissionWarning = "The submission has not been recorded. Review the preview, then call " +
	"training_confirm with the session_id to record it, or training_cancel to discard it."

// Config holds training toolkit configuration.
type Config struct {
	// ConnectionName overrides the connection name reported for audit
	// logging. Empty by default: the toolkit holds no database connection.
	ConnectionName string `yaml:"connection_name"`
}

// submitDDLInput is the input schema for training_submit_ddl.
type submitDDLInput struct {
	DDL string `json:"ddl"`
}

// submitDocumentationInput is the input schema for training_submit_documentation.
type submitDocumentationInput struct {
	Documentation string `json:"documentation"`
}

// submitSQLExampleInput is the input schema for training_submit_sql_example.
type submitSQLExampleInput struct {
	Question string `json:"question"`
	SQL      string `json:"sql"`
}

// sessionInput identifies a pending submission session.
type sessionInput struct {
	SessionID string `json:"session_id"`
}

// submitOutput is the success response for the three submit tools.
type submitOutput struct {
	Success        bool   `json:"success"`
	SessionID      string `json:"session_id"`
	SubmissionType string `json:"submission_type"`
	Preview        string `json:"preview"`
	Warning        string `json:"warning"`
}

// confirmOutput is the success response for training_confirm.
type confirmOutput struct {
	Success        bool   `json:"success"`
	SessionID      string `json:"session_id"`
	State          string `json:"state"`
	SubmissionType string `json:"submission_type"`
	Message        string `json:"message"`
}

// cancelOutput is the success response for training_cancel.
type cancelOutput struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id"`
	State     string `json:"state"`
}

// Toolkit implements the training submission toolkit.
type Toolkit struct {
	name   string
	config Config
	sink   Sink

	sessions      confirm.Store
	queryProvider query.Provider
}

// New creates a new training toolkit. Submissions go to the slog sink
// until SetSink installs an external one.
func New(name string, cfg Config) (*Toolkit, error) {
	return &Toolkit{
		name:   name,
		config: cfg,
		sink:   NewSlogSink(nil),
	}, nil
}

// Kind returns the toolkit kind.
func (*Toolkit) Kind() string {
	return "training"
}

// Name returns the toolkit instance name.
func (t *Toolkit) Name() string {
	return t.name
}

// Connection returns the connection name for audit logging.
func (t *Toolkit) Connection() string {
	return t.config.ConnectionName
}

// RegisterTools registers the training tools with the MCP server.
func (t *Toolkit) RegisterTools(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name: toolSubmitDDL,
		Description: "Submits a DDL statement (CREATE TABLE and similar) as training material for the " +
			"natural-language translator. Nothing is recorded until the submission is confirmed with training_confirm.",
	}, t.handleSubmitDDL)

	mcp.AddTool(s, &mcp.Tool{
		Name: toolSubmitDocumentation,
		Description: "Submits free-form documentation about the database (table purposes, column meanings, " +
			"business rules) as training material. Nothing is recorded until the submission is confirmed with training_confirm.",
	}, t.handleSubmitDocumentation)

	mcp.AddTool(s, &mcp.Tool{
		Name: toolSubmitSQLExample,
		Description: "Submits a question and the SQL that answers it as a training example. The SQL must pass " +
			"the read-only safety guard. Nothing is recorded until the submission is confirmed with training_confirm.",
	}, t.handleSubmitSQLExample)

	mcp.AddTool(s, &mcp.Tool{
		Name: toolConfirm,
		Description: "Confirms a pending training submission and hands it to the configured training sink. " +
			"Each submission is recorded at most once; confirming again returns an error.",
	}, t.handleConfirm)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolCancel,
		Description: "Cancels a pending training submission and discards its content.",
	}, t.handleCancel)
}

// Tools returns the list of tool names provided by this toolkit.
func (*Toolkit) Tools() []string {
	return []string{toolSubmitDDL, toolSubmitDocumentation, toolSubmitSQLExample, toolConfirm, toolCancel}
}

// SetQueryProvider sets the query execution provider. The training
// toolkit does not query the database; the provider is accepted for
// toolkit interface compliance.
func (t *Toolkit) SetQueryProvider(provider query.Provider) {
	t.queryProvider = provider
}

// SetSessionStore sets the confirmation session store.
func (t *Toolkit) SetSessionStore(store confirm.Store) {
	t.sessions = store
}

// SetSink installs the sink that receives confirmed submissions. A nil
// sink is ignored, leaving the current sink in place.
func (t *Toolkit) SetSink(sink Sink) {
	if sink != nil {
		t.sink = sink
	}
}

// Close releases resources.
func (*Toolkit) Close() error {
	return nil
}

// handleSubmitDDL handles the training_submit_ddl tool call.
func (t *Toolkit) handleSubmitDDL(ctx context.Context, _ *mcp.CallToolRequest, input submitDDLInput) (*mcp.CallToolResult, any, error) {
	ddl := strings.TrimSpace(input.DDL)
	if ddl == "" {
		return errorResult("ddl is required"), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return t.register(ctx, Submission{Kind: SubmissionDDL, DDL: ddl})
}

// handleSubmitDocumentation handles the training_submit_documentation tool call.
func (t *Toolkit) handleSubmitDocumentation(ctx context.Context, _ *mcp.CallToolRequest, input submitDocumentationInput) (*mcp.CallToolResult, any, error) {
	doc := strings.TrimSpace(input.Documentation)
	if doc == "" {
		return errorResult("documentation is required"), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return t.register(ctx, Submission{Kind: SubmissionDocumentation, Documentation: doc})
}

// handleSubmitSQLExample handles the training_submit_sql_example tool call.
// The SQL half of the pair passes the same guard as executable statements,
// so denylisted SQL cannot enter the training corpus either.
func (t *Toolkit) handleSubmitSQLExample(ctx context.Context, _ *mcp.CallToolRequest, input submitSQLExampleInput) (*mcp.CallToolResult, any, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return errorResult("question is required"), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	sqlText := strings.TrimSpace(input.SQL)
	if sqlText == "" {
		return errorResult("sql is required"), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	if err := sqlguard.Check(sqlText); err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return t.register(ctx, Submission{Kind: SubmissionSQLExample, Question: question, SQL: sqlText})
}

// register opens a confirmation session holding the submission.
func (t *Toolkit) register(ctx context.Context, sub Submission) (*mcp.CallToolResult, any, error) {
	if t.sessions == nil {
		return errorResult("no confirmation session store configured"), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	sub.SubmittedAt = time.Now().UTC()
	id, err := t.sessions.Create(ctx, confirm.KindTrainingSubmission, sub)
	if err != nil {
		return errorResult("registering confirmation session: "+err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	return marshalResult(submitOutput{
		Success:        true,
		SessionID:      id,
		SubmissionType: sub.Kind,
		Preview:        truncate(sub.content(), previewLimit),
		Warning:        submissionWarning,
	})
}

// handleConfirm handles the training_confirm tool call.
func (t *Toolkit) handleConfirm(ctx context.Context, _ *mcp.CallToolRequest, input sessionInput) (*mcp.CallToolResult, any, error) {
	if input.SessionID == "" {
		return errorResult("session_id is required"), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	if t.sessions == nil {
		return errorResult("no confirmation session store configured"), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	payload, err := t.sessions.Confirm(ctx, input.SessionID, confirm.KindTrainingSubmission)
	if err != nil {
		return errorResult(sessionErrorMessage(err)), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	sub, ok := payload.(Submission)
	if !ok {
		return errorResult(fmt.Sprintf("unexpected session payload type %T", payload)), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	ack, err := t.sink.Submit(ctx, sub)
	if err != nil {
		// The session is already finalized: a failed sink hand-off is
		// reported, and the material must be submitted again.
		return errorResult("recording submission: "+err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	return marshalResult(confirmOutput{
		Success:        true,
		SessionID:      input.SessionID,
		State:          string(confirm.StateConfirmed),
		SubmissionType: sub.Kind,
		Message:        ack,
	})
}

// handleCancel handles the training_cancel tool call.
func (t *Toolkit) handleCancel(ctx context.Context, _ *mcp.CallToolRequest, input sessionInput) (*mcp.CallToolResult, any, error) {
	if input.SessionID == "" {
		return errorResult("session_id is required"), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	if t.sessions == nil {
		return errorResult("no confirmation session store configured"), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	if err := t.sessions.Cancel(ctx, input.SessionID, confirm.KindTrainingSubmission); err != nil {
		return errorResult(sessionErrorMessage(err)), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	return marshalResult(cancelOutput{
		Success:   true,
		SessionID: input.SessionID,
		State:     string(confirm.StateCancelled),
	})
}

// sessionErrorMessage maps session errors onto the stable codes surfaced
// to MCP clients.
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

// truncate shortens s to at most limit runes.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// errorResult creates an error CallToolResult.
func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(`{"success": false, "error": %q}`, msg)},
		},
		IsError: true,
	}
}

// marshalResult creates a success CallToolResult from a typed output.
func marshalResult(output any) (*mcp.CallToolResult, any, error) {
	data, err := json.Marshal(output)
	if err != nil {
		return errorResult("internal error marshaling response"), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}

// Verify interface compliance.
var _ interface {
	Kind() string
	Name() string
	Connection() string
	RegisterTools(s *mcp.Server)
	Tools() []string
	SetQueryProvider(provider query.Provider)
	SetSessionStore(store confirm.Store)
	Close() error
} = (*Toolkit)(nil)
