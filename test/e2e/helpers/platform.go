//go:build integration

package helpers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-postgis/pkg/platform"
)

// TestPlatform wraps a started platform and a connected in-memory MCP
// client session for end-to-end scenarios.
type TestPlatform struct {
	Platform *platform.Platform
	Session  *mcp.ClientSession
	DSN      string
}

// PlatformOption mutates the config used to build a test platform.
type PlatformOption func(*platform.Config)

// WithAudit enables PostgreSQL-backed audit logging.
func WithAudit() PlatformOption {
	return func(cfg *platform.Config) {
		cfg.Audit.Enabled = true
		cfg.Audit.RetentionDays = 7
	}
}

// WithResources enables the dynamic database resources.
func WithResources() PlatformOption {
	return func(cfg *platform.Config) {
		cfg.Resources.Enabled = true
	}
}

// NewTestPlatform builds, starts, and connects a platform backed by the
// PostGIS database at dsn. Shutdown is registered with t.Cleanup.
func NewTestPlatform(t *testing.T, dsn string, opts ...PlatformOption) *TestPlatform {
	t.Helper()
	ctx := context.Background()

	cfg := basePlatformConfig(dsn)
	for _, opt := range opts {
		opt(cfg)
	}

	p, err := platform.New(platform.WithConfig(cfg))
	if err != nil {
		t.Fatalf("creating platform: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })

	if err := p.Start(ctx); err != nil {
		t.Fatalf("starting platform: %v", err)
	}
	t.Cleanup(func() { _ = p.Stop(context.Background()) })

	return &TestPlatform{
		Platform: p,
		Session:  connectClient(t, p.MCPServer()),
		DSN:      dsn,
	}
}

// basePlatformConfig returns the baseline e2e configuration: stdio
// transport, real database, default toolkit instances.
func basePlatformConfig(dsn string) *platform.Config {
	return &platform.Config{
		Server: platform.ServerConfig{
			Name:      "e2e-postgis",
			Version:   "0.0.1",
			Transport: "stdio",
		},
		Database: platform.DatabaseConfig{
			DSN:          dsn,
			QueryTimeout: 30 * time.Second,
		},
	}
}

// connectClient connects an in-memory MCP client to the server and
// returns the client session.
func connectClient(t *testing.T, server *mcp.Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	serverSession, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("connecting server session: %v", err)
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "e2e-client", Version: "0.0.1"}, nil)
	clientSession, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("connecting client session: %v", err)
	}

	t.Cleanup(func() {
		_ = clientSession.Close()
		_ = serverSession.Close()
	})
	return clientSession
}

// CallTool invokes a tool and decodes its JSON text payload into out.
// The test fails when the tool reports an error.
func (tp *TestPlatform) CallTool(t *testing.T, name string, args map[string]any, out any) {
	t.Helper()
	result := tp.callRaw(t, name, args)
	text := ResultText(t, result)
	if result.IsError {
		t.Fatalf("tool %s returned error: %s", name, text)
	}
	if out != nil {
		if err := json.Unmarshal([]byte(text), out); err != nil {
			t.Fatalf("decoding %s response: %v\npayload: %s", name, err, text)
		}
	}
}

// CallToolExpectError invokes a tool, requires a tool-level error, and
// returns the error payload text.
func (tp *TestPlatform) CallToolExpectError(t *testing.T, name string, args map[string]any) string {
	t.Helper()
	result := tp.callRaw(t, name, args)
	text := ResultText(t, result)
	if !result.IsError {
		t.Fatalf("tool %s succeeded, expected error: %s", name, text)
	}
	return text
}

// callRaw invokes a tool over the client session.
func (tp *TestPlatform) callRaw(t *testing.T, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	if args == nil {
		args = map[string]any{}
	}
	result, err := tp.Session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("calling tool %s: %v", name, err)
	}
	return result
}

// ResultText extracts the first text content block of a tool result.
func ResultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	for _, c := range result.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatal("tool result has no text content")
	return ""
}

// ColumnIndex returns the index of name in columns, failing when absent.
func ColumnIndex(t *testing.T, columns []string, name string) int {
	t.Helper()
	for i, col := range columns {
		if col == name {
			return i
		}
	}
	t.Fatalf("column %q not in result columns %v", name, columns)
	return -1
}

// TranslateResult mirrors the nl2sql_translate success payload.
type TranslateResult struct {
	Success      bool           `json:"success"`
	GeneratedSQL string         `json:"generated_sql"`
	QueryType    string         `json:"query_type"`
	Parameters   map[string]any `json:"parameters"`
	SessionID    string         `json:"session_id"`
	Warning      string         `json:"warning"`
}

// ExecuteResult mirrors the postgis_execute_sql pending-session payload.
type ExecuteResult struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id"`
	SQL       string `json:"sql"`
	Limit     int    `json:"limit"`
	Warning   string `json:"warning"`
}

// ConfirmResult mirrors the postgis_confirm_execution success payload.
type ConfirmResult struct {
	Success   bool     `json:"success"`
	SessionID string   `json:"session_id"`
	State     string   `json:"state"`
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	RowCount  int      `json:"row_count"`
	Truncated bool     `json:"truncated"`
}

// CancelResult mirrors the postgis_cancel_execution success payload.
type CancelResult struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id"`
	State     string `json:"state"`
}
