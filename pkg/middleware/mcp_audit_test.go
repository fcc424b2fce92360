package middleware

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/mcp-postgis/pkg/audit"
	"github.com/txn2/mcp-postgis/pkg/registry"
)

const testAuditTool = "postgis_execute_sql"

// capturingAuditLogger captures audit events for testing.
type capturingAuditLogger struct {
	mu     sync.Mutex
	events []audit.Event
}

func (c *capturingAuditLogger) Log(_ context.Context, event audit.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *capturingAuditLogger) Events() []audit.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]audit.Event, len(c.events))
	copy(result, c.events)
	return result
}

// fakeResolver returns a fixed toolkit match.
type fakeResolver struct {
	match   registry.ToolkitMatch
	gotTool string
}

func (f *fakeResolver) GetToolkitForTool(toolName string) registry.ToolkitMatch {
	f.gotTool = toolName
	return f.match
}

func TestMCPAuditMiddleware_NonToolsCallPassthrough(t *testing.T) {
	logger := &capturingAuditLogger{}
	mw := MCPAuditMiddleware(logger, nil)

	handlerCalled := false
	base := func(_ context.Context, _ string, _ mcp.Request) (mcp.Result, error) {
		handlerCalled = true
		return &mcp.ListResourcesResult{}, nil
	}

	_, err := mw(base)(context.Background(), "resources/list", nil)
	require.NoError(t, err)
	assert.True(t, handlerCalled)

	time.Sleep(10 * time.Millisecond)
	assert.Empty(t, logger.Events())
}

func TestMCPAuditMiddleware_LogsToolCall(t *testing.T) {
	logger := &capturingAuditLogger{}
	resolver := &fakeResolver{match: registry.ToolkitMatch{
		Kind:  "postgis",
		Name:  "spatial",
		Found: true,
	}}
	mw := MCPAuditMiddleware(logger, resolver)

	base := func(_ context.Context, _ string, _ mcp.Request) (mcp.Result, error) {
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: `{"success": true}`}}}, nil
	}

	ctx := WithRequestID(context.Background(), "req-fixed001")
	req := newToolCallRequest(testAuditTool, map[string]any{
		"sql":        "SELECT 1",
		"session_id": "sql_0a1b2c3d4e5f",
	})

	_, err := mw(base)(ctx, methodToolsCall, req)
	require.NoError(t, err)

	// Wait for async logging.
	time.Sleep(50 * time.Millisecond)

	events := logger.Events()
	require.Len(t, events, 1)

	event := events[0]
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "req-fixed001", event.RequestID)
	assert.Equal(t, testAuditTool, event.ToolName)
	assert.Equal(t, "postgis", event.ToolkitKind)
	assert.Equal(t, "spatial", event.ToolkitName)
	assert.Equal(t, "sql_0a1b2c3d4e5f", event.SessionID)
	assert.Equal(t, "SELECT 1", event.Parameters["sql"])
	assert.Equal(t, "SELECT 1", event.SQL)
	assert.True(t, event.Success)
	assert.Empty(t, event.ErrorMessage)
	assert.GreaterOrEqual(t, event.DurationMS, int64(0))
	assert.Equal(t, testAuditTool, resolver.gotTool)
}

func TestMCPAuditMiddleware_SanitizesParameters(t *testing.T) {
	logger := &capturingAuditLogger{}
	mw := MCPAuditMiddleware(logger, nil)

	base := func(_ context.Context, _ string, _ mcp.Request) (mcp.Result, error) {
		return &mcp.CallToolResult{}, nil
	}

	req := newToolCallRequest(testAuditTool, map[string]any{
		"sql":      "SELECT 1",
		"password": "hunter2",
	})
	_, err := mw(base)(context.Background(), methodToolsCall, req)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	events := logger.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "[REDACTED]", events[0].Parameters["password"])
	assert.Equal(t, "SELECT 1", events[0].Parameters["sql"])
}

func TestMCPAuditMiddleware_ToolErrorResult(t *testing.T) {
	logger := &capturingAuditLogger{}
	mw := MCPAuditMiddleware(logger, nil)

	base := func(_ context.Context, _ string, _ mcp.Request) (mcp.Result, error) {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: "kind_mismatch"}},
		}, nil
	}

	_, err := mw(base)(context.Background(), methodToolsCall, newToolCallRequest(testAuditTool, nil))
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	events := logger.Events()
	require.Len(t, events, 1)
	assert.False(t, events[0].Success)
	assert.Equal(t, "kind_mismatch", events[0].ErrorMessage)
}

func TestMCPAuditMiddleware_HandlerError(t *testing.T) {
	logger := &capturingAuditLogger{}
	mw := MCPAuditMiddleware(logger, nil)

	base := func(_ context.Context, _ string, _ mcp.Request) (mcp.Result, error) {
		return nil, assert.AnError
	}

	_, err := mw(base)(context.Background(), methodToolsCall, newToolCallRequest(testAuditTool, nil))
	assert.Error(t, err)

	time.Sleep(50 * time.Millisecond)

	events := logger.Events()
	require.Len(t, events, 1)
	assert.False(t, events[0].Success)
	assert.NotEmpty(t, events[0].ErrorMessage)
}

func TestMCPAuditMiddleware_UnknownTool(t *testing.T) {
	logger := &capturingAuditLogger{}
	resolver := &fakeResolver{} // zero match, Found=false
	mw := MCPAuditMiddleware(logger, resolver)

	base := func(_ context.Context, _ string, _ mcp.Request) (mcp.Result, error) {
		return &mcp.CallToolResult{}, nil
	}

	_, err := mw(base)(context.Background(), methodToolsCall, newToolCallRequest("mystery_tool", nil))
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	events := logger.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "mystery_tool", events[0].ToolName)
	assert.Empty(t, events[0].ToolkitKind)
	assert.Empty(t, events[0].ToolkitName)
}

func TestMCPAuditMiddleware_NilLoggerDisables(t *testing.T) {
	mw := MCPAuditMiddleware(nil, nil)

	handlerCalled := false
	base := func(_ context.Context, _ string, _ mcp.Request) (mcp.Result, error) {
		handlerCalled = true
		return &mcp.CallToolResult{}, nil
	}

	_, err := mw(base)(context.Background(), methodToolsCall, newToolCallRequest(testAuditTool, nil))
	require.NoError(t, err)
	assert.True(t, handlerCalled)
}

func TestMCPAuditMiddleware_DurationTracking(t *testing.T) {
	logger := &capturingAuditLogger{}
	mw := MCPAuditMiddleware(logger, nil)

	base := func(_ context.Context, _ string, _ mcp.Request) (mcp.Result, error) {
		time.Sleep(50 * time.Millisecond)
		return &mcp.CallToolResult{}, nil
	}

	_, _ = mw(base)(context.Background(), methodToolsCall, newToolCallRequest(testAuditTool, nil))

	time.Sleep(100 * time.Millisecond)

	events := logger.Events()
	require.Len(t, events, 1)
	assert.GreaterOrEqual(t, events[0].DurationMS, int64(50))
}

func TestMCPAuditMiddleware_CapturesTranslation(t *testing.T) {
	logger := &capturingAuditLogger{}
	mw := MCPAuditMiddleware(logger, nil)

	base := func(_ context.Context, _ string, _ mcp.Request) (mcp.Result, error) {
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{
			Text: `{"success":true,"generated_sql":"SELECT COUNT(*) AS feature_count FROM \"public\".\"buildings\"","query_type":"count","session_id":"sql_0a1b2c3d4e5f"}`,
		}}}, nil
	}

	req := newToolCallRequest("nl2sql_translate", map[string]any{"query": "how many buildings"})
	_, err := mw(base)(context.Background(), methodToolsCall, req)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	events := logger.Events()
	require.Len(t, events, 1)
	assert.Contains(t, events[0].SQL, "COUNT(*)")
	assert.Equal(t, "count", events[0].Intent)
}

func TestStatementFromCall(t *testing.T) {
	tests := []struct {
		name       string
		args       map[string]any
		result     mcp.Result
		wantSQL    string
		wantIntent string
	}{
		{
			name:    "sql argument",
			args:    map[string]any{"sql": "SELECT 1"},
			result:  &mcp.CallToolResult{},
			wantSQL: "SELECT 1",
		},
		{
			name: "translation payload",
			args: map[string]any{"query": "统计表:buildings的数量"},
			result: &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{
				Text: `{"generated_sql":"SELECT COUNT(*)","query_type":"count"}`,
			}}},
			wantSQL:    "SELECT COUNT(*)",
			wantIntent: "count",
		},
		{
			name:   "neither",
			args:   map[string]any{"table": "buildings"},
			result: &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: `{"success":true}`}}},
		},
		{
			name:   "non-json payload",
			args:   nil,
			result: &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: "plain text"}}},
		},
		{
			name:    "argument survives undecodable result",
			args:    map[string]any{"sql": "SELECT 2"},
			result:  nil,
			wantSQL: "SELECT 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sqlText, intent := statementFromCall(tt.args, tt.result)
			assert.Equal(t, tt.wantSQL, sqlText)
			assert.Equal(t, tt.wantIntent, intent)
		})
	}
}

func TestBuildAuditEvent_TimestampIsCallStart(t *testing.T) {
	start := time.Now().Add(-time.Second)
	event := buildAuditEvent(
		context.Background(),
		nil,
		newToolCallRequest(testAuditTool, nil),
		&mcp.CallToolResult{},
		nil,
		start,
		time.Second,
	)

	assert.Equal(t, start, event.Timestamp)
	assert.Equal(t, int64(1000), event.DurationMS)
}
