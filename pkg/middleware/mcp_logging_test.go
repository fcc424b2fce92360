package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// newCapturedLogger returns a debug-level slog logger writing to buf.
func newCapturedLogger(buf *strings.Builder) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestMCPLoggingMiddleware_ToolCall(t *testing.T) {
	var buf strings.Builder
	mw := MCPLoggingMiddleware(newCapturedLogger(&buf))

	base := func(_ context.Context, _ string, _ mcp.Request) (mcp.Result, error) {
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: "ok"}}}, nil
	}

	req := newToolCallRequest("postgis_list_tables", nil)
	result, err := mw(base)(context.Background(), methodToolsCall, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil {
		t.Fatal("result is nil")
	}

	logged := buf.String()
	if !strings.Contains(logged, "tool call completed") {
		t.Errorf("log missing completion message: %s", logged)
	}
	if !strings.Contains(logged, "tool=postgis_list_tables") {
		t.Errorf("log missing tool name: %s", logged)
	}
	if !strings.Contains(logged, "request_id=req-") {
		t.Errorf("log missing request id: %s", logged)
	}
}

func TestMCPLoggingMiddleware_InjectsRequestID(t *testing.T) {
	var buf strings.Builder
	mw := MCPLoggingMiddleware(newCapturedLogger(&buf))

	var seenID string
	base := func(ctx context.Context, _ string, _ mcp.Request) (mcp.Result, error) {
		seenID = GetRequestID(ctx)
		return &mcp.CallToolResult{}, nil
	}

	_, err := mw(base)(context.Background(), methodToolsCall, newToolCallRequest("tool", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seenID == "" {
		t.Error("handler should see a request id in its context")
	}
	if !strings.Contains(buf.String(), seenID) {
		t.Errorf("log should carry the same request id %q: %s", seenID, buf.String())
	}
}

func TestMCPLoggingMiddleware_KeepsExistingRequestID(t *testing.T) {
	var buf strings.Builder
	mw := MCPLoggingMiddleware(newCapturedLogger(&buf))

	base := func(ctx context.Context, _ string, _ mcp.Request) (mcp.Result, error) {
		if got := GetRequestID(ctx); got != "req-preset" {
			t.Errorf("request id = %q, want req-preset", got)
		}
		return &mcp.CallToolResult{}, nil
	}

	ctx := WithRequestID(context.Background(), "req-preset")
	if _, err := mw(base)(ctx, methodToolsCall, newToolCallRequest("tool", nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "req-preset") {
		t.Errorf("log should carry the preset request id: %s", buf.String())
	}
}

func TestMCPLoggingMiddleware_ToolError(t *testing.T) {
	var buf strings.Builder
	mw := MCPLoggingMiddleware(newCapturedLogger(&buf))

	base := func(_ context.Context, _ string, _ mcp.Request) (mcp.Result, error) {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: "already_finalized"}},
		}, nil
	}

	if _, err := mw(base)(context.Background(), methodToolsCall, newToolCallRequest("postgis_confirm_execution", nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	logged := buf.String()
	if !strings.Contains(logged, "level=WARN") {
		t.Errorf("tool error should log at warn level: %s", logged)
	}
	if !strings.Contains(logged, "tool call returned error") {
		t.Errorf("log missing error message: %s", logged)
	}
	if !strings.Contains(logged, "already_finalized") {
		t.Errorf("log missing error detail: %s", logged)
	}
}

func TestMCPLoggingMiddleware_HandlerError(t *testing.T) {
	var buf strings.Builder
	mw := MCPLoggingMiddleware(newCapturedLogger(&buf))

	wantErr := errors.New("transport closed")
	base := func(_ context.Context, _ string, _ mcp.Request) (mcp.Result, error) {
		return nil, wantErr
	}

	_, err := mw(base)(context.Background(), methodToolsCall, newToolCallRequest("tool", nil))
	if !errors.Is(err, wantErr) {
		t.Fatalf("error = %v, want %v", err, wantErr)
	}

	logged := buf.String()
	if !strings.Contains(logged, "level=ERROR") {
		t.Errorf("handler error should log at error level: %s", logged)
	}
	if !strings.Contains(logged, "tool call failed") {
		t.Errorf("log missing failure message: %s", logged)
	}
}

func TestMCPLoggingMiddleware_NonToolsCall(t *testing.T) {
	var buf strings.Builder
	mw := MCPLoggingMiddleware(newCapturedLogger(&buf))

	handlerCalled := false
	base := func(_ context.Context, _ string, _ mcp.Request) (mcp.Result, error) {
		handlerCalled = true
		return &mcp.ListToolsResult{}, nil
	}

	if _, err := mw(base)(context.Background(), "tools/list", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handlerCalled {
		t.Error("expected handler to be called for non-tools/call method")
	}

	logged := buf.String()
	if !strings.Contains(logged, "method=tools/list") {
		t.Errorf("log missing method: %s", logged)
	}
	if strings.Contains(logged, "tool call completed") {
		t.Errorf("non-tools/call should not log a tool call: %s", logged)
	}
}

func TestMCPLoggingMiddleware_NilLogger(t *testing.T) {
	mw := MCPLoggingMiddleware(nil)

	handlerCalled := false
	base := func(_ context.Context, _ string, _ mcp.Request) (mcp.Result, error) {
		handlerCalled = true
		return &mcp.CallToolResult{}, nil
	}

	if _, err := mw(base)(context.Background(), methodToolsCall, newToolCallRequest("tool", nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handlerCalled {
		t.Error("expected handler to be called")
	}
}
