package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPLoggingMiddleware creates MCP protocol-level middleware that logs
// tool calls through slog. Each tools/call request is tagged with a
// request ID, which is also placed in the context so the audit
// middleware can correlate its event with the log line. Other methods
// are logged at debug level and passed through.
func MCPLoggingMiddleware(logger *slog.Logger) mcp.Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			if method != methodToolsCall {
				logger.DebugContext(ctx, "mcp request", slog.String("method", method))
				return next(ctx, method, req)
			}

			requestID := GetRequestID(ctx)
			if requestID == "" {
				requestID = generateRequestID()
				ctx = WithRequestID(ctx, requestID)
			}
			toolName := toolNameFromRequest(req)
			start := time.Now()

			result, err := next(ctx, method, req)

			durationMS := time.Since(start).Milliseconds()
			switch {
			case err != nil:
				logger.ErrorContext(ctx, "tool call failed",
					slog.String("request_id", requestID),
					slog.String("tool", toolName),
					slog.Int64("duration_ms", durationMS),
					slog.String("error", err.Error()),
				)
			default:
				if msg, isErr := resultError(result); isErr {
					logger.WarnContext(ctx, "tool call returned error",
						slog.String("request_id", requestID),
						slog.String("tool", toolName),
						slog.Int64("duration_ms", durationMS),
						slog.String("error", msg),
					)
				} else {
					logger.InfoContext(ctx, "tool call completed",
						slog.String("request_id", requestID),
						slog.String("tool", toolName),
						slog.Int64("duration_ms", durationMS),
					)
				}
			}

			return result, err
		}
	}
}
