// Package server runs the assembled platform over its configured transport.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-postgis/pkg/health"
	"github.com/txn2/mcp-postgis/pkg/platform"
)

// Version is set at build time.
var Version = "dev"

const (
	shutdownTimeout   = 15 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// Server serves a platform over stdio or streamable HTTP.
type Server struct {
	platform *platform.Platform
	checker  *health.Checker
}

// New wraps a platform for serving. The readiness probe reaches the
// database only when a DSN is configured; otherwise readiness follows
// lifecycle state alone.
func New(p *platform.Platform) *Server {
	var probe health.Probe
	if p.Config().Database.DSN != "" {
		executor := p.Executor()
		probe = func(ctx context.Context) error {
			_, err := executor.DatabaseInfo(ctx)
			return err
		}
	}
	return &Server{
		platform: p,
		checker:  health.NewChecker(probe),
	}
}

// Checker exposes the readiness state machine.
func (s *Server) Checker() *health.Checker {
	return s.checker
}

// Run starts the platform and serves until ctx is cancelled (HTTP) or the
// client disconnects (stdio).
func (s *Server) Run(ctx context.Context) error {
	if err := s.platform.Start(ctx); err != nil {
		return fmt.Errorf("starting platform: %w", err)
	}
	defer func() {
		if err := s.platform.Stop(context.Background()); err != nil {
			slog.Error("stopping platform", "error", err)
		}
	}()

	if s.platform.Config().Server.Transport == "http" {
		return s.runHTTP(ctx)
	}
	return s.runStdio(ctx)
}

// runStdio serves a single MCP session over stdin/stdout.
func (s *Server) runStdio(ctx context.Context) error {
	slog.Info("serving MCP over stdio", "server", s.platform.Config().Server.Name)
	s.checker.SetReady()
	if err := s.platform.MCPServer().Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("stdio session: %w", err)
	}
	return nil
}

// runHTTP serves the MCP streamable handler plus the probe endpoints, and
// drains in-flight requests on shutdown.
func (s *Server) runHTTP(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.platform.Config().Server.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	ln, err := net.Listen("tcp", httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", httpServer.Addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("serving MCP over http",
			"server", s.platform.Config().Server.Name,
			"address", ln.Addr().String())
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.checker.SetReady()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.checker.SetDraining()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	slog.Info("http server stopped")
	return nil
}

// Handler returns the HTTP mux: the MCP streamable endpoint at /mcp and
// the K8s probe endpoints at /healthz and /readyz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/mcp", corsMiddleware(mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.platform.MCPServer()
	}, nil)))
	mux.HandleFunc("/healthz", s.checker.LivenessHandler())
	mux.HandleFunc("/readyz", s.checker.ReadinessHandler())
	return mux
}

// corsMiddleware sets the CORS headers browser-based MCP clients need.
// DELETE is allowed because the streamable transport tears sessions down
// with it, and Mcp-Session-Id must be readable across origins.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Mcp-Session-Id, Mcp-Protocol-Version, Last-Event-ID")
		h.Set("Access-Control-Expose-Headers", "Mcp-Session-Id")
		h.Set("Access-Control-Allow-Credentials", "true")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
