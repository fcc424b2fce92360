package platform

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-postgis/pkg/audit"
	auditpg "github.com/txn2/mcp-postgis/pkg/audit/postgres"
	"github.com/txn2/mcp-postgis/pkg/confirm"
	"github.com/txn2/mcp-postgis/pkg/database/migrate"
	"github.com/txn2/mcp-postgis/pkg/middleware"
	"github.com/txn2/mcp-postgis/pkg/query"
	querypg "github.com/txn2/mcp-postgis/pkg/query/postgres"
	"github.com/txn2/mcp-postgis/pkg/registry"
	"github.com/txn2/mcp-postgis/pkg/toolkits/training"
)

// auditCleanupInterval is how often expired audit events are purged.
const auditCleanupInterval = time.Hour

// defaultToolkitKinds are registered when the config has no toolkits
// section, so a minimal config still serves the full tool surface.
var defaultToolkitKinds = []string{"postgis", "nl2sql", "training"}

// Platform is the main server facade. It owns the query executor, the
// confirmation-session store, the audit logger, and the toolkit registry,
// and wires them all into one MCP server.
type Platform struct {
	config *Config

	// Core components
	mcpServer *mcp.Server
	lifecycle *Lifecycle

	// Execution and confirmation state
	queryProvider query.Provider
	sessionStore  confirm.Store

	// Audit
	auditLogger audit.Logger
	auditDB     *sql.DB // owned when opened from config

	// Registries
	toolkitRegistry *registry.Registry

	// Fixed-URI resources, for the read_resource fallback tool.
	resourceRegistry map[string]mcp.ResourceHandler
}

// New creates a new platform instance.
func New(opts ...Option) (*Platform, error) {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Config == nil {
		return nil, fmt.Errorf("config is required")
	}

	p := &Platform{
		config:           options.Config,
		lifecycle:        NewLifecycle(),
		resourceRegistry: make(map[string]mcp.ResourceHandler),
	}

	// Initialize components
	if err := p.initializeComponents(options); err != nil {
		return nil, fmt.Errorf("initializing components: %w", err)
	}

	return p, nil
}

// initializeComponents initializes all platform components.
func (p *Platform) initializeComponents(opts *Options) error {
	if err := p.initExecutor(opts); err != nil {
		return err
	}
	p.initSessions(opts)
	if err := p.initAudit(opts); err != nil {
		return err
	}
	if err := p.initToolkits(opts); err != nil {
		return err
	}
	p.finalizeSetup()
	return nil
}

// initExecutor initializes the query executor. Without a DSN a no-op
// executor is installed so tool calls fail with a clear message.
func (p *Platform) initExecutor(opts *Options) error {
	if opts.Executor != nil {
		p.queryProvider = opts.Executor
		return nil
	}

	if p.config.Database.DSN == "" {
		p.queryProvider = query.NewNoopProvider()
		return nil
	}

	adapter, err := querypg.New(querypg.Config{
		DSN:          p.config.Database.DSN,
		MaxOpenConns: p.config.Database.MaxOpenConns,
		MaxIdleConns: p.config.Database.MaxIdleConns,
		QueryTimeout: p.config.Database.QueryTimeout,
		DefaultLimit: p.config.Database.DefaultLimit,
		MaxLimit:     p.config.Database.MaxLimit,
	})
	if err != nil {
		return fmt.Errorf("creating query executor: %w", err)
	}
	p.queryProvider = adapter

	// The pool connects lazily; verify reachability at startup.
	p.lifecycle.OnStart(adapter.Ping)
	return nil
}

// initSessions initializes the confirmation-session store.
func (p *Platform) initSessions(opts *Options) {
	if opts.SessionStore != nil {
		p.sessionStore = opts.SessionStore
		return
	}

	manager := confirm.NewManager(p.config.Sessions.TTL, p.config.Sessions.Retention)
	manager.StartSweeper(p.config.Sessions.SweepInterval)
	p.sessionStore = manager
}

// initAudit initializes the audit logger. With a database it stores
// events in PostgreSQL; without one, enabled audit falls back to the
// structured log.
func (p *Platform) initAudit(opts *Options) error {
	if opts.AuditLogger != nil {
		p.auditLogger = opts.AuditLogger
		return nil
	}

	if !p.config.Audit.Enabled {
		p.auditLogger = &audit.NoopLogger{}
		return nil
	}

	db := opts.AuditDB
	if db == nil && p.config.Database.DSN != "" {
		opened, err := sql.Open("postgres", p.config.Database.DSN)
		if err != nil {
			return fmt.Errorf("opening audit database: %w", err)
		}
		db = opened
		p.auditDB = opened
	}

	if db == nil {
		p.auditLogger = audit.NewSlogLogger(nil)
		return nil
	}

	store := auditpg.New(db, auditpg.Config{RetentionDays: p.config.Audit.RetentionDays})
	p.auditLogger = store

	// Schema migration touches the database, so it waits for Start.
	p.lifecycle.OnStart(func(_ context.Context) error {
		if err := migrate.Run(db); err != nil {
			return fmt.Errorf("migrating audit schema: %w", err)
		}
		store.StartCleanupRoutine(auditCleanupInterval)
		return nil
	})
	return nil
}

// initToolkits initializes the toolkit registry and loads toolkit
// instances from config.
func (p *Platform) initToolkits(opts *Options) error {
	if opts.ToolkitRegistry != nil {
		p.toolkitRegistry = opts.ToolkitRegistry
	} else {
		p.toolkitRegistry = registry.NewRegistry()
		registry.RegisterBuiltinFactories(p.toolkitRegistry)
	}

	// Providers must be set before loading so every created toolkit
	// receives them on registration.
	p.toolkitRegistry.SetQueryProvider(p.queryProvider)
	p.toolkitRegistry.SetSessionStore(p.sessionStore)

	if len(p.config.Toolkits) > 0 {
		loader := registry.NewLoader(p.toolkitRegistry)
		if err := loader.LoadFromMap(p.config.Toolkits); err != nil {
			return fmt.Errorf("loading toolkits: %w", err)
		}
	} else if err := p.registerDefaultToolkits(); err != nil {
		return err
	}

	if opts.TrainingSink != nil {
		p.setTrainingSink(opts.TrainingSink)
	}
	return nil
}

// registerDefaultToolkits installs one instance of every built-in kind.
func (p *Platform) registerDefaultToolkits() error {
	for _, kind := range defaultToolkitKinds {
		cfg := registry.ToolkitConfig{Kind: kind, Name: "main", Enabled: true, Default: true}
		if err := p.toolkitRegistry.CreateAndRegister(cfg); err != nil {
			return fmt.Errorf("registering default %s toolkit: %w", kind, err)
		}
	}
	return nil
}

// setTrainingSink hands the sink to every registered training toolkit.
func (p *Platform) setTrainingSink(sink training.Sink) {
	for _, tk := range p.toolkitRegistry.GetByKind("training") {
		if t, ok := tk.(*training.Toolkit); ok {
			t.SetSink(sink)
		}
	}
}

// finalizeSetup builds the MCP server and registers the tool, resource,
// and prompt surface.
func (p *Platform) finalizeSetup() {
	p.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    p.config.Server.Name,
		Version: p.config.Server.Version,
	}, nil)

	// Middleware nests innermost first: audit is added before logging so
	// logging runs first and the request id it mints reaches audit.
	if p.config.Audit.Enabled {
		p.mcpServer.AddReceivingMiddleware(middleware.MCPAuditMiddleware(p.auditLogger, p.toolkitRegistry))
	}
	p.mcpServer.AddReceivingMiddleware(middleware.MCPLoggingMiddleware(slog.Default()))

	p.toolkitRegistry.RegisterAllTools(p.mcpServer)
	p.registerInfoTool()
	p.registerResourceTemplates()
	p.registerCustomResources()
	p.registerResourceTool()
	p.registerPlatformPrompts()
	p.registerAnalyzePrompt()
	p.validateAgentInstructions()
}

// Start starts the platform. A failed start rolls back the components
// that already started.
func (p *Platform) Start(ctx context.Context) error {
	return p.lifecycle.Start(ctx)
}

// Stop stops the platform.
func (p *Platform) Stop(ctx context.Context) error {
	return p.lifecycle.Stop(ctx)
}

// MCPServer returns the MCP server.
func (p *Platform) MCPServer() *mcp.Server {
	return p.mcpServer
}

// Config returns the platform configuration.
func (p *Platform) Config() *Config {
	return p.config
}

// Executor returns the query executor.
func (p *Platform) Executor() query.Provider {
	return p.queryProvider
}

// SessionStore returns the confirmation-session store.
func (p *Platform) SessionStore() confirm.Store {
	return p.sessionStore
}

// AuditLogger returns the audit logger.
func (p *Platform) AuditLogger() audit.Logger {
	return p.auditLogger
}

// ToolkitRegistry returns the toolkit registry.
func (p *Platform) ToolkitRegistry() *registry.Registry {
	return p.toolkitRegistry
}

// closeResource closes a resource and appends any error.
func closeResource(errs *[]error, closer Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		*errs = append(*errs, err)
	}
}

// Close closes all platform resources.
func (p *Platform) Close() error {
	var errs []error

	closeResource(&errs, p.toolkitRegistry)
	closeResource(&errs, p.sessionStore)
	closeResource(&errs, p.queryProvider)
	closeResource(&errs, p.auditLogger)
	if p.auditDB != nil {
		closeResource(&errs, p.auditDB)
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing platform: %v", errs)
	}
	return nil
}
