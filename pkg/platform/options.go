package platform

import (
	"database/sql"

	"github.com/txn2/mcp-postgis/pkg/audit"
	"github.com/txn2/mcp-postgis/pkg/confirm"
	"github.com/txn2/mcp-postgis/pkg/query"
	"github.com/txn2/mcp-postgis/pkg/registry"
	"github.com/txn2/mcp-postgis/pkg/toolkits/training"
)

// Options configures the platform.
type Options struct {
	// Config is the platform configuration.
	Config *Config

	// Executor runs SQL and answers catalog questions (optional, will be
	// created from config if not provided).
	Executor query.Provider

	// SessionStore holds confirmation sessions (optional, an in-memory
	// store is created from config if not provided).
	SessionStore confirm.Store

	// AuditLogger records tool calls (optional, will be created from
	// config if not provided).
	AuditLogger audit.Logger

	// TrainingSink receives confirmed training submissions (optional,
	// the training toolkit logs them if not provided).
	TrainingSink training.Sink

	// ToolkitRegistry (optional, will be created if not provided).
	ToolkitRegistry *registry.Registry

	// AuditDB is the database handle for audit storage (optional, will be
	// opened from config if not provided). Used by tests.
	AuditDB *sql.DB
}

// Option is a functional option for configuring the platform.
type Option func(*Options)

// WithConfig sets the configuration.
func WithConfig(cfg *Config) Option {
	return func(o *Options) {
		o.Config = cfg
	}
}

// WithExecutor sets the query executor.
func WithExecutor(executor query.Provider) Option {
	return func(o *Options) {
		o.Executor = executor
	}
}

// WithSessionStore sets the confirmation-session store.
func WithSessionStore(store confirm.Store) Option {
	return func(o *Options) {
		o.SessionStore = store
	}
}

// WithAuditLogger sets the audit logger.
func WithAuditLogger(logger audit.Logger) Option {
	return func(o *Options) {
		o.AuditLogger = logger
	}
}

// WithTrainingSink sets the training submission sink.
func WithTrainingSink(sink training.Sink) Option {
	return func(o *Options) {
		o.TrainingSink = sink
	}
}

// WithToolkitRegistry sets the toolkit registry.
func WithToolkitRegistry(reg *registry.Registry) Option {
	return func(o *Options) {
		o.ToolkitRegistry = reg
	}
}

// WithAuditDB sets the database handle used for audit storage.
func WithAuditDB(db *sql.DB) Option {
	return func(o *Options) {
		o.AuditDB = db
	}
}
