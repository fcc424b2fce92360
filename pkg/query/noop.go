package query

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by NoopProvider for every call that needs
// a database.
var ErrNotConfigured = errors.New("no database configured: set database.dsn")

// NoopProvider is installed when no database DSN is configured, so tool
// calls fail with a clear message instead of a nil dereference. Also used
// in tests.
type NoopProvider struct{}

// NewNoopProvider creates a new no-op provider.
func NewNoopProvider() *NoopProvider {
	return &NoopProvider{}
}

// Name returns the provider name.
func (n *NoopProvider) Name() string {
	return "noop"
}

// Execute fails with ErrNotConfigured.
func (n *NoopProvider) Execute(_ context.Context, _ string, _ []any, _ int) (*Result, error) {
	return nil, ErrNotConfigured
}

// Describe fails with ErrNotConfigured.
func (n *NoopProvider) Describe(_ context.Context, _ TableIdentifier) (*TableSchema, error) {
	return nil, ErrNotConfigured
}

// ListTables fails with ErrNotConfigured.
func (n *NoopProvider) ListTables(_ context.Context, _ string) ([]TableInfo, error) {
	return nil, ErrNotConfigured
}

// DatabaseInfo fails with ErrNotConfigured.
func (n *NoopProvider) DatabaseInfo(_ context.Context) (*DatabaseInfo, error) {
	return nil, ErrNotConfigured
}

// SpatialExtent fails with ErrNotConfigured.
func (n *NoopProvider) SpatialExtent(_ context.Context, _ TableIdentifier, _ string) (*Extent, error) {
	return nil, ErrNotConfigured
}

// Close does nothing.
func (n *NoopProvider) Close() error {
	return nil
}

// Verify interface compliance.
var _ Provider = (*NoopProvider)(nil)
