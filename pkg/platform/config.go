// Package platform assembles the PostGIS MCP server: configuration,
// providers, toolkits, middleware, resources, and prompts.
package platform

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	Toolkits  map[string]any  `yaml:"toolkits"`
	Audit     AuditConfig     `yaml:"audit"`
	Resources ResourcesConfig `yaml:"resources"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Name              string         `yaml:"name"`
	Version           string         `yaml:"version"`
	Description       string         `yaml:"description"`
	Tags              []string       `yaml:"tags"`               // Discovery keywords for routing
	AgentInstructions string         `yaml:"agent_instructions"` // Inline operational guidance for AI agents
	Prompts           []PromptConfig `yaml:"prompts"`            // Operator-defined MCP prompts
	Transport         string         `yaml:"transport"`          // "stdio", "http"
	Address           string         `yaml:"address"`
}

// PromptConfig defines an operator-defined MCP prompt.
type PromptConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Content     string `yaml:"content"`
}

// DatabaseConfig configures the PostGIS database connection. The same
// connection serves spatial queries and, when audit logging is enabled,
// audit event storage.
type DatabaseConfig struct {
	DSN          string        `yaml:"dsn"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
	DefaultLimit int           `yaml:"default_limit"`
	MaxLimit     int           `yaml:"max_limit"`
}

// SessionsConfig configures the confirmation-session store. Zero values
// take the store's own defaults.
type SessionsConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	Retention     time.Duration `yaml:"retention"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// AuditConfig configures audit logging.
type AuditConfig struct {
	Enabled       bool `yaml:"enabled"`
	LogToolCalls  bool `yaml:"log_tool_calls"`
	RetentionDays int  `yaml:"retention_days"`
}

// ResourcesConfig configures MCP resources.
type ResourcesConfig struct {
	// Enabled gates the dynamic database resources (info, schema listings,
	// table info, extents). Custom resources are registered regardless.
	Enabled bool                `yaml:"enabled"`
	Custom  []CustomResourceDef `yaml:"custom"`
}

// CustomResourceDef defines an operator-defined static resource.
type CustomResourceDef struct {
	URI         string `yaml:"uri"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	MIMEType    string `yaml:"mime_type"`
	Content     string `yaml:"content"`
	ContentFile string `yaml:"content_file"`
}

// LoadConfig loads configuration from a file.
// The path is expected to come from command line arguments, controlled by the administrator.
func LoadConfig(path string) (*Config, error) {
	// #nosec G304 -- path is from CLI args, controlled by admin
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	data = []byte(expandEnvVars(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Apply defaults
	applyDefaults(&cfg)

	return &cfg, nil
}

// expandEnvVars expands ${VAR} patterns in the string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// applyDefaults applies default values to the config. Connection pool and
// session-window zeros are left alone; the adapter and session store apply
// their own defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.Name == "" {
		cfg.Server.Name = "mcp-postgis"
	}
	if cfg.Server.Version == "" {
		cfg.Server.Version = "1.0.0"
	}
	if cfg.Server.Transport == "" {
		cfg.Server.Transport = "stdio"
	}
	if cfg.Server.Transport == "http" && cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Audit.RetentionDays == 0 {
		cfg.Audit.RetentionDays = 90
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	switch c.Server.Transport {
	case "", "stdio", "http":
	default:
		errs = append(errs, fmt.Sprintf("server.transport must be stdio or http, got %q", c.Server.Transport))
	}

	if c.Server.Transport == "http" && c.Server.Address == "" {
		errs = append(errs, "server.address is required when transport is http")
	}

	if c.Sessions.TTL < 0 {
		errs = append(errs, "sessions.ttl must not be negative")
	}
	if c.Sessions.Retention < 0 {
		errs = append(errs, "sessions.retention must not be negative")
	}

	if c.Database.MaxOpenConns < 0 {
		errs = append(errs, "database.max_open_conns must not be negative")
	}
	if c.Database.DefaultLimit < 0 {
		errs = append(errs, "database.default_limit must not be negative")
	}
	if c.Database.MaxLimit > 0 && c.Database.DefaultLimit > c.Database.MaxLimit {
		errs = append(errs, "database.default_limit must not exceed database.max_limit")
	}

	for i, def := range c.Resources.Custom {
		if err := validateCustomResourceDef(def); err != nil {
			errs = append(errs, fmt.Sprintf("resources.custom[%d]: %v", i, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
