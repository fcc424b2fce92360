package nl2sql

// ParseConfig parses an nl2sql toolkit configuration from a map.
func ParseConfig(cfg map[string]any) (Config, error) {
	c := Config{}

	// Optional string fields
	c.DefaultTable = getString(cfg, "default_table")
	c.DefaultSchema = getString(cfg, "default_schema")
	c.GeometryColumn = getString(cfg, "geometry_column")
	c.ConnectionName = getString(cfg, "connection_name")

	// Optional int fields
	c.DefaultLimit = getInt(cfg, "default_limit", 0)

	return c, nil
}

// getString extracts a string value from a config map.
func getString(cfg map[string]any, key string) string {
	if v, ok := cfg[key].(string); ok {
		return v
	}
	return ""
}

// getInt extracts an int value from a config map with a default.
func getInt(cfg map[string]any, key string, defaultVal int) int {
	if v, ok := cfg[key].(int); ok {
		return v
	}
	if v, ok := cfg[key].(float64); ok {
		return int(v)
	}
	return defaultVal
}
