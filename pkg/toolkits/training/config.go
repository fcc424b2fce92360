package training

// ParseConfig parses a raw config map into a Config.
func ParseConfig(cfg map[string]any) (Config, error) {
	return Config{
		ConnectionName: getString(cfg, "connection_name"),
	}, nil
}

// getString extracts a string value from the config map.
func getString(cfg map[string]any, key string) string {
	if v, ok := cfg[key].(string); ok {
		return v
	}
	return ""
}
