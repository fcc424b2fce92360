package registry

import (
	nl2sqlkit "github.com/txn2/mcp-postgis/pkg/toolkits/nl2sql"
	postgiskit "github.com/txn2/mcp-postgis/pkg/toolkits/postgis"
	trainingkit "github.com/txn2/mcp-postgis/pkg/toolkits/training"
)

// RegisterBuiltinFactories registers all built-in toolkit factories.
func RegisterBuiltinFactories(r *Registry) {
	r.RegisterFactory("nl2sql", NL2SQLFactory)
	r.RegisterFactory("postgis", PostGISFactory)
	r.RegisterFactory("training", TrainingFactory)
}

// NL2SQLFactory creates an NL2SQL toolkit from configuration.
func NL2SQLFactory(name string, cfg map[string]any) (Toolkit, error) {
	config, err := nl2sqlkit.ParseConfig(cfg)
	if err != nil {
		return nil, err
	}
	return nl2sqlkit.New(name, config)
}

// PostGISFactory creates a PostGIS toolkit from configuration.
func PostGISFactory(name string, cfg map[string]any) (Toolkit, error) {
	config, err := postgiskit.ParseConfig(cfg)
	if err != nil {
		return nil, err
	}
	return postgiskit.New(name, config)
}

// TrainingFactory creates a training toolkit from configuration.
func TrainingFactory(name string, cfg map[string]any) (Toolkit, error) {
	config, err := trainingkit.ParseConfig(cfg)
	if err != nil {
		return nil, err
	}
	return trainingkit.New(name, config)
}
