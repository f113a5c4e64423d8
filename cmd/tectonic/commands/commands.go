// Package commands implements CLI commands.
package commands

import (
	"database/sql"
	"fmt"

	"github.com/tectonic-db/tectonic/internal/config"
	"github.com/tectonic-db/tectonic/migrate"
	"github.com/tectonic-db/tectonic/schema"
)

// setup resolves config, opens the database and wires an engine. The caller
// closes the returned *sql.DB.
func setup() (*config.Config, *migrate.Engine, *sql.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return nil, nil, nil, fmt.Errorf("no database URL configured: set DATABASE_URL or database_url in .tectonic.yaml")
	}

	db, d, err := migrate.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}

	loader := migrate.NewLoader(config.AppFs, cfg.MigrationsDir, cfg.AppLabel)
	engine := migrate.NewEngine(db, d, loader, cfg.AppLabel)
	return cfg, engine, db, nil
}

// desiredState loads the declared schema from the manifest file.
func desiredState(cfg *config.Config) (schema.SchemaState, error) {
	manifest, err := schema.LoadManifest(config.AppFs, cfg.ManifestPath)
	if err != nil {
		return schema.SchemaState{}, err
	}
	return manifest.State()
}
