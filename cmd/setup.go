package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"yt2mp3/internal/shared"
)

// SetupDatabase initializes the local database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if _, err := os.Stat(configPath); err == nil {
		if loaded, err := shared.LoadConfig(configPath); err == nil {
			config = loaded
		} else {
			r.logger.Warn("failed to load config, using defaults", "error", err)
		}
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	return nil
}

// SetupConfig writes a config.toml from the embedded template.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("path")

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.writePlain("✓ Wrote %s\n", path)
	return r.writePlain("Edit [server] base_url to point at your conversion service\n")
}
