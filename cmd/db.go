package cmd

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-course/config"
	"github.com/vibast-solutions/ms-go-course/migrations"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
)

// loadRuntime loads configuration, configures logging and opens the database.
func loadRuntime() (*config.Config, *sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err = configureLogging(cfg); err != nil {
		return nil, nil, err
	}

	dsn, err := mysql.ParseDSN(cfg.DSN())
	if err != nil {
		return nil, nil, err
	}
	// Timestamp columns scan into time.Time.
	dsn.ParseTime = true

	db, err := sql.Open("mysql", dsn.FormatDSN())
	if err != nil {
		return nil, nil, err
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, nil, err
	}

	return cfg, db, nil
}

func autoMigrate(ctx context.Context, cfg *config.Config, db *sql.DB) error {
	if !cfg.MySQL.AutoMigrate {
		return nil
	}

	logrus.Info("Applying database migrations")
	return migrations.Up(ctx, db)
}
