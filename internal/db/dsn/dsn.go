// Package dsn provides Data Source Name construction utilities for database connections.
package dsn

import (
	"fmt"

	"github.com/lendkeeper/lendkeeper/internal/config"
)

// Create builds the Data Source Name for the configured gorm engine.
func Create(cfg *config.Config) string {
	switch cfg.DB.GormEngine {
	case "postgres":
		return Postgres(cfg)
	case "sqlite":
		return Sqlite(cfg)
	default:
		return MySQL(cfg)
	}
}

// MySQL builds a go-sql-driver DSN.
func MySQL(cfg *config.Config) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		cfg.DB.User,
		cfg.DB.Password,
		cfg.DB.Host,
		cfg.DB.Port,
		cfg.DB.Name,
		cfg.DB.Extras,
	)
}

// Postgres builds a pgx keyword/value DSN.
func Postgres(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s %s",
		cfg.DB.Host,
		cfg.DB.Port,
		cfg.DB.User,
		cfg.DB.Password,
		cfg.DB.Name,
		cfg.DB.Extras,
	)
}

// PostgresURI builds a postgres:// connection URI for clients that do
// not accept the keyword/value form.
func PostgresURI(cfg *config.Config) string {
	uri := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		cfg.DB.User,
		cfg.DB.Password,
		cfg.DB.Host,
		cfg.DB.Port,
		cfg.DB.Name,
	)

	if cfg.DB.Extras != "" {
		uri += "?" + cfg.DB.Extras
	}

	return uri
}

// Sqlite returns the database file path, defaulting to an in-memory database.
func Sqlite(cfg *config.Config) string {
	if cfg.DB.Path == "" {
		return ":memory:"
	}

	return cfg.DB.Path
}
