// Package daemon boots the application: it opens the database, runs the
// schema migration, seeds the permission catalog and starts the web
// service.
package daemon

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/lendkeeper/lendkeeper/internal/config"
	"github.com/lendkeeper/lendkeeper/internal/db/dsn"
	"github.com/lendkeeper/lendkeeper/internal/db/models"
	"github.com/lendkeeper/lendkeeper/internal/web"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	webService web.Service
}

// Start starts the Daemon's web service and blocks until it stops.
func (d *Daemon) Start() error {
	go d.webService.WaitShutdown()

	return d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) *Daemon {
	if cfg == nil {
		log.Fatal().Msg("config is nil")
		return nil
	}

	db, err := gorm.Open(openDialector(cfg), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	if err = db.AutoMigrate(
		&models.User{},
		&models.Permission{},
		&models.UserPermission{},
		&models.Product{},
		&models.ProductInstance{},
		&models.Loan{},
		&models.VolunteerActivity{},
		&models.AuditLog{},
	); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	seed(cfg, db)

	return &Daemon{
		cfg:        cfg,
		webService: *web.New(cfg, db),
	}
}

func openDialector(cfg *config.Config) gorm.Dialector {
	switch cfg.DB.GormEngine {
	case "postgres":
		return gormpostgres.Open(dsn.Postgres(cfg))
	case "sqlite":
		return sqlite.Open(dsn.Sqlite(cfg))
	default:
		return gormmysql.Open(dsn.MySQL(cfg))
	}
}
