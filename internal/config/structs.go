package config

import (
	"github.com/lendkeeper/lendkeeper/internal/logger"
)

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Language  string // message catalog language: "en" or "he"
	Webserver Webserver
	Auth      Auth
	Audit     Audit
}

// Webserver implement webserver settings.
type Webserver struct {
	DisableRecover bool   // disable recover middleware
	Domain         string // domain name for the webserver
	Port           int    // listening port for the webserver
	ShutDownTime   int    // wait time for shutdown, in seconds
	URL            string // base url for the webserver
}

// Auth holds token issuing settings.
type Auth struct {
	JWTSecret          string // HMAC secret for signing access and refresh tokens
	AccessTokenMinutes int    // access token lifetime in minutes
	RefreshTokenDays   int    // refresh token lifetime in days
	LoginRateLimit     int    // max login/register attempts per minute per IP, 0 = disabled
}

// Audit holds audit trail settings.
type Audit struct {
	RetentionDays int // default age for the retention cleanup
}
