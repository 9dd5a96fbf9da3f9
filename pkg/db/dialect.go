package db

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/locafrota/fleetsla/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Dialect maps the configured driver to a gorm dialector. sqlite uses the
// pure-Go driver so deployments need no cgo toolchain.
func Dialect(cfg config.Config) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.DBDriver)) {
	case "sqlite", "":
		dsn := strings.TrimSpace(cfg.DBDSN)
		if dsn == "" {
			dsn = "fleetsla.db"
		}
		return sqlite.Open(dsn), nil
	case "postgres":
		return postgres.Open(cfg.DBDSN), nil
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.DBDriver)
	}
}
