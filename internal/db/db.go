package db

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/wurksy/wurksy/internal/session"
)

// Connect opens the database. A mysql DSN is used when provided; otherwise
// a local sqlite file keeps dev setups self-contained.
func Connect(dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if dsn != "" {
		dialector = mysql.Open(dsn)
	} else {
		dialector = sqlite.Open("wurksy.db")
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}
	return gdb, nil
}

// Migrate creates or updates the schema for all persisted models.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&session.Session{},
		&session.Event{},
		&session.Assignment{},
		&session.Artifact{},
		&session.ExportJob{},
	)
}
