package database

import (
	"errors"
	"fmt"

	sqlmysql "github.com/go-sql-driver/mysql"
	"github.com/petlens/core/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens a MySQL connection and migrates the given models. Each
// service passes only its own models: schemas stay per-service even on a
// shared database.
func Connect(cfg *config.Config, ownModels ...interface{}) (*gorm.DB, error) {
	logLevel := logger.Warn
	if cfg.IsDev() {
		logLevel = logger.Info
	}

	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:               cfg.DSN,
		DefaultStringSize: 191,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if len(ownModels) > 0 {
		if err := db.AutoMigrate(ownModels...); err != nil {
			return nil, fmt.Errorf("migration failed: %w", err)
		}
	}
	return db, nil
}

// IsDuplicateKey reports whether err is a MySQL duplicate-entry violation.
func IsDuplicateKey(err error) bool {
	var mysqlErr *sqlmysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
