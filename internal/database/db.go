package database

import (
	"fmt"
	"time"

	"akshayapatra/internal/config"
	"akshayapatra/internal/model"
	"akshayapatra/pkg/logger"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection opens the configured database, sizes the pool and,
// when enabled, migrates the schema
func NewConnection(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN())
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewGormLogger(log, cfg.LogLevel),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if cfg.AutoMigrate {
		if err := Migrate(db); err != nil {
			log.Warn("failed to auto-migrate models", zap.Error(err))
		}
	}

	return db, nil
}

// Migrate creates or updates every table the API reads and writes.
// Stored procedures are managed outside the application.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.StaffProfile{},
		&model.UserProfile{},
		&model.Card{},
		&model.Scheme{},
		&model.SchemeSubscription{},
		&model.Winner{},
		&model.Referral{},
		&model.Commission{},
		&model.AuditLog{},
	)
}
