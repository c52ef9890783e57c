package database

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const postgresAttempts = 15

// NewPostgres connects to PostgreSQL, retrying with exponential backoff
// capped at ten seconds.
func NewPostgres(dsn string, log *zap.Logger) (*gorm.DB, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var db *gorm.DB
	err := retry(postgresAttempts, backoff, func(attempt int) error {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
		if err == nil {
			var sqlDB *sql.DB
			if sqlDB, err = db.DB(); err == nil {
				err = sqlDB.Ping()
			}
		}
		if err != nil {
			log.Warn("postgres connection attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		log.Info("postgres connected", zap.Int("attempt", attempt))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", postgresAttempts, err)
	}
	return db, nil
}

// retry calls fn up to attempts times and sleeps wait(i) between attempts.
// There is no sleep after the last one.
func retry(attempts int, wait func(attempt int) time.Duration, fn func(attempt int) error) error {
	var err error
	for i := 1; i <= attempts; i++ {
		if err = fn(i); err == nil {
			return nil
		}
		if i < attempts {
			time.Sleep(wait(i))
		}
	}
	return err
}

// backoff doubles from one second and stops at ten.
func backoff(attempt int) time.Duration {
	wait := time.Duration(1<<uint(attempt-1)) * time.Second
	if wait > 10*time.Second || wait <= 0 {
		wait = 10 * time.Second
	}
	return wait
}

// AutoMigrateTables creates or updates the tables for models.
func AutoMigrateTables(db *gorm.DB, models ...interface{}) error {
	for _, model := range models {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model: %w", err)
		}
	}
	return nil
}
