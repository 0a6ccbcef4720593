// Package db manages the gorm MySQL connection used by the mysql store
// backend.
package db

import (
	"context"

	"gorm.io/gorm"
)

// Database is the interface for the database
type Database interface {
	DB() (*gorm.DB, error)
	// Migrate creates or updates the tables of the given models
	Migrate(ctx context.Context, models ...any) error
	Ping(ctx context.Context) error
	Close() error
}
