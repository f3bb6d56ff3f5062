package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open opens (and migrates) the SQLite database at path, creating parent
// directories as needed. Every caller gets its own handle; nothing in this
// package holds process-wide connection state.
func Open(path string) (*gorm.DB, error) {
	const op = "storage.Open"

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%s: create database directory: %w", op, err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: open database: %w", op, err)
	}

	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return db, nil
}

var memoryDBSeq atomic.Int64

// OpenInMemory opens a private in-memory database, used by tests. The DSN
// names the database uniquely and shares its cache across the connection
// pool, so every pooled connection sees the same tables.
func OpenInMemory() (*gorm.DB, error) {
	const op = "storage.OpenInMemory"

	dsn := fmt.Sprintf("file:memdb%d?mode=memory&cache=shared", memoryDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: open database: %w", op, err)
	}
	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return db, nil
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&counterpartyRow{},
		&receiptRow{},
		&itemRow{},
		&splitRow{},
		&contentRow{},
	)
}
