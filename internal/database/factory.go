package database

import (
	"fmt"
	"os"
	"path/filepath"

	"plantly/internal/config"
	"plantly/internal/plantly"
)

// dbFile is the database file name inside the configured data directory.
const dbFile = "plantly.db"

// NewDatabaseFromConfig opens the SQLite store described by cfg, creating
// and migrating it as needed.
func NewDatabaseFromConfig(cfg config.StorageConfig, logger plantly.Logger) (*SQLiteDatabase, error) {
	path, err := dbPath(cfg)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return NewSQLiteDatabase(path, logger)
}

// OpenDatabaseFromConfig opens an existing SQLite store without migrating it.
// The returned error wraps fs.ErrNotExist when there is no database yet.
func OpenDatabaseFromConfig(cfg config.StorageConfig, logger plantly.Logger) (*SQLiteDatabase, error) {
	path, err := dbPath(cfg)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("database not accessible: %w", err)
	}
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return NewSQLiteDatabaseFromDB(db, path, logger), nil
}

func dbPath(cfg config.StorageConfig) (string, error) {
	if cfg.Type != "sqlite" {
		return "", fmt.Errorf("storage type %q is not a database", cfg.Type)
	}
	if cfg.DataDir == "" {
		return "", fmt.Errorf("data_dir required for sqlite storage")
	}
	return filepath.Join(cfg.DataDir, dbFile), nil
}
