// Package database stores the plant collection in SQLite, one row per plant.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"plantly/internal/database/migrations"
	"plantly/internal/model"
	"plantly/internal/plantly"
	"plantly/internal/snapshot"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase is a plantly.SnapshotStore backed by SQLite.
// Save replaces every row inside one transaction, so a failed save leaves
// the previous collection intact.
type SQLiteDatabase struct {
	db     *sql.DB
	path   string
	logger plantly.Logger
}

var _ plantly.SnapshotStore = (*SQLiteDatabase)(nil)

// NewSQLiteDatabase opens the database at path and migrates it to the
// latest schema. path can be a file path or ":memory:".
func NewSQLiteDatabase(path string, logger plantly.Logger) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}

	return NewSQLiteDatabaseFromDB(db, path, logger), nil
}

// NewSQLiteDatabaseFromDB wraps an existing, already migrated connection.
func NewSQLiteDatabaseFromDB(db *sql.DB, path string, logger plantly.Logger) *SQLiteDatabase {
	if logger == nil {
		logger = plantly.NewNopLogger()
	}
	return &SQLiteDatabase{db: db, path: path, logger: logger}
}

// OpenConnection opens and configures a SQLite connection.
// An in-memory database is pinned to one connection; every new
// connection to ":memory:" would otherwise see an empty database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return db, nil
}

// Save replaces the stored collection with plants.
func (s *SQLiteDatabase) Save(plants []*model.Plant) error {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM plants"); err != nil {
		return fmt.Errorf("clearing plants: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO plants
		(id, name, watering_frequency_days, last_watered_at, image_uri)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range plants {
		image := sql.NullString{String: p.ImageURI, Valid: p.ImageURI != ""}
		_, err := stmt.ExecContext(ctx, p.ID, p.Name, p.WateringFrequencyDays,
			p.LastWateredAt.UTC().Format(time.RFC3339Nano), image)
		if err != nil {
			return fmt.Errorf("inserting plant %s: %w", p.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx, "UPDATE snapshot_meta SET schema_version = ?, saved_at = ? WHERE id = 1",
		snapshot.CurrentVersion, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("updating snapshot meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("snapshot saved", "plants", len(plants), "path", s.path)
	return nil
}

// Load returns every stored plant ordered by id. Rows that fail to parse or
// validate are skipped and counted in a warning.
func (s *SQLiteDatabase) Load() ([]*model.Plant, error) {
	ctx := context.Background()

	version, err := s.SchemaVersion()
	if err != nil {
		return nil, err
	}
	if version > snapshot.CurrentVersion {
		s.logger.Warn("database written by a newer schema, reading known columns only",
			"version", version, "supported", snapshot.CurrentVersion)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, watering_frequency_days, last_watered_at, image_uri
		FROM plants ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying plants: %w", err)
	}
	defer rows.Close()

	plants := []*model.Plant{}
	skipped := 0
	for rows.Next() {
		var (
			p         model.Plant
			wateredAt string
			image     sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.WateringFrequencyDays, &wateredAt, &image); err != nil {
			s.logger.Warn("skipping unreadable plant row", "error", err)
			skipped++
			continue
		}

		t, err := time.Parse(time.RFC3339Nano, wateredAt)
		if err == nil {
			p.LastWateredAt = t.UTC()
			p.ImageURI = image.String
			err = p.Validate()
		}
		if err != nil {
			s.logger.Warn("skipping plant row", "id", p.ID, "error", err)
			skipped++
			continue
		}
		plants = append(plants, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading plants: %w", err)
	}

	if skipped > 0 {
		s.logger.Warn("plant rows skipped", "skipped", skipped, "loaded", len(plants))
	}
	return plants, nil
}

// SchemaVersion returns the snapshot schema version recorded by the last Save.
func (s *SQLiteDatabase) SchemaVersion() (int, error) {
	var v int
	if err := s.db.QueryRow("SELECT schema_version FROM snapshot_meta WHERE id = 1").Scan(&v); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

// Path returns the database file path (or ":memory:").
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
