package database

import (
	"path/filepath"
	"testing"
	"time"

	"plantly/internal/model"
)

// newTestDB creates a new migrated in-memory database.
func newTestDB(t *testing.T) *SQLiteDatabase {
	t.Helper()

	db, err := NewSQLiteDatabase(":memory:", nil)
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

var wateredAt = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

func testPlants() []*model.Plant {
	return []*model.Plant{
		{ID: "a", Name: "Casper", WateringFrequencyDays: 6, LastWateredAt: wateredAt},
		{ID: "b", Name: "Fern", WateringFrequencyDays: 3, LastWateredAt: wateredAt.Add(90 * time.Minute), ImageURI: "/images/fern.jpg"},
	}
}

func TestSQLiteDatabase_LoadEmpty(t *testing.T) {
	db := newTestDB(t)

	plants, err := db.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if plants == nil || len(plants) != 0 {
		t.Errorf("Load() = %v, want empty non-nil slice", plants)
	}
}

func TestSQLiteDatabase_SaveLoad(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		db := newTestDB(t)
		want := testPlants()

		if err := db.Save(want); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		got, err := db.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(got) != len(want) {
			t.Fatalf("Load() returned %d plants, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i].ID != want[i].ID || got[i].Name != want[i].Name ||
				got[i].WateringFrequencyDays != want[i].WateringFrequencyDays ||
				!got[i].LastWateredAt.Equal(want[i].LastWateredAt) ||
				got[i].ImageURI != want[i].ImageURI {
				t.Errorf("plant %d = %+v, want %+v", i, got[i], want[i])
			}
		}
	})

	t.Run("save replaces previous collection", func(t *testing.T) {
		db := newTestDB(t)

		if err := db.Save(testPlants()); err != nil {
			t.Fatalf("first Save() error = %v", err)
		}
		if err := db.Save(testPlants()[1:]); err != nil {
			t.Fatalf("second Save() error = %v", err)
		}

		got, err := db.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(got) != 1 || got[0].ID != "b" {
			t.Errorf("Load() = %v, want only plant b", got)
		}
	})

	t.Run("failed save keeps previous collection", func(t *testing.T) {
		db := newTestDB(t)

		if err := db.Save(testPlants()); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		dup := []*model.Plant{
			{ID: "x", Name: "One", WateringFrequencyDays: 1, LastWateredAt: wateredAt},
			{ID: "x", Name: "Two", WateringFrequencyDays: 1, LastWateredAt: wateredAt},
		}
		if err := db.Save(dup); err == nil {
			t.Fatal("Save() expected error for duplicate ids")
		}

		got, err := db.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
			t.Errorf("Load() = %v, want original plants a and b", got)
		}
	})
}

func TestSQLiteDatabase_LoadSkipsBadRows(t *testing.T) {
	db := newTestDB(t)

	if err := db.Save(testPlants()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	bad := []string{
		`INSERT INTO plants (id, name, watering_frequency_days, last_watered_at) VALUES ('c', '  ', 3, '2024-01-15T10:30:00Z')`,
		`INSERT INTO plants (id, name, watering_frequency_days, last_watered_at) VALUES ('d', 'Zero', 0, '2024-01-15T10:30:00Z')`,
		`INSERT INTO plants (id, name, watering_frequency_days, last_watered_at) VALUES ('e', 'Clock', 2, 'yesterday')`,
		`INSERT INTO plants (id, name, watering_frequency_days, last_watered_at) VALUES ('f', 'Text', 'often', '2024-01-15T10:30:00Z')`,
	}
	for _, q := range bad {
		if _, err := db.db.Exec(q); err != nil {
			t.Fatalf("inserting bad row: %v", err)
		}
	}

	got, err := db.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Load() returned %d plants, want 2 valid ones", len(got))
	}
}

func TestSQLiteDatabase_SchemaVersion(t *testing.T) {
	db := newTestDB(t)

	v, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if v != 1 {
		t.Errorf("SchemaVersion() = %d, want 1", v)
	}

	if _, err := db.db.Exec("UPDATE snapshot_meta SET schema_version = 7"); err != nil {
		t.Fatalf("bumping version: %v", err)
	}
	if _, err := db.Load(); err != nil {
		t.Errorf("Load() with newer schema version error = %v, want best-effort read", err)
	}
}

func TestSQLiteDatabase_CheckMigrations(t *testing.T) {
	db := newTestDB(t)
	if err := db.CheckMigrations(); err != nil {
		t.Errorf("CheckMigrations() error = %v", err)
	}
}

func TestSQLiteDatabase_FilePersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plantly.db")

	db, err := NewSQLiteDatabase(path, nil)
	if err != nil {
		t.Fatalf("NewSQLiteDatabase() error = %v", err)
	}
	if err := db.Save(testPlants()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewSQLiteDatabase(path, nil)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Load() returned %d plants, want 2", len(got))
	}
}
