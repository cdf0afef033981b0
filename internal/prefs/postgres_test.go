package prefs

import (
	"context"
	"os"
	"testing"
	"testing/fstest"
)

// Runs against a real database when TEST_DATABASE_URL is set.
func TestPgStore(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	migrations := fstest.MapFS{
		"001_preferences.up.sql": &fstest.MapFile{Data: []byte(`
			CREATE TABLE IF NOT EXISTS preferences (
				key        TEXT        PRIMARY KEY,
				value      TEXT        NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`)},
	}

	store, closeFn := Open(context.Background(), Options{
		Backend:     BackendPostgres,
		DatabaseURL: url,
		Migrations:  migrations,
	})
	defer closeFn()

	if _, ok := store.(*PgStore); !ok {
		t.Fatalf("Open(postgres) = %T, want *PgStore", store)
	}
	testStoreRoundTrip(t, store)
}
