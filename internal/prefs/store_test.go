package prefs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func testStoreRoundTrip(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok=%v err=%v, want absent without error", ok, err)
	}

	if err := store.Set(ctx, "k", "v1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Set(ctx, "k", "v2"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	v, ok, err := store.Get(ctx, "k")
	if err != nil || !ok || v != "v2" {
		t.Errorf("Get(k) = %q ok=%v err=%v, want v2", v, ok, err)
	}
}

func TestMemoryStore(t *testing.T) {
	testStoreRoundTrip(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "prefs.json")
	testStoreRoundTrip(t, NewFileStore(path))

	if _, err := os.Stat(path); err != nil {
		t.Errorf("preferences file not created: %v", err)
	}
}

func TestFileStoreSharedAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prefs.json")

	if err := NewFileStore(path).Set(ctx, KeyLastEndpoint, "https://example.com/data.json"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	v, ok, err := NewFileStore(path).Get(ctx, KeyLastEndpoint)
	if err != nil || !ok || v != "https://example.com/data.json" {
		t.Errorf("Get from second instance = %q ok=%v err=%v", v, ok, err)
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := NewFileStore(path).Get(context.Background(), "k"); err == nil {
		t.Error("expected error for corrupt preferences file")
	}
}

func TestOpenFallsBackToMemory(t *testing.T) {
	store, closeFn := Open(context.Background(), Options{Backend: "carrier-pigeon"})
	defer closeFn()

	if _, ok := store.(*MemoryStore); !ok {
		t.Errorf("Open(unknown) = %T, want *MemoryStore", store)
	}
}

func TestOpenPostgresWithoutURLFallsBack(t *testing.T) {
	store, closeFn := Open(context.Background(), Options{Backend: BackendPostgres})
	defer closeFn()

	if _, ok := store.(*MemoryStore); !ok {
		t.Errorf("Open(postgres without URL) = %T, want *MemoryStore", store)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	store, closeFn := Open(context.Background(), Options{Backend: BackendFile, File: path})
	defer closeFn()

	if _, ok := store.(*FileStore); !ok {
		t.Errorf("Open(file) = %T, want *FileStore", store)
	}
}
