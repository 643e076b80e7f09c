package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "concept.db")
	s, err := Open(context.Background(), "sqlite3", dsn, true)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSlotRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	v, err := s.LoadSlot(ctx, "coroai_gallery")
	if err != nil {
		t.Fatalf("load missing slot: %v", err)
	}
	if v != "" {
		t.Fatalf("expected empty value, got %q", v)
	}

	if err := s.StoreSlot(ctx, "coroai_gallery", `[]`); err != nil {
		t.Fatalf("store #1: %v", err)
	}
	if err := s.StoreSlot(ctx, "coroai_gallery", `[{"id":"a"}]`); err != nil {
		t.Fatalf("store #2: %v", err)
	}

	v, err = s.Slot("coroai_gallery").Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if v != `[{"id":"a"}]` {
		t.Fatalf("expected overwritten value, got %q", v)
	}

	var rows int
	if err := s.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM slots").Scan(&rows); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected a single row per slot, got %d", rows)
	}
}

func TestSlotsAreIndependent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Slot("a").Store(ctx, "1"); err != nil {
		t.Fatalf("store a: %v", err)
	}
	if v, _ := s.Slot("b").Load(ctx); v != "" {
		t.Fatalf("expected slot b empty, got %q", v)
	}
}

func TestOpenRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	if _, err := Open(ctx, "sqlite", "", true); !errors.Is(err, ErrEmptyDSN) {
		t.Fatalf("expected ErrEmptyDSN, got %v", err)
	}
	if _, err := Open(ctx, "mysql", "user@/db", true); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
	for in, want := range map[string]string{"PGX": DriverPostgres, " postgresql ": DriverPostgres, "sqlite3": DriverSQLite} {
		if got := normalizeDriver(in); got != want {
			t.Fatalf("normalizeDriver(%q) = %q, want %q", in, got, want)
		}
	}
}
