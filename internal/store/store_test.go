package store

import (
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// ============================================================
// Store initialization
// ============================================================

func TestNewMemory(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var version int
	s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if version != currentVersion {
		t.Fatalf("expected user_version %d, got %d", currentVersion, version)
	}
}

func TestNewWithPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "store.db")
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	// Reopen, should not re-migrate
	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	s2.Close()
}

func TestDefaultDBPath(t *testing.T) {
	prod, err := DefaultDBPath(false)
	if err != nil {
		t.Fatal(err)
	}
	dev, err := DefaultDBPath(true)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(prod) != "store.db" {
		t.Fatalf("production path = %q", prod)
	}
	if filepath.Base(dev) != "dev-store.db" {
		t.Fatalf("development path = %q", dev)
	}
	if !strings.Contains(prod, "timebird") {
		t.Fatalf("expected timebird directory in %q", prod)
	}
}

func TestMigrationIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
}

// ============================================================
// Settings
// ============================================================

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)

	val, ok, err := s.Get("apiToken")
	if err != nil {
		t.Fatal(err)
	}
	if ok || val != "" {
		t.Fatalf("expected absent key, got %q (ok=%v)", val, ok)
	}
}

func TestSetVisibleBeforeSave(t *testing.T) {
	s := newTestStore(t)

	s.Set("apiToken", "secret")
	val, ok, err := s.Get("apiToken")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || val != "secret" {
		t.Fatalf("expected staged value, got %q (ok=%v)", val, ok)
	}

	all, _ := s.GetAllSettings()
	if len(all) != 0 {
		t.Fatalf("staged value should not be persisted yet, got %d rows", len(all))
	}
}

func TestSetEmptyKey(t *testing.T) {
	s := newTestStore(t)
	if err := s.Set("", "v"); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestSaveIsDurable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	s.Set("apiToken", "secret")
	s.Set("administrationId", "123")
	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	s.Close()

	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	for k, want := range map[string]string{"apiToken": "secret", "administrationId": "123"} {
		got, ok, err := s2.Get(k)
		if err != nil {
			t.Fatal(err)
		}
		if !ok || got != want {
			t.Fatalf("Get(%q) = %q (ok=%v), want %q", k, got, ok, want)
		}
	}
}

func TestSetWithoutSaveNotDurable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	s.Set("apiToken", "secret")
	s.Close()

	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	if _, ok, _ := s2.Get("apiToken"); ok {
		t.Fatal("unsaved value survived reopen")
	}
}

func TestSaveOverwrite(t *testing.T) {
	s := newTestStore(t)

	s.Set("userId", "v1")
	s.Save()
	s.Set("userId", "v2")
	s.Save()

	val, _, _ := s.Get("userId")
	if val != "v2" {
		t.Fatalf("expected v2, got %s", val)
	}
	all, _ := s.GetAllSettings()
	if len(all) != 1 {
		t.Fatalf("expected 1 row, got %d", len(all))
	}
}

func TestSaveNothingPending(t *testing.T) {
	s := newTestStore(t)
	if err := s.Save(); err != nil {
		t.Fatalf("empty save: %v", err)
	}
}

func TestSaveFailureKeepsPending(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	s.Set("apiToken", "secret")
	s.Close()

	if err := s.Save(); err == nil {
		t.Fatal("expected save on closed store to fail")
	}
	if len(s.pending) != 1 {
		t.Fatalf("expected staged value to remain, got %d", len(s.pending))
	}
}

func TestDiscardDropsStagedValue(t *testing.T) {
	s := newTestStore(t)
	s.Set("apiToken", "old")
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}

	s.Set("apiToken", "new")
	s.Discard("apiToken")
	s.Discard("never-set")

	v, _, err := s.Get("apiToken")
	if err != nil {
		t.Fatal(err)
	}
	if v != "old" {
		t.Errorf("expected persisted value after discard, got %q", v)
	}
	if len(s.pending) != 0 {
		t.Errorf("expected nothing staged, got %d", len(s.pending))
	}
}

func TestGetAllSettingsSorted(t *testing.T) {
	s := newTestStore(t)
	s.Set("userId", "u")
	s.Set("apiToken", "t")
	s.Set("administrationId", "a")
	s.Save()

	all, err := s.GetAllSettings()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 settings, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Key >= all[i].Key {
			t.Fatalf("settings not sorted: %s >= %s", all[i-1].Key, all[i].Key)
		}
	}
	if all[0].UpdatedAt.IsZero() {
		t.Fatal("expected updated_at to be parsed")
	}
}

// ============================================================
// Close
// ============================================================

func TestCloseStore(t *testing.T) {
	s, _ := NewMemory()
	if err := s.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
}
