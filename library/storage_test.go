package library

import (
	"bytes"
	"path/filepath"
	"testing"
)

func tempSQLite(t *testing.T) *SQLiteStorage {
	t.Helper()
	dir := t.TempDir()
	s, err := OpenSQLiteStorage(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStorageRoundTrip(t *testing.T) {
	s := tempSQLite(t)

	if _, ok, err := s.Get("missing"); err != nil || ok {
		t.Fatalf("missing key: ok=%t err=%v", ok, err)
	}

	if err := s.Put("k", []byte("v1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := s.Get("k")
	if err != nil || !ok {
		t.Fatalf("get: ok=%t err=%v", ok, err)
	}
	if !bytes.Equal(got, []byte("v1")) {
		t.Fatalf("got %q", got)
	}

	// Put replaces, never appends.
	if err := s.Put("k", []byte("v2")); err != nil {
		t.Fatalf("put again: %v", err)
	}
	got, _, _ = s.Get("k")
	if !bytes.Equal(got, []byte("v2")) {
		t.Fatalf("after overwrite got %q", got)
	}
}

func TestSQLiteStorageSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	s, err := OpenSQLiteStorage(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Put("k", []byte("persisted")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := OpenSQLiteStorage(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	got, ok, err := s2.Get("k")
	if err != nil || !ok || string(got) != "persisted" {
		t.Fatalf("after reopen: got=%q ok=%t err=%v", got, ok, err)
	}
}

func TestMemoryStorageCopiesValues(t *testing.T) {
	m := NewMemoryStorage()
	value := []byte("abc")
	if err := m.Put("k", value); err != nil {
		t.Fatalf("put: %v", err)
	}
	value[0] = 'x'

	got, ok, err := m.Get("k")
	if err != nil || !ok {
		t.Fatalf("get: ok=%t err=%v", ok, err)
	}
	if string(got) != "abc" {
		t.Fatalf("stored value aliased caller slice: %q", got)
	}
}
