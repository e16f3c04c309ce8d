package library

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// Storage is the persistent key-value region the catalog writes to. A key
// holds one serialized blob; the catalog rewrites the whole blob on every
// mutation. Handles are opened at process start and passed in explicitly.
type Storage interface {
	// Get returns the blob stored under key, with ok=false when the key has
	// never been written.
	Get(key string) ([]byte, bool, error)
	// Put stores value under key, replacing any previous blob.
	Put(key string, value []byte) error
	Close() error
}

// SQLiteStorage keeps the key-value region in a single SQLite file.
type SQLiteStorage struct {
	db *sql.DB

	putStmt *sql.Stmt
	getStmt *sql.Stmt
}

// OpenSQLiteStorage opens (or creates) the SQLite file at path, applies the
// schema, and prepares common statements.
func OpenSQLiteStorage(path string) (*SQLiteStorage, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL improves write concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (key TEXT PRIMARY KEY, value BLOB NOT NULL);`); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	if s.putStmt, err = db.Prepare(`INSERT INTO kv(key,value) VALUES(?,?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`); err != nil {
		db.Close()
		return nil, err
	}
	if s.getStmt, err = db.Prepare(`SELECT value FROM kv WHERE key=?`); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStorage) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := s.getStmt.QueryRow(key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteStorage) Put(key string, value []byte) error {
	if _, err := s.putStmt.Exec(key, value); err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

// Close releases prepared statements and closes the DB.
func (s *SQLiteStorage) Close() error {
	if s.putStmt != nil {
		s.putStmt.Close()
	}
	if s.getStmt != nil {
		s.getStmt.Close()
	}
	return s.db.Close()
}

// MemoryStorage is an in-process Storage for tests and throwaway sessions.
type MemoryStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

func (m *MemoryStorage) Get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

func (m *MemoryStorage) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, len(value))
	copy(out, value)
	m.data[key] = out
	return nil
}

func (m *MemoryStorage) Close() error { return nil }
