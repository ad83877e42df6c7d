package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// SQLiteStore is a storage provider persisting entries to an SQLite database.
// Expiration times are stored alongside the values; expired rows are treated
// as absent and purged lazily on read.
type SQLiteStore struct {
	keyspace
	db *sql.DB
}

// NewSQLiteStore opens (and if needed initializes) the database in the given
// file. Use "file::memory:?cache=shared" for an in-memory database.
func NewSQLiteStore(filename string, opts Options) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if _, err := db.Exec("CREATE TABLE IF NOT EXISTS cache (key TEXT PRIMARY KEY, expires INTEGER, value BLOB)"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if _, err := db.Exec("CREATE INDEX IF NOT EXISTS expires_idx ON cache (expires)"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &SQLiteStore{
		keyspace: newKeyspace(opts),
		db:       db,
	}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var expires int64
	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT expires, value FROM cache WHERE key = ?", key).Scan(&expires, &value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if time.Now().After(time.Unix(expires, 0)) {
		s.db.ExecContext(ctx, "DELETE FROM cache WHERE key = ?", key)
		return nil, false, nil
	}
	return value, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	expires := time.Now().Add(ttl).Unix()
	_, err := s.db.ExecContext(ctx, "INSERT OR REPLACE INTO cache (key, expires, value) VALUES (?, ?, ?)", key, expires, value)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
