package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS web_storage (
	origin TEXT NOT NULL,
	key    TEXT NOT NULL,
	value  TEXT NOT NULL,
	PRIMARY KEY (origin, key)
)`

// SQLite is a Store persisted in a SQLite database, so persisted form state
// survives process restarts.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path. Use ":memory:"
// for a private throwaway database.
func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("storage: sqlite path is empty")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and serializes
	// writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=10000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Get(ctx context.Context, origin, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM web_storage WHERE origin = ? AND key = ?`, origin, key).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, s.wrap("get", err)
	}
	return value, true, nil
}

func (s *SQLite) Set(ctx context.Context, origin, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO web_storage (origin, key, value) VALUES (?, ?, ?)
		 ON CONFLICT(origin, key) DO UPDATE SET value = excluded.value`,
		origin, key, value)
	return s.wrap("set", err)
}

func (s *SQLite) Delete(ctx context.Context, origin, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM web_storage WHERE origin = ? AND key = ?`, origin, key)
	return s.wrap("delete", err)
}

func (s *SQLite) Keys(ctx context.Context, origin string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM web_storage WHERE origin = ? ORDER BY key`, origin)
	if err != nil {
		return nil, s.wrap("keys", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, s.wrap("keys", err)
		}
		keys = append(keys, k)
	}
	return keys, s.wrap("keys", rows.Err())
}

func (s *SQLite) Clear(ctx context.Context, origin string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM web_storage WHERE origin = ?`, origin)
	return s.wrap("clear", err)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrConnDone) || err.Error() == "sql: database is closed" {
		return fmt.Errorf("storage %s: %w", op, ErrClosed)
	}
	return fmt.Errorf("storage %s: %w", op, err)
}
