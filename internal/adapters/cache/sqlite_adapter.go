package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zatekoja/clinicfinder/internal/domain/providers"
)

// SQLiteAdapter is the durable CacheProvider backing the geocode/search cache.
// Rows are kept until deleted; expirations are recorded and honoured on read.
type SQLiteAdapter struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteAdapter opens (creating if needed) the cache database at dbPath.
func NewSQLiteAdapter(dbPath string) (*SQLiteAdapter, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	// One writer at a time; concurrent tag pipelines queue here.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS gmaps_cache (
		cache_key  TEXT PRIMARY KEY,
		json       TEXT NOT NULL,
		timestamp  INTEGER NOT NULL,
		expires_at INTEGER NOT NULL DEFAULT 0
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}

	return &SQLiteAdapter{db: db, dbPath: dbPath}, nil
}

// Get retrieves a value from cache
func (a *SQLiteAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	var (
		payload   string
		expiresAt int64
	)
	err := a.db.QueryRowContext(ctx,
		"SELECT json, expires_at FROM gmaps_cache WHERE cache_key = ?", key,
	).Scan(&payload, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, providers.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get from cache: %w", err)
	}
	if expiresAt > 0 && time.Now().Unix() >= expiresAt {
		return nil, providers.ErrCacheMiss
	}
	return []byte(payload), nil
}

// Set stores a value in cache. Last writer wins.
func (a *SQLiteAdapter) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	now := time.Now()
	var expiresAt int64
	if expirationSeconds > 0 {
		expiresAt = now.Add(time.Duration(expirationSeconds) * time.Second).Unix()
	}
	_, err := a.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO gmaps_cache (cache_key, json, timestamp, expires_at) VALUES (?, ?, ?, ?)",
		key, string(value), now.Unix(), expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to set in cache: %w", err)
	}
	return nil
}

// Delete removes a value from cache
func (a *SQLiteAdapter) Delete(ctx context.Context, key string) error {
	if _, err := a.db.ExecContext(ctx, "DELETE FROM gmaps_cache WHERE cache_key = ?", key); err != nil {
		return fmt.Errorf("failed to delete from cache: %w", err)
	}
	return nil
}

// Exists checks if a key exists in cache
func (a *SQLiteAdapter) Exists(ctx context.Context, key string) (bool, error) {
	_, err := a.Get(ctx, key)
	if errors.Is(err, providers.ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Close closes the database.
func (a *SQLiteAdapter) Close() error {
	return a.db.Close()
}
