package tmcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Key identifies one cached translation.
type Key struct {
	Source string
	Target string
	Model  string
	Text   string
}

// PairStats summarizes the entries for one language pair and model.
type PairStats struct {
	Source  string
	Target  string
	Model   string
	Entries int
	Hits    int64
}

// Stats summarizes the whole translation memory.
type Stats struct {
	Path     string
	Entries  int
	Hits     int64
	LastUsed time.Time
	Pairs    []PairStats
}

// Store manages the translation memory backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open initializes or connects to the cache database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("cache path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection keeps pragmas in effect and serializes writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, now: func() time.Time { return time.Now().UTC() }}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Lookup returns the cached translation for key. A hit bumps the entry's
// usage counters.
func (s *Store) Lookup(ctx context.Context, key Key) (string, bool, error) {
	var translation string
	err := s.db.QueryRowContext(ctx,
		`SELECT translation FROM translations
         WHERE source_lang = ? AND target_lang = ? AND model = ? AND source_text = ?`,
		key.Source, key.Target, key.Model, key.Text,
	).Scan(&translation)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup translation: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE translations SET hit_count = hit_count + 1, last_used_at = ?
         WHERE source_lang = ? AND target_lang = ? AND model = ? AND source_text = ?`,
		s.timestamp(), key.Source, key.Target, key.Model, key.Text,
	); err != nil {
		return "", false, fmt.Errorf("record cache hit: %w", err)
	}
	return translation, true, nil
}

// Put stores or replaces the translation for key.
func (s *Store) Put(ctx context.Context, key Key, translation string) error {
	ts := s.timestamp()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO translations (
            source_lang, target_lang, model, source_text, translation, hit_count, created_at, last_used_at
        ) VALUES (?, ?, ?, ?, ?, 0, ?, ?)
        ON CONFLICT (source_lang, target_lang, model, source_text)
        DO UPDATE SET translation = excluded.translation, last_used_at = excluded.last_used_at`,
		key.Source, key.Target, key.Model, key.Text, translation, ts, ts,
	)
	if err != nil {
		return fmt.Errorf("store translation: %w", err)
	}
	return nil
}

// Stats reports entry and hit counts grouped by language pair and model.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_lang, target_lang, model, COUNT(1), COALESCE(SUM(hit_count), 0), MAX(last_used_at)
         FROM translations
         GROUP BY source_lang, target_lang, model
         ORDER BY source_lang, target_lang, model`)
	if err != nil {
		return Stats{}, fmt.Errorf("cache stats: %w", err)
	}
	defer rows.Close()

	stats := Stats{Path: s.path}
	for rows.Next() {
		var pair PairStats
		var lastUsed string
		if err := rows.Scan(&pair.Source, &pair.Target, &pair.Model, &pair.Entries, &pair.Hits, &lastUsed); err != nil {
			return Stats{}, err
		}
		stats.Entries += pair.Entries
		stats.Hits += pair.Hits
		if ts, err := time.Parse(time.RFC3339Nano, lastUsed); err == nil && ts.After(stats.LastUsed) {
			stats.LastUsed = ts
		}
		stats.Pairs = append(stats.Pairs, pair)
	}
	return stats, rows.Err()
}

// Clear removes every cached translation and returns how many were deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM translations`)
	if err != nil {
		return 0, fmt.Errorf("clear cache: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) timestamp() string {
	return s.now().Format(time.RFC3339Nano)
}
