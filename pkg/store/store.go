package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure Go SQLite driver
)

//go:embed schema.sql
var schemaSQL string

const (
	storeID      = "podfetch-episodes"
	storeVersion = 1
)

// errCritical marks errors repeater should not retry
var errCritical = errors.New("critical store error")

// Store keeps downloaded episodes and feed freshness tokens in SQLite.
// Episodes are keyed by enclosure url, feeds by feed url.
type Store struct {
	db *sqlx.DB
}

// Open opens or creates the store at path. A new file gets the default schema,
// an existing one is verified by id and version.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if fi, err := os.Stat(path); err == nil && fi.IsDir() {
			return nil, fmt.Errorf("cannot open %s because it is a directory", path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("create directory for %s: %w", path, err)
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	// single writer, also keeps :memory: on one connection
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("open database %s, execute %s: %w", path, pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.prepare(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// prepare creates the schema for an empty database or verifies an existing one
func (s *Store) prepare(ctx context.Context) error {
	var tables int
	if err := s.db.GetContext(ctx, &tables, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table'"); err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	if tables == 0 {
		return s.create(ctx)
	}
	return s.verify(ctx)
}

func (s *Store) create(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create default database: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO info (key, value) VALUES ('id', ?), ('version', ?)",
		storeID, strconv.Itoa(storeVersion)); err != nil {
		return fmt.Errorf("create default database info: %w", err)
	}
	return tx.Commit()
}

func (s *Store) verify(ctx context.Context) error {
	const prefix = "database not valid because"

	var info []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	if err := s.db.SelectContext(ctx, &info, "SELECT key, value FROM info"); err != nil {
		return fmt.Errorf("%s info table not found: %w", prefix, err)
	}
	values := map[string]string{}
	for _, kv := range info {
		values[kv.Key] = kv.Value
	}

	if id := values["id"]; id != storeID {
		return fmt.Errorf("%s id %q is not valid", prefix, id)
	}
	version, err := strconv.Atoi(values["version"])
	if err != nil || version < 1 {
		return fmt.Errorf("%s version %q is not valid", prefix, values["version"])
	}
	if version > storeVersion {
		return fmt.Errorf("%s database version %d is too new, supported version <= %d", prefix, version, storeVersion)
	}
	return nil
}

// IsDownloaded checks if the episode with the given url was downloaded already
func (s *Store) IsDownloaded(ctx context.Context, url string) (bool, error) {
	var exists bool
	if err := s.db.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM episodes WHERE url = ?)", url); err != nil {
		return false, fmt.Errorf("check episode %s downloaded: %w", url, err)
	}
	return exists, nil
}

// MarkDownloaded records the episode url, marking an episode twice is fine
func (s *Store) MarkDownloaded(ctx context.Context, url string) error {
	return s.write(ctx, "mark episode downloaded",
		"INSERT INTO episodes (url) VALUES (?) ON CONFLICT(url) DO NOTHING", url)
}

// Freshness returns the last known freshness token (Last-Modified value) of a feed,
// empty if the feed was never stored
func (s *Store) Freshness(ctx context.Context, feedURL string) (string, error) {
	var tokens []string
	if err := s.db.SelectContext(ctx, &tokens, "SELECT last_modified FROM feeds WHERE url = ?", feedURL); err != nil {
		return "", fmt.Errorf("get freshness of %s: %w", feedURL, err)
	}
	if len(tokens) == 0 {
		return "", nil
	}
	return tokens[0], nil
}

// SetFreshness stores the freshness token of a feed
func (s *Store) SetFreshness(ctx context.Context, feedURL, token string) error {
	return s.write(ctx, "set freshness",
		`INSERT INTO feeds (url, last_modified) VALUES (?, ?)
		ON CONFLICT(url) DO UPDATE SET last_modified = excluded.last_modified, updated_at = CURRENT_TIMESTAMP`,
		feedURL, token)
}

// write executes a modifying query, retrying while the database is locked by another process
func (s *Store) write(ctx context.Context, op, query string, args ...any) error {
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))
	err := retrier.Do(ctx, func() error {
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			if isLockError(err) {
				return err // retry
			}
			return &criticalError{err: err}
		}
		return nil
	}, errCritical)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// criticalError wraps an error to signal repeater to stop retrying
type criticalError struct {
	err error
}

func (e *criticalError) Error() string { return e.err.Error() }

func (e *criticalError) Unwrap() error { return e.err }

// Is makes errors.Is(err, errCritical) true, repeater checks critical errors that way
func (e *criticalError) Is(target error) bool { return target == errCritical }

// isLockError checks if an error is a SQLite lock/busy error
func isLockError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "SQLITE_BUSY") ||
		strings.Contains(errStr, "database is locked") ||
		strings.Contains(errStr, "database table is locked")
}
