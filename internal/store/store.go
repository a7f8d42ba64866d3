// Package store implements the SQLite datastore behind the retrieval
// engine: the meeting archive read paths (sessions, people, transcripts,
// attachments, summaries, embeddings) and the conversation write path
// (threads, messages).
//
// Every query that touches owner data is scoped by owner id. That is a
// correctness invariant, not an optimization: cross-tenant leakage is the
// most serious failure mode this layer can have.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Sentinel errors returned by store lookups.
var (
	// ErrNotFound reports a row that does not exist or is not visible to
	// the requesting owner.
	ErrNotFound = errors.New("store: not found")

	// ErrThreadNotFound reports a conversation thread that does not exist
	// or belongs to a different owner.
	ErrThreadNotFound = errors.New("store: thread not found")

	// ErrVectorUnavailable reports that the vector distance function is
	// not installed in this build. Callers degrade to keyword retrieval.
	ErrVectorUnavailable = errors.New("store: vector search unavailable")
)

// Store wraps the SQLite database. Safe for concurrent use; SQLite
// serializes writes, so the connection pool is kept at one connection.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	path   string
	logger *zap.Logger
}

// Open initializes the database at path, creating the schema if needed.
// Use ":memory:" for tests.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			logger.Debug("pragma failed", zap.String("pragma", pragma), zap.Error(err))
		}
	}

	s := &Store{db: db, path: path, logger: logger}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Debug("store opened", zap.String("path", path), zap.String("driver", driverName))
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// DB exposes the raw handle for migrations and tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

// escapeLike escapes LIKE pattern metacharacters in user-supplied text so
// it can only match literally. Queries using it must specify ESCAPE '\'.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// inPlaceholders builds "?,?,..." for n values.
func inPlaceholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

// stringArgs converts a string slice into query arguments.
func stringArgs(vals []string) []any {
	args := make([]any, len(vals))
	for i, v := range vals {
		args[i] = v
	}
	return args
}
