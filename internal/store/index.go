// Package store provides the SQLite FTS5 full-text index over
// knowledge base entries.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	kberrors "github.com/kbassist/kbsearch/internal/errors"
	"github.com/kbassist/kbsearch/internal/kb"
)

// Hit is a single full-text match with its composite relevance.
type Hit struct {
	// ID is the knowledge base entry ID.
	ID string
	// Relevance is the negated FTS5 bm25() score. Higher is better.
	Relevance float64
	// TitleSnippet and ProblemSnippet carry FTS5-highlighted fragments
	// with match markers around matched terms.
	TitleSnippet   string
	ProblemSnippet string
}

// Query describes a full-text search against the index.
type Query struct {
	// Match is a raw FTS5 match expression. When set it is used verbatim.
	Match string
	// Terms are normalized query terms, AND-matched. Ignored when Match is set.
	Terms []string
	// Category optionally restricts matches to one category.
	Category string
	// Limit caps the number of hits. Zero means 50.
	Limit int
}

// MatchMarker wraps matched terms in snippets. Callers translate it to
// their own highlight format.
const (
	MatchMarkerStart = "\x01"
	MatchMarkerEnd   = "\x02"
)

// EntryIndex is a SQLite FTS5 index over knowledge base entries.
// WAL mode allows concurrent readers while a rebuild is in progress.
type EntryIndex struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	logger *slog.Logger
	closed bool
}

// validateIntegrity checks if an existing index file is valid before
// opening. Returns nil if valid or missing.
func validateIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil // Will be created
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}

	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master
                       WHERE type='table' AND name='entry_fts'`).Scan(&count)
	if err != nil {
		return fmt.Errorf("cannot query schema: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("FTS5 table 'entry_fts' missing")
	}

	return nil
}

// NewEntryIndex opens or creates the full-text index at path.
// An empty path or ":memory:" creates an in-memory index for testing.
func NewEntryIndex(path string, logger *slog.Logger) (*EntryIndex, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var dsn string
	if path == "" || path == ":memory:" {
		dsn = ":memory:"
		path = ""
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, kberrors.IndexError(fmt.Sprintf("failed to create directory %s", dir), err)
		}

		// A corrupted index is cleared and rebuilt rather than failing open.
		if validErr := validateIntegrity(path); validErr != nil {
			logger.Warn("entry index corrupted",
				slog.String("path", path),
				slog.String("error", validErr.Error()))

			if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
				return nil, kberrors.New(kberrors.ErrCodeIndexCorrupt,
					fmt.Sprintf("index corrupted at %s and cannot remove", path), removeErr)
			}
			_ = os.Remove(path + "-wal")
			_ = os.Remove(path + "-shm")

			logger.Info("entry index cleared",
				slog.String("path", path),
				slog.String("reason", "corruption detected, reindex required"))
		}

		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, kberrors.IndexError("failed to open index database", err)
	}

	// Single writer to prevent lock contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL must be set via PRAGMA for modernc.org/sqlite; DSN params
	// may be ignored.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -16384", // 16MB cache (negative = KB)
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, kberrors.IndexError("failed to set pragma", err)
		}
	}

	idx := &EntryIndex{db: db, path: path, logger: logger}

	if err := idx.initSchema(); err != nil {
		_ = db.Close()
		return nil, kberrors.IndexError("failed to initialize schema", err)
	}

	return idx, nil
}

// initSchema creates the FTS5 virtual table and the metadata table.
func (s *EntryIndex) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	-- FTS5 virtual table over the searchable entry fields.
	-- id is UNINDEXED (stored but not searchable).
	CREATE VIRTUAL TABLE IF NOT EXISTS entry_fts USING fts5(
		id UNINDEXED,
		title,
		problem,
		solution,
		tags,
		category,
		tokenize='unicode61'
	);

	-- Metadata used by the composite ranking expression.
	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		usage_count INTEGER NOT NULL DEFAULT 0,
		success_count INTEGER NOT NULL DEFAULT 0,
		failure_count INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL DEFAULT ''
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Rebuild replaces the index contents with the given entries in a
// single transaction.
func (s *EntryIndex) Rebuild(ctx context.Context, entries []kb.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return kberrors.IndexError("index is closed", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return kberrors.New(kberrors.ErrCodeIndexWrite, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entry_fts`); err != nil {
		return kberrors.New(kberrors.ErrCodeIndexWrite, "failed to clear index", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return kberrors.New(kberrors.ErrCodeIndexWrite, "failed to clear metadata", err)
	}

	ftsStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entry_fts(id, title, problem, solution, tags, category)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return kberrors.New(kberrors.ErrCodeIndexWrite, "failed to prepare FTS statement", err)
	}
	defer ftsStmt.Close()

	metaStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entries(id, title, category, usage_count, success_count, failure_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return kberrors.New(kberrors.ErrCodeIndexWrite, "failed to prepare metadata statement", err)
	}
	defer metaStmt.Close()

	for i := range entries {
		e := &entries[i]
		tags := strings.Join(e.Tags, " ")

		if _, err := ftsStmt.ExecContext(ctx, e.ID, e.Title, e.Problem, e.Solution, tags, e.Category); err != nil {
			return kberrors.New(kberrors.ErrCodeIndexWrite,
				fmt.Sprintf("failed to index entry %s", e.ID), err)
		}
		if _, err := metaStmt.ExecContext(ctx, e.ID, e.Title, e.Category,
			e.UsageCount, e.SuccessCount, e.FailureCount,
			e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z")); err != nil {
			return kberrors.New(kberrors.ErrCodeIndexWrite,
				fmt.Sprintf("failed to store metadata for %s", e.ID), err)
		}
	}

	return tx.Commit()
}

// UpdateUsage refreshes the usage counters for a single entry.
func (s *EntryIndex) UpdateUsage(ctx context.Context, id string, usage, success, failure int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return kberrors.IndexError("index is closed", nil)
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE entries SET usage_count = ?, success_count = ?, failure_count = ? WHERE id = ?`,
		usage, success, failure, id)
	if err != nil {
		return kberrors.New(kberrors.ErrCodeIndexWrite,
			fmt.Sprintf("failed to update usage for %s", id), err)
	}
	return nil
}

// Search runs an FTS5 MATCH query ordered by a composite expression:
// full-text relevance weighted with usage, success rate, and recency.
func (s *EntryIndex) Search(ctx context.Context, q Query) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, kberrors.IndexError("index is closed", nil)
	}

	matchExpr := q.Match
	if matchExpr == "" {
		matchExpr = buildMatchExpr(q.Terms)
	}
	if matchExpr == "" {
		return []Hit{}, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	// bm25() returns negative values where lower is a better match, so
	// relevance is negated before weighting. Recency decays linearly to
	// zero over 30 days.
	query := `
		SELECT f.id,
		       -bm25(entry_fts) AS relevance,
		       snippet(entry_fts, 1, ?, ?, '...', 16),
		       snippet(entry_fts, 2, ?, ?, '...', 16)
		FROM entry_fts f
		JOIN entries e ON e.id = f.id
		WHERE entry_fts MATCH ?`
	args := []any{
		MatchMarkerStart, MatchMarkerEnd,
		MatchMarkerStart, MatchMarkerEnd,
		matchExpr,
	}

	if q.Category != "" {
		query += ` AND e.category = ?`
		args = append(args, q.Category)
	}

	query += `
		ORDER BY 0.6 * (-bm25(entry_fts))
		       + 0.2 * ln(e.usage_count + 1)
		       + 0.15 * (CASE WHEN e.success_count + e.failure_count > 0
		                      THEN CAST(e.success_count AS REAL) / (e.success_count + e.failure_count)
		                      ELSE 0 END)
		       + 0.05 * max(0, 1.0 - (julianday('now') - julianday(e.created_at)) / 30.0)
		       DESC
		LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		// FTS5 rejects some match expressions outright; treat as no results.
		if strings.Contains(err.Error(), "fts5") || strings.Contains(err.Error(), "syntax error") {
			return []Hit{}, nil
		}
		return nil, kberrors.IndexError("search failed", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.ID, &h.Relevance, &h.TitleSnippet, &h.ProblemSnippet); err != nil {
			return nil, kberrors.IndexError("failed to scan result", err)
		}
		hits = append(hits, h)
	}

	return hits, rows.Err()
}

// buildMatchExpr builds an FTS5 AND-match expression. Terms are quoted
// so operator characters in queries cannot break the match syntax.
func buildMatchExpr(terms []string) string {
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ReplaceAll(t, `"`, "")
		if t == "" {
			continue
		}
		quoted = append(quoted, `"`+t+`"`)
	}
	return strings.Join(quoted, " ")
}

// Count returns the number of indexed entries.
func (s *EntryIndex) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, kberrors.IndexError("index is closed", nil)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&count); err != nil {
		return 0, kberrors.IndexError("failed to count entries", err)
	}
	return count, nil
}

// Path returns the index file path. Empty for in-memory indexes.
func (s *EntryIndex) Path() string {
	return s.path
}

// Close releases the database handle.
func (s *EntryIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
