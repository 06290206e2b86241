// Package sqlite implements snippet persistence over SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/snipvault/snipvault/core"
	"github.com/snipvault/snipvault/ports"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS snippets (
	id         TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL,
	title      TEXT NOT NULL,
	body       TEXT NOT NULL,
	tags       TEXT NOT NULL DEFAULT '[]',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snippets_updated ON snippets(updated_at DESC, id DESC);
`

// Store implements ports.SnippetStore over a single SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens the store and bootstraps the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create inserts a new snippet row.
func (s *Store) Create(ctx context.Context, snippet *core.Snippet) error {
	tags, err := encodeTags(snippet.Tags)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snippets (id, owner_id, title, body, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snippet.ID, snippet.OwnerID, snippet.Title, snippet.Body, tags,
		toMillis(snippet.CreatedAt), toMillis(snippet.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert snippet: %w", err)
	}
	return nil
}

// Update overwrites an existing snippet; the write is conditional on both id
// and owner, so a foreign row reads as missing.
func (s *Store) Update(ctx context.Context, snippet *core.Snippet) error {
	tags, err := encodeTags(snippet.Tags)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE snippets SET title = ?, body = ?, tags = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		snippet.Title, snippet.Body, tags, toMillis(snippet.UpdatedAt),
		snippet.ID, snippet.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("update snippet: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update snippet: %w", err)
	}
	if affected == 0 {
		return core.ErrSnippetNotFound
	}
	return nil
}

// Get retrieves a snippet row.
func (s *Store) Get(ctx context.Context, id string) (*core.Snippet, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, body, tags, created_at, updated_at
		FROM snippets WHERE id = ?`, id)
	snippet, err := scanSnippet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrSnippetNotFound
	}
	return snippet, err
}

// List returns up to filter.Limit snippets ordered by
// (updated_at DESC, id DESC), strictly after the cursor when present.
func (s *Store) List(ctx context.Context, filter ports.SnippetFilter) ([]*core.Snippet, error) {
	var (
		where []string
		args  []any
	)
	if filter.Query != "" {
		where = append(where, "title LIKE '%' || ? || '%'")
		args = append(args, filter.Query)
	}
	if filter.Tag != "" {
		where = append(where, "EXISTS (SELECT 1 FROM json_each(snippets.tags) WHERE json_each.value = ?)")
		args = append(args, filter.Tag)
	}
	if filter.Cursor != nil {
		where = append(where, "(updated_at < ? OR (updated_at = ? AND id < ?))")
		args = append(args, filter.Cursor.UpdatedAt, filter.Cursor.UpdatedAt, filter.Cursor.ID)
	}

	query := "SELECT id, owner_id, title, body, tags, created_at, updated_at FROM snippets"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY updated_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list snippets: %w", err)
	}
	defer rows.Close()

	var snippets []*core.Snippet
	for rows.Next() {
		snippet, err := scanSnippet(rows)
		if err != nil {
			return nil, err
		}
		snippets = append(snippets, snippet)
	}
	return snippets, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnippet(row scanner) (*core.Snippet, error) {
	var (
		snippet   core.Snippet
		tags      string
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&snippet.ID, &snippet.OwnerID, &snippet.Title, &snippet.Body, &tags, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("scan snippet: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &snippet.Tags); err != nil {
		return nil, fmt.Errorf("decode snippet tags: %w", err)
	}
	snippet.CreatedAt = fromMillis(createdAt)
	snippet.UpdatedAt = fromMillis(updatedAt)
	return &snippet, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode snippet tags: %w", err)
	}
	return string(encoded), nil
}

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis restores millisecond precision and keeps UTC normalization.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

var _ ports.SnippetStore = (*Store)(nil)
