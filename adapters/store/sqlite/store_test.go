package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/snipvault/snipvault/core"
	"github.com/snipvault/snipvault/ports"
	"github.com/snipvault/snipvault/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "snippets.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newSnippet(owner, title string, tags []string, updatedAt time.Time) *core.Snippet {
	return &core.Snippet{
		ID:        uuid.New().String(),
		OwnerID:   owner,
		Title:     title,
		Body:      "body",
		Tags:      tags,
		CreatedAt: updatedAt,
		UpdatedAt: updatedAt,
	}
}

func TestStoreCreateGet(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	now := time.Now().UTC().Truncate(time.Millisecond)
	snippet := newSnippet("user-1", "Hello", []string{"go", "db"}, now)
	require.NoError(t, s.Create(ctx, snippet))

	got, err := s.Get(ctx, snippet.ID)
	require.NoError(t, err)
	assert.Equal(t, snippet.ID, got.ID)
	assert.Equal(t, "user-1", got.OwnerID)
	assert.Equal(t, "Hello", got.Title)
	assert.Equal(t, []string{"go", "db"}, got.Tags)
	assert.True(t, got.UpdatedAt.Equal(now))
}

func TestStoreGetMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, core.ErrSnippetNotFound)
}

func TestStoreUpdate(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	now := time.Now().UTC().Truncate(time.Millisecond)
	snippet := newSnippet("user-1", "Original", nil, now)
	require.NoError(t, s.Create(ctx, snippet))

	snippet.Title = "Renamed"
	snippet.Tags = []string{"fresh"}
	snippet.UpdatedAt = now.Add(time.Minute)
	require.NoError(t, s.Update(ctx, snippet))

	got, err := s.Get(ctx, snippet.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, []string{"fresh"}, got.Tags)
	assert.True(t, got.UpdatedAt.Equal(now.Add(time.Minute)))
}

func TestStoreUpdateForeignRowReadsAsMissing(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	now := time.Now().UTC()
	snippet := newSnippet("user-1", "Mine", nil, now)
	require.NoError(t, s.Create(ctx, snippet))

	foreign := *snippet
	foreign.OwnerID = "user-2"
	foreign.Title = "Stolen"
	assert.ErrorIs(t, s.Update(ctx, &foreign), core.ErrSnippetNotFound)

	missing := newSnippet("user-1", "Ghost", nil, now)
	assert.ErrorIs(t, s.Update(ctx, missing), core.ErrSnippetNotFound)
}

func TestStoreListOrderAndCursor(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < 25; i++ {
		snippet := newSnippet("user-1", fmt.Sprintf("snippet %d", i), nil, base.Add(time.Duration(i)*time.Millisecond))
		require.NoError(t, s.Create(ctx, snippet))
	}

	first, err := s.List(ctx, ports.SnippetFilter{Limit: 20})
	require.NoError(t, err)
	require.Len(t, first, 20)
	for i := 1; i < len(first); i++ {
		assert.True(t, first[i].UpdatedAt.Before(first[i-1].UpdatedAt))
	}

	last := first[len(first)-1]
	second, err := s.List(ctx, ports.SnippetFilter{
		Limit:  20,
		Cursor: &validate.Cursor{UpdatedAt: last.UpdatedAt.UnixMilli(), ID: last.ID},
	})
	require.NoError(t, err)
	require.Len(t, second, 5)
	assert.True(t, second[0].UpdatedAt.Before(last.UpdatedAt))
}

func TestStoreListCursorBreaksTies(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	// Three rows sharing one update time; ordering falls back to id DESC.
	now := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Create(ctx, newSnippet("user-1", "tied", nil, now)))
	}

	first, err := s.List(ctx, ports.SnippetFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Greater(t, first[0].ID, first[1].ID)

	rest, err := s.List(ctx, ports.SnippetFilter{
		Limit:  2,
		Cursor: &validate.Cursor{UpdatedAt: first[1].UpdatedAt.UnixMilli(), ID: first[1].ID},
	})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Less(t, rest[0].ID, first[1].ID)
}

func TestStoreListFilters(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	now := time.Now().UTC()
	require.NoError(t, s.Create(ctx, newSnippet("user-1", "Redis pipelines", []string{"redis"}, now)))
	require.NoError(t, s.Create(ctx, newSnippet("user-1", "SQLite WAL mode", []string{"sqlite", "storage"}, now.Add(time.Millisecond))))

	rows, err := s.List(ctx, ports.SnippetFilter{Query: "redis", Limit: 10})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Redis pipelines", rows[0].Title)

	rows, err = s.List(ctx, ports.SnippetFilter{Tag: "storage", Limit: 10})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "SQLite WAL mode", rows[0].Title)

	rows, err = s.List(ctx, ports.SnippetFilter{Tag: "missing", Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestStoreNilTagsReadBackEmpty(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	snippet := newSnippet("user-1", "untagged", nil, time.Now().UTC())
	require.NoError(t, s.Create(ctx, snippet))

	got, err := s.Get(ctx, snippet.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Tags)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("   ")
	assert.Error(t, err)
}
