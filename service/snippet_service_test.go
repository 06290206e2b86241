package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/snipvault/snipvault/adapters/store"
	"github.com/snipvault/snipvault/core"
	"github.com/snipvault/snipvault/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSnippetService(opts ...SnippetOption) (*SnippetService, *store.MemorySnippetStore) {
	snippets := store.NewMemorySnippetStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSnippetService(snippets, logger, opts...), snippets
}

func TestSnippetCreate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSnippetService()

	snippet, err := svc.Create(ctx, "user-1", validate.SnippetCreateInput{
		Title: "  Connection pooling  ",
		Body:  "pool := pgxpool.New(ctx, dsn)",
		Tags:  []string{"Go ", "go", "DB"},
	})
	require.NoError(t, err)

	assert.Equal(t, "user-1", snippet.OwnerID)
	assert.Equal(t, "Connection pooling", snippet.Title)
	assert.Equal(t, []string{"go", "db"}, snippet.Tags)
	assert.Equal(t, snippet.CreatedAt, snippet.UpdatedAt)
	assert.NotEmpty(t, snippet.ID)
}

func TestSnippetCreateInvalid(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSnippetService()

	_, err := svc.Create(ctx, "user-1", validate.SnippetCreateInput{Title: "   "})
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "title", verr.Field)
}

func TestSnippetUpdate(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	clock := now
	svc, _ := newSnippetService(WithSnippetClock(func() time.Time { return clock }))

	created, err := svc.Create(ctx, "user-1", validate.SnippetCreateInput{
		Title: "Original",
		Body:  "body",
		Tags:  []string{"one"},
	})
	require.NoError(t, err)

	clock = now.Add(time.Minute)
	title := "Renamed"
	updated, err := svc.Update(ctx, "user-1", validate.SnippetUpdateInput{
		ID:    created.ID,
		Title: &title,
	})
	require.NoError(t, err)

	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "body", updated.Body)
	assert.Equal(t, []string{"one"}, updated.Tags)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
}

func TestSnippetUpdateNotFound(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSnippetService()

	title := "x"
	_, err := svc.Update(ctx, "user-1", validate.SnippetUpdateInput{
		ID:    "7b3f7f5a-41f8-4f4d-9a9f-000000000001",
		Title: &title,
	})
	assert.ErrorIs(t, err, core.ErrSnippetNotFound)
}

func TestSnippetUpdateWrongOwner(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSnippetService()

	created, err := svc.Create(ctx, "user-1", validate.SnippetCreateInput{Title: "mine"})
	require.NoError(t, err)

	title := "stolen"
	_, err = svc.Update(ctx, "user-2", validate.SnippetUpdateInput{
		ID:    created.ID,
		Title: &title,
	})
	assert.ErrorIs(t, err, core.ErrSnippetNotFound)
}

func TestSnippetListPagination(t *testing.T) {
	ctx := context.Background()
	now := time.Now().Truncate(time.Millisecond)
	clock := now
	svc, _ := newSnippetService(WithSnippetClock(func() time.Time { return clock }))

	// 25 snippets with strictly increasing update times.
	for i := 0; i < 25; i++ {
		clock = now.Add(time.Duration(i) * time.Millisecond)
		_, err := svc.Create(ctx, "user-1", validate.SnippetCreateInput{Title: "snippet"})
		require.NoError(t, err)
	}

	first, err := svc.List(ctx, validate.SnippetListInput{})
	require.NoError(t, err)
	require.Len(t, first.Items, 20)
	require.NotNil(t, first.NextCursor)

	// Newest first.
	for i := 1; i < len(first.Items); i++ {
		assert.False(t, first.Items[i].UpdatedAt.After(first.Items[i-1].UpdatedAt))
	}

	second, err := svc.List(ctx, validate.SnippetListInput{Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 5)
	assert.Nil(t, second.NextCursor)

	// The two pages do not overlap.
	seen := make(map[string]struct{})
	for _, item := range first.Items {
		seen[item.ID] = struct{}{}
	}
	for _, item := range second.Items {
		_, dup := seen[item.ID]
		assert.False(t, dup)
	}
}

func TestSnippetListFilters(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSnippetService()

	_, err := svc.Create(ctx, "user-1", validate.SnippetCreateInput{
		Title: "Redis pipelines",
		Tags:  []string{"redis"},
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "user-1", validate.SnippetCreateInput{
		Title: "SQLite WAL mode",
		Tags:  []string{"sqlite"},
	})
	require.NoError(t, err)

	page, err := svc.List(ctx, validate.SnippetListInput{Query: "redis"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Redis pipelines", page.Items[0].Title)

	page, err = svc.List(ctx, validate.SnippetListInput{Tag: "sqlite"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "SQLite WAL mode", page.Items[0].Title)

	page, err = svc.List(ctx, validate.SnippetListInput{Tag: "missing"})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestSnippetListLimitValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSnippetService()

	_, err := svc.List(ctx, validate.SnippetListInput{Limit: 101})
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "limit", verr.Field)
}
