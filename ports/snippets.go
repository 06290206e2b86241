package ports

import (
	"context"

	"github.com/snipvault/snipvault/core"
	"github.com/snipvault/snipvault/validate"
)

// SnippetFilter narrows a snippet listing. Cursor positions are keyset
// boundaries on (UpdatedAt, ID), both descending.
type SnippetFilter struct {
	Query  string           // Substring match on title
	Tag    string           // Exact tag match
	Limit  int              // Maximum rows to return
	Cursor *validate.Cursor // Exclusive lower boundary, nil for the first page
}

// SnippetStore persists snippets.
type SnippetStore interface {
	Create(ctx context.Context, snippet *core.Snippet) error

	// Update overwrites the given fields of an existing snippet owned by
	// ownerID. Fails with core.ErrSnippetNotFound when no such row exists.
	Update(ctx context.Context, snippet *core.Snippet) error

	// Get returns the snippet or core.ErrSnippetNotFound.
	Get(ctx context.Context, id string) (*core.Snippet, error)

	// List returns up to filter.Limit snippets ordered by
	// (UpdatedAt DESC, ID DESC), strictly after the cursor when present.
	List(ctx context.Context, filter SnippetFilter) ([]*core.Snippet, error)
}
