package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/snipvault/snipvault/core"
	"github.com/snipvault/snipvault/ports"
	"github.com/snipvault/snipvault/validate"
)

// SnippetPage is one page of a snippet listing. NextCursor is set when more
// rows may follow.
type SnippetPage struct {
	Items      []*core.Snippet
	NextCursor *validate.Cursor
}

// SnippetService handles snippet creation, updates and listing over
// validated, normalized input.
type SnippetService struct {
	store  ports.SnippetStore
	logger *slog.Logger
	now    func() time.Time
}

// SnippetOption configures a SnippetService.
type SnippetOption func(*SnippetService)

// WithSnippetClock overrides the time source, for tests.
func WithSnippetClock(now func() time.Time) SnippetOption {
	return func(s *SnippetService) { s.now = now }
}

// NewSnippetService creates a new snippet service.
func NewSnippetService(store ports.SnippetStore, logger *slog.Logger, opts ...SnippetOption) *SnippetService {
	s := &SnippetService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates the input and stores a new snippet owned by ownerID.
func (s *SnippetService) Create(ctx context.Context, ownerID string, in validate.SnippetCreateInput) (*core.Snippet, error) {
	in, verr := validate.SnippetCreate(in)
	if verr != nil {
		return nil, verr
	}

	now := s.now()
	snippet := &core.Snippet{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Title:     in.Title,
		Body:      in.Body,
		Tags:      in.Tags,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Create(ctx, snippet); err != nil {
		return nil, fmt.Errorf("create snippet: %w", err)
	}
	return snippet, nil
}

// Update validates the input and applies the present fields to an existing
// snippet owned by ownerID. Missing rows and rows owned by someone else both
// fail with core.ErrSnippetNotFound.
func (s *SnippetService) Update(ctx context.Context, ownerID string, in validate.SnippetUpdateInput) (*core.Snippet, error) {
	in, verr := validate.SnippetUpdate(in)
	if verr != nil {
		return nil, verr
	}

	snippet, err := s.store.Get(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if snippet.OwnerID != ownerID {
		return nil, core.ErrSnippetNotFound
	}

	if in.Title != nil {
		snippet.Title = *in.Title
	}
	if in.Body != nil {
		snippet.Body = *in.Body
	}
	if in.Tags != nil {
		snippet.Tags = *in.Tags
	}
	snippet.UpdatedAt = s.now()

	if err := s.store.Update(ctx, snippet); err != nil {
		return nil, err
	}
	return snippet, nil
}

// List returns one page of snippets matching the filter, newest first. The
// cursor is a keyset position, never an offset.
func (s *SnippetService) List(ctx context.Context, in validate.SnippetListInput) (*SnippetPage, error) {
	in, verr := validate.SnippetList(in)
	if verr != nil {
		return nil, verr
	}

	// Fetch one extra row to decide whether a next page exists.
	items, err := s.store.List(ctx, ports.SnippetFilter{
		Query:  in.Query,
		Tag:    in.Tag,
		Limit:  in.Limit + 1,
		Cursor: in.Cursor,
	})
	if err != nil {
		return nil, fmt.Errorf("list snippets: %w", err)
	}

	page := &SnippetPage{Items: items}
	if len(items) > in.Limit {
		page.Items = items[:in.Limit]
		last := page.Items[len(page.Items)-1]
		page.NextCursor = &validate.Cursor{
			UpdatedAt: last.UpdatedAt.UnixMilli(),
			ID:        last.ID,
		}
	}
	return page, nil
}
