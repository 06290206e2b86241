package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/snipvault/snipvault/core"
	"github.com/snipvault/snipvault/ports"
)

// MemorySnippetStore is an in-memory implementation of ports.SnippetStore.
type MemorySnippetStore struct {
	mu       sync.Mutex
	snippets map[string]*core.Snippet
}

// NewMemorySnippetStore creates a new in-memory snippet store.
func NewMemorySnippetStore() *MemorySnippetStore {
	return &MemorySnippetStore{snippets: make(map[string]*core.Snippet)}
}

// Create stores a new snippet.
func (s *MemorySnippetStore) Create(ctx context.Context, snippet *core.Snippet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *snippet
	copied.Tags = append([]string(nil), snippet.Tags...)
	s.snippets[snippet.ID] = &copied
	return nil
}

// Update overwrites an existing snippet owned by the same user.
func (s *MemorySnippetStore) Update(ctx context.Context, snippet *core.Snippet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.snippets[snippet.ID]
	if !ok || existing.OwnerID != snippet.OwnerID {
		return core.ErrSnippetNotFound
	}
	copied := *snippet
	copied.Tags = append([]string(nil), snippet.Tags...)
	s.snippets[snippet.ID] = &copied
	return nil
}

// Get retrieves a snippet.
func (s *MemorySnippetStore) Get(ctx context.Context, id string) (*core.Snippet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snippet, ok := s.snippets[id]
	if !ok {
		return nil, core.ErrSnippetNotFound
	}
	copied := *snippet
	copied.Tags = append([]string(nil), snippet.Tags...)
	return &copied, nil
}

// List returns snippets matching the filter ordered by
// (UpdatedAt DESC, ID DESC).
func (s *MemorySnippetStore) List(ctx context.Context, filter ports.SnippetFilter) ([]*core.Snippet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]*core.Snippet, 0, len(s.snippets))
	for _, snippet := range s.snippets {
		if filter.Query != "" && !strings.Contains(strings.ToLower(snippet.Title), strings.ToLower(filter.Query)) {
			continue
		}
		if filter.Tag != "" && !hasTag(snippet.Tags, filter.Tag) {
			continue
		}
		matched = append(matched, snippet)
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.ID > b.ID
	})

	out := make([]*core.Snippet, 0, filter.Limit)
	for _, snippet := range matched {
		if filter.Cursor != nil && !afterCursor(snippet, filter.Cursor.UpdatedAt, filter.Cursor.ID) {
			continue
		}
		copied := *snippet
		copied.Tags = append([]string(nil), snippet.Tags...)
		out = append(out, &copied)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// afterCursor reports whether the snippet sorts strictly after the keyset
// position in (UpdatedAt DESC, ID DESC) order.
func afterCursor(snippet *core.Snippet, updatedAt int64, id string) bool {
	ms := snippet.UpdatedAt.UnixMilli()
	if ms != updatedAt {
		return ms < updatedAt
	}
	return snippet.ID < id
}

var _ ports.SnippetStore = (*MemorySnippetStore)(nil)
