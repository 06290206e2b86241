package core

import "time"

// Snippet is a shared note or code snippet.
type Snippet struct {
	ID        string
	OwnerID   string
	Title     string
	Body      string
	Tags      []string
	CreatedAt time.Time
	UpdatedAt time.Time
}
