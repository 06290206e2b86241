// Package validate holds the pure validation contract for every request
// shape. Validators normalize accepted input deterministically and return a
// *core.ValidationError naming the first violated field; they never touch
// storage or any other side effect.
package validate

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/snipvault/snipvault/core"
)

const (
	maxTitleLen = 200
	maxBodyLen  = 50000
	maxTags     = 10

	defaultListLimit = 20
	maxListLimit     = 100
)

// SnippetCreateInput is the accepted shape for snippet creation.
type SnippetCreateInput struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`
}

// SnippetCreate validates and normalizes a snippet creation request.
func SnippetCreate(in SnippetCreateInput) (SnippetCreateInput, *core.ValidationError) {
	out := in

	out.Title = strings.TrimSpace(in.Title)
	if out.Title == "" {
		return SnippetCreateInput{}, &core.ValidationError{Field: "title", Reason: "is required"}
	}
	if len(out.Title) > maxTitleLen {
		return SnippetCreateInput{}, &core.ValidationError{Field: "title", Reason: "must be at most 200 characters"}
	}

	if len(out.Body) > maxBodyLen {
		return SnippetCreateInput{}, &core.ValidationError{Field: "body", Reason: "must be at most 50000 characters"}
	}

	tags, verr := normalizeTags(in.Tags)
	if verr != nil {
		return SnippetCreateInput{}, verr
	}
	out.Tags = tags

	return out, nil
}

// SnippetUpdateInput is the accepted shape for snippet updates. All fields
// except ID are optional; nil means "leave unchanged".
type SnippetUpdateInput struct {
	ID    string    `json:"id"`
	Title *string   `json:"title,omitempty"`
	Body  *string   `json:"body,omitempty"`
	Tags  *[]string `json:"tags,omitempty"`
}

// SnippetUpdate validates and normalizes a snippet update request.
func SnippetUpdate(in SnippetUpdateInput) (SnippetUpdateInput, *core.ValidationError) {
	if in.ID == "" {
		return SnippetUpdateInput{}, &core.ValidationError{Field: "id", Reason: "is required"}
	}
	if _, err := uuid.Parse(in.ID); err != nil {
		return SnippetUpdateInput{}, &core.ValidationError{Field: "id", Reason: "must be a valid UUID"}
	}

	out := in

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return SnippetUpdateInput{}, &core.ValidationError{Field: "title", Reason: "is required"}
		}
		if len(title) > maxTitleLen {
			return SnippetUpdateInput{}, &core.ValidationError{Field: "title", Reason: "must be at most 200 characters"}
		}
		out.Title = &title
	}

	if in.Body != nil && len(*in.Body) > maxBodyLen {
		return SnippetUpdateInput{}, &core.ValidationError{Field: "body", Reason: "must be at most 50000 characters"}
	}

	if in.Tags != nil {
		tags, verr := normalizeTags(*in.Tags)
		if verr != nil {
			return SnippetUpdateInput{}, verr
		}
		out.Tags = &tags
	}

	return out, nil
}

// Cursor marks a keyset pagination position. It is never an offset.
type Cursor struct {
	UpdatedAt int64  `json:"updatedAt"`
	ID        string `json:"id"`
}

// SnippetListInput is the accepted shape for snippet listing.
type SnippetListInput struct {
	Query  string  `json:"query,omitempty"`
	Tag    string  `json:"tag,omitempty"`
	Limit  int     `json:"limit,omitempty"`
	Cursor *Cursor `json:"cursor,omitempty"`
}

// SnippetList validates a listing request, applying the default limit.
func SnippetList(in SnippetListInput) (SnippetListInput, *core.ValidationError) {
	out := in

	if in.Limit == 0 {
		out.Limit = defaultListLimit
	} else if in.Limit < 0 {
		return SnippetListInput{}, &core.ValidationError{Field: "limit", Reason: "must be a positive integer"}
	} else if in.Limit > maxListLimit {
		return SnippetListInput{}, &core.ValidationError{Field: "limit", Reason: "must be at most 100"}
	}

	if in.Cursor != nil {
		if in.Cursor.ID == "" {
			return SnippetListInput{}, &core.ValidationError{Field: "cursor", Reason: "id is required"}
		}
		if in.Cursor.UpdatedAt <= 0 {
			return SnippetListInput{}, &core.ValidationError{Field: "cursor", Reason: "updatedAt is required"}
		}
	}

	return out, nil
}

// AuthFinishInput is the accepted shape for both ceremony finish requests.
// Proof carries the attestation (register) or assertion (login) exactly as
// produced by the client platform; its internal shape is the verifier's
// concern, not validated here.
type AuthFinishInput struct {
	ChallengeID string          `json:"challengeId"`
	Proof       json.RawMessage `json:"proof"`
}

// AuthFinish validates a ceremony finish request.
func AuthFinish(kind core.ChallengeKind, in AuthFinishInput) (AuthFinishInput, *core.ValidationError) {
	if in.ChallengeID == "" {
		return AuthFinishInput{}, &core.ValidationError{Field: "challengeId", Reason: "is required"}
	}
	if _, err := uuid.Parse(in.ChallengeID); err != nil {
		return AuthFinishInput{}, &core.ValidationError{Field: "challengeId", Reason: "must be a valid UUID"}
	}

	field := "attestation"
	if kind == core.ChallengeLogin {
		field = "assertion"
	}
	if len(in.Proof) == 0 {
		return AuthFinishInput{}, &core.ValidationError{Field: field, Reason: "is required"}
	}

	return in, nil
}

// normalizeTags applies trim, lowercase, drop-empty and first-occurrence
// dedupe, then enforces the tag count cap.
func normalizeTags(tags []string) ([]string, *core.ValidationError) {
	if len(tags) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}

	if len(out) > maxTags {
		return nil, &core.ValidationError{Field: "tags", Reason: "must contain at most 10 tags"}
	}
	return out, nil
}
