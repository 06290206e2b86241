package http

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/snipvault/snipvault/core"
	"github.com/snipvault/snipvault/service"
	"github.com/snipvault/snipvault/validate"
)

// genericAuthError is the only message ceremony failures ever render; which
// sub-case occurred is never disclosed.
const genericAuthError = "couldn't verify, try again"

// Handlers contains HTTP handlers for the auth and snippet endpoints.
type Handlers struct {
	auth     *service.AuthService
	snippets *service.SnippetService
}

// NewHandlers creates new handlers.
func NewHandlers(auth *service.AuthService, snippets *service.SnippetService) *Handlers {
	return &Handlers{auth: auth, snippets: snippets}
}

type challengeResponse struct {
	ChallengeID string    `json:"challengeId"`
	Nonce       string    `json:"nonce"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type sessionResponse struct {
	Token   string      `json:"token"`
	Session sessionBody `json:"session"`
}

type sessionBody struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func newChallengeResponse(challenge *core.Challenge) challengeResponse {
	return challengeResponse{
		ChallengeID: challenge.ID,
		Nonce:       base64.RawURLEncoding.EncodeToString(challenge.Nonce),
		ExpiresAt:   challenge.ExpiresAt,
	}
}

func newSessionResponse(session *core.Session, token string) sessionResponse {
	return sessionResponse{
		Token: token,
		Session: sessionBody{
			ID:        session.ID,
			UserID:    session.UserID,
			ExpiresAt: session.ExpiresAt,
		},
	}
}

// RegisterStart handles the registration start request.
func (h *Handlers) RegisterStart(c *gin.Context) {
	challenge, err := h.auth.RegisterStart(c.Request.Context())
	if err != nil {
		authError(c, err)
		return
	}
	c.JSON(http.StatusOK, newChallengeResponse(challenge))
}

// RegisterFinish handles the registration finish request.
func (h *Handlers) RegisterFinish(c *gin.Context) {
	var req struct {
		ChallengeID string          `json:"challengeId"`
		Attestation json.RawMessage `json:"attestation"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	session, token, err := h.auth.RegisterFinish(c.Request.Context(), validate.AuthFinishInput{
		ChallengeID: req.ChallengeID,
		Proof:       req.Attestation,
	})
	if err != nil {
		authError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(session, token))
}

// LoginStart handles the login start request.
func (h *Handlers) LoginStart(c *gin.Context) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	challenge, err := h.auth.LoginStart(c.Request.Context(), req.UserID)
	if err != nil {
		authError(c, err)
		return
	}
	c.JSON(http.StatusOK, newChallengeResponse(challenge))
}

// LoginFinish handles the login finish request.
func (h *Handlers) LoginFinish(c *gin.Context) {
	var req struct {
		ChallengeID string          `json:"challengeId"`
		Assertion   json.RawMessage `json:"assertion"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	session, token, err := h.auth.LoginFinish(c.Request.Context(), validate.AuthFinishInput{
		ChallengeID: req.ChallengeID,
		Proof:       req.Assertion,
	})
	if err != nil {
		authError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(session, token))
}

// Renew handles the session renewal request. The token travels in the
// Authorization header.
func (h *Handlers) Renew(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
		return
	}

	session, newToken, err := h.auth.Renew(c.Request.Context(), token)
	switch {
	case errors.Is(err, core.ErrSessionExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
		return
	case errors.Is(err, core.ErrAuthTransient):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to renew session"})
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(session, newToken))
}

// Logout handles the logout request.
func (h *Handlers) Logout(c *gin.Context) {
	token, _ := bearerToken(c)
	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to logout"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// CreateSnippet handles snippet creation.
func (h *Handlers) CreateSnippet(c *gin.Context) {
	var req validate.SnippetCreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	snippet, err := h.snippets.Create(c.Request.Context(), c.GetString(ContextUserID), req)
	if err != nil {
		snippetError(c, err)
		return
	}
	c.JSON(http.StatusCreated, snippetResponse(snippet))
}

// UpdateSnippet handles snippet updates. The snippet id comes from the path.
func (h *Handlers) UpdateSnippet(c *gin.Context) {
	var req validate.SnippetUpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	req.ID = c.Param("id")

	snippet, err := h.snippets.Update(c.Request.Context(), c.GetString(ContextUserID), req)
	if err != nil {
		snippetError(c, err)
		return
	}
	c.JSON(http.StatusOK, snippetResponse(snippet))
}

// ListSnippets handles snippet listing. The cursor travels as base64url of
// its JSON form.
func (h *Handlers) ListSnippets(c *gin.Context) {
	in := validate.SnippetListInput{
		Query: c.Query("query"),
		Tag:   c.Query("tag"),
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "field": "limit", "reason": "must be a positive integer"})
			return
		}
		in.Limit = limit
	}

	if raw := c.Query("cursor"); raw != "" {
		decoded, err := base64.RawURLEncoding.DecodeString(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "field": "cursor", "reason": "must be base64url-encoded JSON"})
			return
		}
		var cursor validate.Cursor
		if err := json.Unmarshal(decoded, &cursor); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "field": "cursor", "reason": "must be base64url-encoded JSON"})
			return
		}
		in.Cursor = &cursor
	}

	page, err := h.snippets.List(c.Request.Context(), in)
	if err != nil {
		snippetError(c, err)
		return
	}

	items := make([]gin.H, 0, len(page.Items))
	for _, snippet := range page.Items {
		items = append(items, snippetResponse(snippet))
	}
	resp := gin.H{"items": items}
	if page.NextCursor != nil {
		encoded, err := json.Marshal(page.NextCursor)
		if err == nil {
			resp["nextCursor"] = base64.RawURLEncoding.EncodeToString(encoded)
		}
	}
	c.JSON(http.StatusOK, resp)
}

func snippetResponse(snippet *core.Snippet) gin.H {
	tags := snippet.Tags
	if tags == nil {
		tags = []string{}
	}
	return gin.H{
		"id":        snippet.ID,
		"ownerId":   snippet.OwnerID,
		"title":     snippet.Title,
		"body":      snippet.Body,
		"tags":      tags,
		"createdAt": snippet.CreatedAt,
		"updatedAt": snippet.UpdatedAt,
	}
}

// authError maps ceremony failures onto status codes. All rejection cases
// share one generic message.
func authError(c *gin.Context, err error) {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "field": verr.Field, "reason": verr.Reason})
	case errors.Is(err, core.ErrAuthTransient):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable"})
	case errors.Is(err, core.ErrInvalidChallenge),
		errors.Is(err, core.ErrAttestationRejected),
		errors.Is(err, core.ErrPossibleCloning),
		errors.Is(err, core.ErrUnknownSubject):
		c.JSON(http.StatusUnauthorized, gin.H{"error": genericAuthError})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authentication failed"})
	}
}

func snippetError(c *gin.Context, err error) {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "field": verr.Field, "reason": verr.Reason})
	case errors.Is(err, core.ErrSnippetNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "snippet not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "request failed"})
	}
}
