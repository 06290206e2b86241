package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/snipvault/snipvault/core"
	"github.com/snipvault/snipvault/ports"
	"github.com/snipvault/snipvault/validate"
)

// DefaultSessionTTL is the fixed lifetime a session gains on creation and on
// every successful renewal.
const DefaultSessionTTL = 24 * time.Hour

// AuthService orchestrates the credential ceremonies and the session
// lifecycle. Every finish operation consumes its challenge before the
// cryptographic proof is verified, so a challenge is never reusable
// regardless of the verification outcome.
type AuthService struct {
	challenges  ports.ChallengeStore
	sessions    ports.SessionStore
	credentials ports.CredentialStore
	verifier    ports.Verifier
	tokenizer   ports.Tokenizer
	events      ports.EventPublisher
	logger      *slog.Logger

	sessionTTL time.Duration
	now        func() time.Time
}

// AuthOption configures an AuthService.
type AuthOption func(*AuthService)

// WithSessionTTL overrides the session lifetime.
func WithSessionTTL(ttl time.Duration) AuthOption {
	return func(s *AuthService) { s.sessionTTL = ttl }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	challenges ports.ChallengeStore,
	sessions ports.SessionStore,
	credentials ports.CredentialStore,
	verifier ports.Verifier,
	tokenizer ports.Tokenizer,
	events ports.EventPublisher,
	logger *slog.Logger,
	opts ...AuthOption,
) *AuthService {
	s := &AuthService{
		challenges:  challenges,
		sessions:    sessions,
		credentials: credentials,
		verifier:    verifier,
		tokenizer:   tokenizer,
		events:      events,
		logger:      logger,
		sessionTTL:  DefaultSessionTTL,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterStart issues a registration challenge. No existing credential is
// required.
func (s *AuthService) RegisterStart(ctx context.Context) (*core.Challenge, error) {
	challenge, err := s.challenges.Issue(ctx, core.ChallengeRegister, "")
	if err != nil {
		return nil, s.storeErr("issue register challenge", err)
	}
	return challenge, nil
}

// RegisterFinish consumes the challenge, verifies the attestation against it
// and, on success, creates a new user identity with its first credential and
// a session.
func (s *AuthService) RegisterFinish(ctx context.Context, in validate.AuthFinishInput) (*core.Session, string, error) {
	in, verr := validate.AuthFinish(core.ChallengeRegister, in)
	if verr != nil {
		return nil, "", verr
	}

	challenge, err := s.consume(ctx, in.ChallengeID, core.ChallengeRegister)
	if err != nil {
		return nil, "", err
	}

	// The challenge is gone at this point. A verifier failure or a crash
	// below costs the user one retry with a fresh challenge, never a replay.
	credential, err := s.verifier.VerifyAttestation(ctx, challenge, in.Proof)
	if err != nil {
		s.logger.Info("attestation rejected", "challenge_id", challenge.ID)
		return nil, "", core.ErrAttestationRejected
	}

	// The authenticator registered the challenge id as its user handle, so
	// the new identity adopts it; handles and user ids stay equal for the
	// credential's whole life.
	credential.UserID = challenge.ID
	credential.CreatedAt = s.now()
	if err := s.credentials.Put(ctx, credential); err != nil {
		return nil, "", s.storeErr("store credential", err)
	}

	session, token, err := s.createSession(ctx, credential.UserID)
	if err != nil {
		return nil, "", err
	}

	if err := s.events.PublishRegistered(ctx, credential.UserID); err != nil {
		s.logger.Warn("publish registered event failed", "error", err)
	}

	return session, token, nil
}

// LoginStart issues a login challenge bound to an existing subject.
func (s *AuthService) LoginStart(ctx context.Context, subject string) (*core.Challenge, error) {
	if subject == "" {
		return nil, core.ErrUnknownSubject
	}

	stored, err := s.credentials.ForSubject(ctx, subject)
	if err != nil {
		return nil, s.storeErr("load credentials", err)
	}
	if len(stored) == 0 {
		return nil, core.ErrUnknownSubject
	}

	challenge, err := s.challenges.Issue(ctx, core.ChallengeLogin, subject)
	if err != nil {
		return nil, s.storeErr("issue login challenge", err)
	}
	return challenge, nil
}

// LoginFinish consumes the challenge, verifies the assertion against the
// subject's stored credentials and, on success, advances the credential's
// sign counter and creates a session.
func (s *AuthService) LoginFinish(ctx context.Context, in validate.AuthFinishInput) (*core.Session, string, error) {
	in, verr := validate.AuthFinish(core.ChallengeLogin, in)
	if verr != nil {
		return nil, "", verr
	}

	challenge, err := s.consume(ctx, in.ChallengeID, core.ChallengeLogin)
	if err != nil {
		return nil, "", err
	}
	if challenge.Subject == "" {
		return nil, "", core.ErrInvalidChallenge
	}

	stored, err := s.credentials.ForSubject(ctx, challenge.Subject)
	if err != nil {
		return nil, "", s.storeErr("load credentials", err)
	}
	if len(stored) == 0 {
		return nil, "", core.ErrUnknownSubject
	}

	result, err := s.verifier.VerifyAssertion(ctx, challenge, in.Proof, stored)
	if err != nil {
		s.logger.Info("assertion rejected", "challenge_id", challenge.ID)
		return nil, "", core.ErrAttestationRejected
	}

	var credential *core.Credential
	for _, c := range stored {
		if string(c.ID) == string(result.CredentialID) {
			credential = c
			break
		}
	}
	if credential == nil {
		return nil, "", core.ErrAttestationRejected
	}

	// A counter that does not strictly increase points at a cloned
	// authenticator; no session is issued.
	if result.SignCounter <= credential.SignCounter {
		s.logger.Warn("sign counter did not advance",
			"subject", challenge.Subject,
			"stored", credential.SignCounter,
			"reported", result.SignCounter)
		return nil, "", core.ErrPossibleCloning
	}

	if err := s.credentials.UpdateSignCounter(ctx, credential.ID, result.SignCounter); err != nil {
		return nil, "", s.storeErr("update sign counter", err)
	}

	session, token, err := s.createSession(ctx, challenge.Subject)
	if err != nil {
		return nil, "", err
	}

	if err := s.events.PublishLogin(ctx, challenge.Subject, session.ID); err != nil {
		s.logger.Warn("publish login event failed", "error", err)
	}

	return session, token, nil
}

// Renew extends the session identified by the token. The stored record is
// authoritative: an expired or deleted session fails with
// core.ErrSessionExpired and is never extended.
func (s *AuthService) Renew(ctx context.Context, token string) (*core.Session, string, error) {
	parsed, err := s.tokenizer.TokenToSession(token)
	if err != nil {
		return nil, "", core.ErrSessionExpired
	}

	session, err := s.sessions.Renew(ctx, parsed.ID, s.now())
	switch {
	case errors.Is(err, core.ErrSessionNotFound), errors.Is(err, core.ErrSessionExpired):
		return nil, "", core.ErrSessionExpired
	case err != nil:
		return nil, "", s.storeErr("renew session", err)
	}

	newToken, err := s.tokenizer.SessionToToken(session)
	if err != nil {
		return nil, "", fmt.Errorf("sign renewed session token: %w", err)
	}
	return session, newToken, nil
}

// Logout deletes the session identified by the token. An invalid token is
// treated as already logged out.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	parsed, err := s.tokenizer.TokenToSession(token)
	if err != nil {
		return nil
	}

	if err := s.sessions.Delete(ctx, parsed.ID); err != nil {
		return s.storeErr("delete session", err)
	}

	if err := s.events.PublishLogout(ctx, parsed.UserID, parsed.ID); err != nil {
		s.logger.Warn("publish logout event failed", "error", err)
	}
	return nil
}

// ValidateToken resolves a wire token to its live session. Used by the
// transport middleware for every authenticated request.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*core.Session, error) {
	parsed, err := s.tokenizer.TokenToSession(token)
	if err != nil {
		return nil, core.ErrInvalidToken
	}

	session, err := s.sessions.Get(ctx, parsed.ID)
	switch {
	case errors.Is(err, core.ErrSessionNotFound):
		return nil, core.ErrInvalidToken
	case err != nil:
		return nil, s.storeErr("load session", err)
	}

	if session.Expired(s.now()) {
		return nil, core.ErrSessionExpired
	}
	return session, nil
}

// consume resolves a finish attempt's challenge. Every challenge-layer
// failure surfaces as the same generic error so callers cannot distinguish
// which case occurred.
func (s *AuthService) consume(ctx context.Context, id string, kind core.ChallengeKind) (*core.Challenge, error) {
	challenge, err := s.challenges.Consume(ctx, id)
	switch {
	case errors.Is(err, core.ErrChallengeNotFound),
		errors.Is(err, core.ErrChallengeExpired),
		errors.Is(err, core.ErrChallengeConsumed):
		return nil, core.ErrInvalidChallenge
	case err != nil:
		return nil, s.storeErr("consume challenge", err)
	}

	if challenge.Kind != kind {
		return nil, core.ErrInvalidChallenge
	}
	return challenge, nil
}

func (s *AuthService) createSession(ctx context.Context, userID string) (*core.Session, string, error) {
	now := s.now()
	session := &core.Session{
		ID:            uuid.New().String(),
		UserID:        userID,
		CreatedAt:     now,
		LastRenewedAt: now,
		ExpiresAt:     now.Add(s.sessionTTL),
	}

	if err := s.sessions.Put(ctx, session); err != nil {
		return nil, "", s.storeErr("store session", err)
	}

	token, err := s.tokenizer.SessionToToken(session)
	if err != nil {
		return nil, "", fmt.Errorf("sign session token: %w", err)
	}
	return session, token, nil
}

// storeErr maps a store failure onto the error taxonomy. Timeouts and
// cancellations become retryable transient failures instead of hanging or
// leaking storage details.
func (s *AuthService) storeErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger.Warn("store operation timed out", "op", op)
		return core.ErrAuthTransient
	}
	return fmt.Errorf("%s: %w", op, err)
}
