// Package renewal keeps a client session alive in the background. Renewal is
// deliberately invisible: failures are dropped, the next authenticated
// request surfaces the expired session through its own error path.
package renewal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/snipvault/snipvault/core"
)

// DefaultInterval is the cadence between background renewal attempts.
const DefaultInterval = 6 * time.Hour

// RenewFunc performs one renewal round trip and returns the refreshed
// session.
type RenewFunc func(ctx context.Context) (*core.Session, error)

// Scheduler silently renews a session on a fixed cadence. It holds no
// session state itself; refreshed sessions are handed to the OnRenewed
// callback, and never after Stop.
type Scheduler struct {
	renew     RenewFunc
	authed    func() bool
	onRenewed func(*core.Session)
	interval  time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval overrides the renewal cadence.
func WithInterval(interval time.Duration) Option {
	return func(s *Scheduler) { s.interval = interval }
}

// WithOnRenewed registers a callback receiving each refreshed session.
func WithOnRenewed(fn func(*core.Session)) Option {
	return func(s *Scheduler) { s.onRenewed = fn }
}

// New creates a renewal scheduler. The authed predicate decides whether
// there is a session worth renewing at all.
func New(renew RenewFunc, authed func() bool, logger *slog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		renew:    renew,
		authed:   authed,
		interval: DefaultInterval,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the renewal loop: one immediate attempt if a session appears
// valid locally, then one attempt per interval. Start is a no-op when the
// client is not authenticated.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.done != nil || !s.authed() {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.loop(ctx)
}

// Stop cancels the timer and waits for the loop to exit. A renewal already
// in flight is discarded; its result is never delivered after Stop returns.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.attempt(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.authed() {
				continue
			}
			s.attempt(ctx)
		}
	}
}

// attempt performs one fire-and-forget renewal. Every failure is dropped; a
// transient error simply waits for the next tick.
func (s *Scheduler) attempt(ctx context.Context) {
	session, err := s.renew(ctx)
	if err != nil {
		s.logger.Debug("session renewal failed", "error", err)
		return
	}
	s.deliver(session)
}

// deliver hands the refreshed session to the callback unless the scheduler
// was stopped while the request was in flight. A logged-out session is never
// resurrected by a late response.
func (s *Scheduler) deliver(session *core.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.onRenewed == nil {
		return
	}
	s.onRenewed(session)
}
