package ports

import "context"

// EventPublisher publishes auth lifecycle events to notify other instances.
type EventPublisher interface {
	PublishRegistered(ctx context.Context, userID string) error
	PublishLogin(ctx context.Context, userID, sessionID string) error
	PublishLogout(ctx context.Context, userID, sessionID string) error
}
