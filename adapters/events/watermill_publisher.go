package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/snipvault/snipvault/ports"
)

// Topics for auth lifecycle events.
const (
	TopicRegistered = "auth.registered"
	TopicLogin      = "auth.logged_in"
	TopicLogout     = "auth.logged_out"
)

// AuthEvent is the payload shared by all auth lifecycle events.
type AuthEvent struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill.
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher.
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishRegistered publishes a registration event.
func (p *WatermillPublisher) PublishRegistered(ctx context.Context, userID string) error {
	return p.publish(TopicRegistered, AuthEvent{UserID: userID})
}

// PublishLogin publishes a login event.
func (p *WatermillPublisher) PublishLogin(ctx context.Context, userID, sessionID string) error {
	return p.publish(TopicLogin, AuthEvent{UserID: userID, SessionID: sessionID})
}

// PublishLogout publishes a logout event.
func (p *WatermillPublisher) PublishLogout(ctx context.Context, userID, sessionID string) error {
	return p.publish(TopicLogout, AuthEvent{UserID: userID, SessionID: sessionID})
}

func (p *WatermillPublisher) publish(topic string, event AuthEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
