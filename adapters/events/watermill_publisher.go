package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/dtp-labs/trustgate/ports"
)

const (
	// TopicLogin carries successful identified logins.
	TopicLogin = "auth.login"

	// TopicSessionUpgraded carries session upgrades to premium.
	TopicSessionUpgraded = "auth.session_upgraded"

	// TopicAnonymousGrant carries anonymous grant issuance. Payloads on this
	// topic never contain a subject identity.
	TopicAnonymousGrant = "auth.anonymous_grant"
)

// LoginEvent is published after a successful identified login.
type LoginEvent struct {
	Address     string `json:"address"`
	DID         string `json:"did,omitempty"`
	ChallengeID string `json:"challenge_id"`
}

// SessionUpgradedEvent is published after a session upgrade.
type SessionUpgradedEvent struct {
	Address string `json:"address"`
}

// AnonymousGrantEvent is published after an anonymous grant is minted.
type AnonymousGrantEvent struct {
	Collection string `json:"collection"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill.
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill-backed event publisher.
func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{publisher: publisher}
}

var _ ports.EventPublisher = (*WatermillPublisher)(nil)

func (p *WatermillPublisher) publish(topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)
	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// PublishLogin publishes a login event.
func (p *WatermillPublisher) PublishLogin(_ context.Context, address, did, challengeID string) error {
	return p.publish(TopicLogin, LoginEvent{Address: address, DID: did, ChallengeID: challengeID})
}

// PublishSessionUpgraded publishes a session upgrade event.
func (p *WatermillPublisher) PublishSessionUpgraded(_ context.Context, address string) error {
	return p.publish(TopicSessionUpgraded, SessionUpgradedEvent{Address: address})
}

// PublishAnonymousGrant publishes an anonymous grant event.
func (p *WatermillPublisher) PublishAnonymousGrant(_ context.Context, collection string) error {
	return p.publish(TopicAnonymousGrant, AnonymousGrantEvent{Collection: collection})
}

// NopPublisher discards all events. Used when no event stream is configured.
type NopPublisher struct{}

var _ ports.EventPublisher = (*NopPublisher)(nil)

func (NopPublisher) PublishLogin(context.Context, string, string, string) error { return nil }
func (NopPublisher) PublishSessionUpgraded(context.Context, string) error       { return nil }
func (NopPublisher) PublishAnonymousGrant(context.Context, string) error        { return nil }
