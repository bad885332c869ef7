package ports

import "context"

// EventPublisher notifies other components about authentication lifecycle
// events. Publishing is best-effort; failures must not fail the request.
type EventPublisher interface {
	// PublishLogin announces a successful identified login.
	PublishLogin(ctx context.Context, address, did, challengeID string) error

	// PublishSessionUpgraded announces a session upgrade to premium.
	PublishSessionUpgraded(ctx context.Context, address string) error

	// PublishAnonymousGrant announces an anonymous grant. It carries the
	// collection only, never a subject identity.
	PublishAnonymousGrant(ctx context.Context, collection string) error
}
