package ports

import (
	"context"

	"github.com/dtp-labs/trustgate/core"
)

// ChallengeStore owns the set of outstanding challenges. It is the only
// shared mutable state in the authentication core; implementations must make
// TryConsume atomic so that at most one caller observes success per id.
type ChallengeStore interface {
	// Create generates and stores a fresh challenge with an optional bound
	// context.
	Create(ctx context.Context, bound *core.BoundContext) (*core.Challenge, error)

	// Get returns the challenge with the given id, regardless of state.
	Get(ctx context.Context, id string) (*core.Challenge, error)

	// TryConsume atomically marks the challenge as used and records the
	// result. It fails with core.ErrChallengeUsed if already consumed and
	// core.ErrChallengeExpired if past its TTL.
	TryConsume(ctx context.Context, id string, result *core.ChallengeResult) (*core.Challenge, error)

	// FindByFragment returns a challenge whose id or secret contains the
	// given fragment. O(n) over outstanding challenges.
	FindByFragment(ctx context.Context, fragment string) (*core.Challenge, error)

	// Sweep deletes expired challenges and consumed challenges past their
	// linger window.
	Sweep(ctx context.Context) error
}
