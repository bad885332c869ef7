package ports

import "github.com/dtp-labs/trustgate/core"

// SessionTokenizer converts between session claims and signed bearer tokens.
type SessionTokenizer interface {
	// Mint serializes and signs the session. A zero ExpiresAt is stamped
	// with the configured session TTL.
	Mint(session core.Session) (string, error)

	// Verify parses and validates a session token.
	Verify(token string) (*core.Session, error)

	// Upgrade mints a new premium token from an existing session. Identity
	// fields are carried over unchanged; the prior token is not revoked.
	Upgrade(existing *core.Session) (string, error)
}

// AnonymousGranter mints and validates identity-less premium grants.
type AnonymousGranter interface {
	// Mint issues a short-lived anonymous grant for the collection. It
	// fails with core.ErrProofRejected when proofAccepted is false.
	Mint(proofAccepted bool, collection string) (string, error)

	// Verify parses a grant token and asserts its anonymous premium claims.
	Verify(token string) (*core.AnonymousGrant, error)
}
