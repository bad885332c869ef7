package core

import "time"

// Challenge is a single-use authentication challenge. The client proves
// control of a private key by signing a message that embeds Secret.
type Challenge struct {
	ID        string           // Unique identifier for the challenge
	Secret    string           // High-entropy random value the client must sign
	CreatedAt time.Time        // When the challenge was created
	ExpiresAt time.Time        // When the challenge expires
	Used      bool             // Set once, on first successful verification
	UsedAt    time.Time        // When the challenge was consumed
	Result    *ChallengeResult // Outcome of the verification, set exactly once
	Bound     *BoundContext    // Optional request context captured at creation
}

// ChallengeResult records the outcome of a successful verification so that
// polling clients can retrieve the issued token.
type ChallengeResult struct {
	Token          string // Session token minted for the authenticated subject
	SubjectAddress string // Address recovered from the signature
	DID            string // DID derived from or supplied with the request
}

// BoundContext carries optional request metadata attached at challenge
// creation. It is informational only and never security-relevant.
type BoundContext struct {
	RequesterID string // e.g. an employee identifier
	GroupID     string // e.g. a company identifier
	RequestKind string // e.g. "portal_access"
}

// Expired reports whether the challenge is past its TTL at the given time.
func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// ZkChallenge is a freshness nonce for the zero-knowledge proof flow. It is
// deliberately unrelated to Challenge: it carries no identity binding and
// exists only to resist proof replay.
type ZkChallenge struct {
	ID        string
	Nonce     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ProofArtifact is an opaque Groth16 proof object. Only its structure is
// inspected here; cryptographic verification is a collaborator concern.
type ProofArtifact struct {
	PiA      []string   `json:"pi_a"`
	PiB      [][]string `json:"pi_b"`
	PiC      []string   `json:"pi_c"`
	Protocol string     `json:"protocol,omitempty"`
	Curve    string     `json:"curve,omitempty"`
}
