package core

import "time"

// AccessLevel describes what a bearer token is entitled to.
type AccessLevel string

const (
	// AccessStandard is granted after proof of key control.
	AccessStandard AccessLevel = "standard"

	// AccessPremium is granted after an additional membership proof.
	AccessPremium AccessLevel = "premium"

	// AccessPremiumContent is the level carried by anonymous grants.
	AccessPremiumContent AccessLevel = "premium_content"
)

// Session represents the claims of an identified bearer session.
type Session struct {
	SubjectAddress   string      // Address proven via signature recovery
	DID              string      // Optional did:ethr identity
	AccessLevel      AccessLevel // standard or premium
	IssuedAt         time.Time   // When the session was minted
	ExpiresAt        time.Time   // When the session expires
	Issuer           string      // Fixed token issuer identifier
	PremiumGrantedAt time.Time   // Set only when upgraded to premium

	// Informational passengers copied from a verified credential. They are
	// never used for authorization decisions.
	CredentialVerified bool
	Role               string
	Group              string
	Name               string
	Email              string
}

// AnonymousGrant represents the claims of an identity-less premium grant.
// It must never carry a subject address or DID.
type AnonymousGrant struct {
	AccessLevel          AccessLevel // Always premium_content
	GrantType            string      // How the grant was obtained
	MembershipCollection string      // Collection the proof was evaluated against
	IssuedAt             time.Time
	ExpiresAt            time.Time
	Anonymous            bool // Always true
}
