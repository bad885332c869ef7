package tokenizer

import "github.com/golang-jwt/jwt/v5"

// AudienceSession marks identified session tokens.
const AudienceSession = "session:access"

// AudienceAnonymous marks identity-less premium grants.
const AudienceAnonymous = "premium-content-access"

// GrantTypeMembership is the grant type of proofs of collection membership.
const GrantTypeMembership = "zkp_membership"

// SessionClaims combines standard claims with session-specific ones.
type SessionClaims struct {
	jwt.RegisteredClaims
	SubjectAddress     string           `json:"subjectAddress"`
	DID                string           `json:"did,omitempty"`
	AccessLevel        string           `json:"accessLevel"`
	PremiumGrantedAt   *jwt.NumericDate `json:"premiumGrantedAt,omitempty"`
	CredentialVerified bool             `json:"credentialVerified,omitempty"`
	Role               string           `json:"role,omitempty"`
	Group              string           `json:"group,omitempty"`
	Name               string           `json:"name,omitempty"`
	Email              string           `json:"email,omitempty"`
}

// AnonymousClaims are the claims of an anonymous grant. They must never
// carry a subject address or DID.
type AnonymousClaims struct {
	jwt.RegisteredClaims
	AccessLevel          string `json:"accessLevel"`
	GrantType            string `json:"grantType"`
	MembershipCollection string `json:"membershipCollection"`
	Anonymous            bool   `json:"anonymous"`
}
