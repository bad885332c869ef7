package core

import "errors"

var (
	// ErrChallengeNotFound is returned for an unknown challenge id.
	ErrChallengeNotFound = errors.New("challenge not found")

	// ErrChallengeUsed is returned when a challenge was already consumed.
	ErrChallengeUsed = errors.New("challenge has already been used")

	// ErrChallengeExpired is returned when a challenge is past its TTL.
	ErrChallengeExpired = errors.New("challenge has expired")

	// ErrInvalidChallenge is returned when the signed message does not embed
	// the challenge secret.
	ErrInvalidChallenge = errors.New("invalid challenge in signed message")

	// ErrInvalidSignature is returned when signature recovery fails or the
	// recovered address does not match the claimed one.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrInvalidAddress is returned for a malformed Ethereum address.
	ErrInvalidAddress = errors.New("invalid ethereum address")

	// ErrInvalidDID is returned for a DID that is not a valid did:ethr.
	ErrInvalidDID = errors.New("invalid DID format")

	// ErrInvalidToken is returned when a token is malformed or its signature
	// does not verify.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when a token is past its expiry.
	ErrTokenExpired = errors.New("token has expired")

	// ErrAccessLevelMismatch is returned when a grant token does not carry
	// the anonymous premium access level.
	ErrAccessLevelMismatch = errors.New("invalid access level")

	// ErrCredentialInvalid is returned for a credential that is malformed or
	// whose signature does not verify.
	ErrCredentialInvalid = errors.New("credential verification failed")

	// ErrCredentialSubjectMismatch is returned when a credential was not
	// issued to the authenticated subject.
	ErrCredentialSubjectMismatch = errors.New("credential not issued to authenticated subject")

	// ErrCredentialIssuerNotAllowed is returned when the credential issuer is
	// not on the allow-list.
	ErrCredentialIssuerNotAllowed = errors.New("credential issuer not allowed")

	// ErrCredentialExpired is returned when a credential is past its
	// expiration date.
	ErrCredentialExpired = errors.New("credential has expired")

	// ErrProofRejected is returned when the external verifier rejects a
	// membership proof.
	ErrProofRejected = errors.New("proof verification failed")

	// ErrInvalidProof is returned when a proof artifact is structurally
	// malformed and never reaches the verifier.
	ErrInvalidProof = errors.New("invalid proof structure")
)
