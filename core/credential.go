package core

import "time"

// VerifiableCredential is a verified claim set about a subject, issued and
// signed by an authority resolvable through a DID.
type VerifiableCredential struct {
	IssuerIdentity  string           // DID of the issuing authority
	SubjectIdentity string           // DID the credential was issued to
	Claims          CredentialClaims // Informational subject claims
	IssuanceDate    time.Time
	ExpirationDate  time.Time // Zero when the credential does not expire
}

// CredentialClaims are the subject attributes carried by a credential.
type CredentialClaims struct {
	Role        string
	Group       string
	Name        string
	Email       string
	RequesterID string // e.g. employee identifier assigned by the issuer
}
