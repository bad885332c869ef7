package ports

import (
	"context"
	"crypto/ecdsa"

	"github.com/dtp-labs/trustgate/core"
)

// CredentialVerifier validates a signed verifiable credential token against
// the expected subject and an issuer allow-list.
type CredentialVerifier interface {
	Verify(ctx context.Context, token, expectedSubjectDID string, allowedIssuers []string) (*core.VerifiableCredential, error)
}

// KeyResolver resolves a DID to the public key its credentials are signed
// with. Resolution is an external collaborator concern (a DID registry or
// document resolver); implementations may perform network I/O.
type KeyResolver interface {
	ResolveKey(ctx context.Context, did string) (*ecdsa.PublicKey, error)
}
