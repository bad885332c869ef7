package ports

import (
	"context"

	"github.com/dtp-labs/trustgate/core"
)

// ProofVerifier is the external zero-knowledge proof collaborator. The core
// only consumes its accept/reject outcome; the circuit and verification key
// live elsewhere.
type ProofVerifier interface {
	VerifyMembership(ctx context.Context, proof core.ProofArtifact, publicSignals []string) (bool, error)
}
