package zkverifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dtp-labs/trustgate/core"
	"github.com/dtp-labs/trustgate/ports"
)

// ValidateArtifact checks the Groth16 proof envelope before it is handed to
// the external verifier: pi_a and pi_c with three elements, pi_b with three
// rows of which the first two are G2 pairs, and a non-empty signal list.
func ValidateArtifact(proof core.ProofArtifact, publicSignals []string) error {
	if len(proof.PiA) != 3 {
		return fmt.Errorf("%w: pi_a must have 3 elements", core.ErrInvalidProof)
	}
	if len(proof.PiB) != 3 {
		return fmt.Errorf("%w: pi_b must have 3 rows", core.ErrInvalidProof)
	}
	for i := 0; i < 2; i++ {
		if len(proof.PiB[i]) != 2 {
			return fmt.Errorf("%w: pi_b[%d] must have 2 elements", core.ErrInvalidProof, i)
		}
	}
	if len(proof.PiC) != 3 {
		return fmt.Errorf("%w: pi_c must have 3 elements", core.ErrInvalidProof)
	}
	if proof.Protocol != "" && proof.Protocol != "groth16" {
		return fmt.Errorf("%w: unsupported protocol %q", core.ErrInvalidProof, proof.Protocol)
	}
	if len(publicSignals) == 0 {
		return fmt.Errorf("%w: public signals must be non-empty", core.ErrInvalidProof)
	}
	return nil
}

// HTTPVerifier forwards proofs to an external verification service that
// holds the circuit and verification key.
type HTTPVerifier struct {
	url    string
	client *http.Client
}

// NewHTTPVerifier creates a verifier client for the given endpoint.
func NewHTTPVerifier(url string) *HTTPVerifier {
	return &HTTPVerifier{
		url: url,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

var _ ports.ProofVerifier = (*HTTPVerifier)(nil)

type verifyRequest struct {
	Proof         core.ProofArtifact `json:"proof"`
	PublicSignals []string           `json:"publicSignals"`
}

type verifyResponse struct {
	Valid bool `json:"valid"`
}

// VerifyMembership submits the proof and returns the collaborator's verdict.
func (v *HTTPVerifier) VerifyMembership(ctx context.Context, proof core.ProofArtifact, publicSignals []string) (bool, error) {
	if err := ValidateArtifact(proof, publicSignals); err != nil {
		return false, err
	}

	payload, err := json.Marshal(verifyRequest{Proof: proof, PublicSignals: publicSignals})
	if err != nil {
		return false, fmt.Errorf("marshal proof: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("build verifier request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("call proof verifier: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("proof verifier returned status %d", resp.StatusCode)
	}

	var verdict verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return false, fmt.Errorf("decode verifier response: %w", err)
	}
	return verdict.Valid, nil
}

// StaticVerifier returns a fixed verdict after structural validation. Used
// in development and tests where no circuit is deployed.
type StaticVerifier struct {
	Accept bool
}

var _ ports.ProofVerifier = (*StaticVerifier)(nil)

// VerifyMembership validates the artifact structure and returns the fixed
// verdict.
func (v *StaticVerifier) VerifyMembership(_ context.Context, proof core.ProofArtifact, publicSignals []string) (bool, error) {
	if err := ValidateArtifact(proof, publicSignals); err != nil {
		return false, err
	}
	return v.Accept, nil
}
