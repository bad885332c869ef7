package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dtp-labs/trustgate/core"
	"github.com/dtp-labs/trustgate/internal/eth"
	"github.com/dtp-labs/trustgate/ports"
)

// Verifier validates VC-JWT credential tokens: signature against the
// issuer's resolved key, subject binding, issuer allow-list, and expiry.
type Verifier struct {
	resolver ports.KeyResolver
	now      func() time.Time
}

// NewVerifier creates a credential verifier backed by a key resolver.
func NewVerifier(resolver ports.KeyResolver) *Verifier {
	return &Verifier{
		resolver: resolver,
		now:      time.Now,
	}
}

var _ ports.CredentialVerifier = (*Verifier)(nil)

type credentialSubject struct {
	ID          string `json:"id"`
	Role        string `json:"role,omitempty"`
	Department  string `json:"department,omitempty"`
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	RequesterID string `json:"employeeId,omitempty"`
}

type vcEnvelope struct {
	Context           []string          `json:"@context,omitempty"`
	Type              []string          `json:"type,omitempty"`
	Issuer            string            `json:"issuer"`
	CredentialSubject credentialSubject `json:"credentialSubject"`
}

type credentialClaims struct {
	jwt.RegisteredClaims
	VC *vcEnvelope `json:"vc"`
}

func (c *credentialClaims) issuerIdentity() string {
	if c.VC != nil && c.VC.Issuer != "" {
		return c.VC.Issuer
	}
	return c.Issuer
}

// Verify validates the credential token. Each failing step returns its error
// without side effects; the token is accepted only if every step passes.
func (v *Verifier) Verify(ctx context.Context, token, expectedSubjectDID string, allowedIssuers []string) (*core.VerifiableCredential, error) {
	claims := &credentialClaims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != MethodES256K.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		c, ok := t.Claims.(*credentialClaims)
		if !ok {
			return nil, errors.New("invalid claims type")
		}
		issuer := c.issuerIdentity()
		if issuer == "" {
			return nil, errors.New("credential carries no issuer")
		}
		return v.resolver.ResolveKey(ctx, issuer)
	}, jwt.WithValidMethods([]string{MethodES256K.Alg()}))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, core.ErrCredentialExpired
		}
		return nil, fmt.Errorf("%w: %v", core.ErrCredentialInvalid, err)
	}
	if !parsed.Valid || claims.VC == nil || claims.VC.CredentialSubject.ID == "" {
		return nil, fmt.Errorf("%w: missing credential subject", core.ErrCredentialInvalid)
	}

	if !sameIdentity(claims.VC.CredentialSubject.ID, expectedSubjectDID) {
		return nil, core.ErrCredentialSubjectMismatch
	}

	issuer := claims.issuerIdentity()
	allowed := false
	for _, candidate := range allowedIssuers {
		if sameIdentity(issuer, candidate) {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, core.ErrCredentialIssuerNotAllowed
	}

	credential := &core.VerifiableCredential{
		IssuerIdentity:  issuer,
		SubjectIdentity: claims.VC.CredentialSubject.ID,
		Claims: core.CredentialClaims{
			Role:        claims.VC.CredentialSubject.Role,
			Group:       claims.VC.CredentialSubject.Department,
			Name:        claims.VC.CredentialSubject.Name,
			Email:       claims.VC.CredentialSubject.Email,
			RequesterID: claims.VC.CredentialSubject.RequesterID,
		},
	}
	if claims.IssuedAt != nil {
		credential.IssuanceDate = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		credential.ExpirationDate = claims.ExpiresAt.Time
	}
	return credential, nil
}

// sameIdentity compares two DID strings. did:ethr identities are equal when
// their addresses match case-insensitively; anything else compares exactly.
func sameIdentity(a, b string) bool {
	addrA, errA := eth.ParseDID(a)
	addrB, errB := eth.ParseDID(b)
	if errA == nil && errB == nil {
		return addrA == addrB
	}
	return a == b
}
