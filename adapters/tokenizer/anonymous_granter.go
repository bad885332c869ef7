package tokenizer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dtp-labs/trustgate/core"
	"github.com/dtp-labs/trustgate/ports"
)

// AnonymousGranter mints and validates identity-less premium grants. It uses
// its own signing key so that a key compromise on the session side cannot
// forge anonymous grants, and vice versa.
type AnonymousGranter struct {
	signKey *ecdsa.PrivateKey
	issuer  string
	ttl     time.Duration
	now     func() time.Time
}

// NewAnonymousGranter creates an anonymous grant tokenizer.
func NewAnonymousGranter(signKey *ecdsa.PrivateKey, issuer string, ttl time.Duration) *AnonymousGranter {
	return &AnonymousGranter{
		signKey: signKey,
		issuer:  issuer,
		ttl:     ttl,
		now:     time.Now,
	}
}

var _ ports.AnonymousGranter = (*AnonymousGranter)(nil)

// Mint issues a short-lived anonymous grant for the collection. The claims
// carry no subject identity of any kind.
func (g *AnonymousGranter) Mint(proofAccepted bool, collection string) (string, error) {
	if !proofAccepted {
		return "", core.ErrProofRejected
	}

	now := g.now()
	claims := AnonymousClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "anonymous-member",
			Issuer:    g.issuer,
			ID:        uuid.New().String(),
			Audience:  jwt.ClaimStrings{AudienceAnonymous},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
		},
		AccessLevel:          string(core.AccessPremiumContent),
		GrantType:            GrantTypeMembership,
		MembershipCollection: collection,
		Anonymous:            true,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signed, err := token.SignedString(g.signKey)
	if err != nil {
		return "", fmt.Errorf("sign anonymous grant: %w", err)
	}
	return signed, nil
}

// Verify parses a grant token and asserts the anonymous premium claims.
func (g *AnonymousGranter) Verify(tokenStr string) (*core.AnonymousGrant, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &AnonymousClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &g.signKey.PublicKey, nil
	}, jwt.WithAudience(AudienceAnonymous), jwt.WithIssuer(g.issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, core.ErrTokenExpired
		}
		return nil, fmt.Errorf("parse anonymous grant: %w", core.ErrInvalidToken)
	}

	claims, ok := token.Claims.(*AnonymousClaims)
	if !ok || !token.Valid {
		return nil, core.ErrInvalidToken
	}
	if !claims.Anonymous || claims.AccessLevel != string(core.AccessPremiumContent) {
		return nil, core.ErrAccessLevelMismatch
	}

	return &core.AnonymousGrant{
		AccessLevel:          core.AccessLevel(claims.AccessLevel),
		GrantType:            claims.GrantType,
		MembershipCollection: claims.MembershipCollection,
		IssuedAt:             claims.IssuedAt.Time,
		ExpiresAt:            claims.ExpiresAt.Time,
		Anonymous:            claims.Anonymous,
	}, nil
}
