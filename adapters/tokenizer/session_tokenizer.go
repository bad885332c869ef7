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

// SessionTokenizer mints and validates identified session tokens as ES256
// JWTs signed with a server-held key.
type SessionTokenizer struct {
	signKey *ecdsa.PrivateKey
	issuer  string
	ttl     time.Duration
	now     func() time.Time
}

// NewSessionTokenizer creates a session tokenizer.
func NewSessionTokenizer(signKey *ecdsa.PrivateKey, issuer string, ttl time.Duration) *SessionTokenizer {
	return &SessionTokenizer{
		signKey: signKey,
		issuer:  issuer,
		ttl:     ttl,
		now:     time.Now,
	}
}

var _ ports.SessionTokenizer = (*SessionTokenizer)(nil)

// Mint serializes and signs the session. A zero IssuedAt/ExpiresAt is
// stamped with now and now+ttl.
func (s *SessionTokenizer) Mint(session core.Session) (string, error) {
	if session.SubjectAddress == "" {
		return "", core.ErrInvalidAddress
	}

	issuedAt := session.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = s.now()
	}
	expiresAt := session.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = issuedAt.Add(s.ttl)
	}
	accessLevel := session.AccessLevel
	if accessLevel == "" {
		accessLevel = core.AccessStandard
	}

	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.SubjectAddress,
			Issuer:    s.issuer,
			ID:        uuid.New().String(),
			Audience:  jwt.ClaimStrings{AudienceSession},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SubjectAddress:     session.SubjectAddress,
		DID:                session.DID,
		AccessLevel:        string(accessLevel),
		CredentialVerified: session.CredentialVerified,
		Role:               session.Role,
		Group:              session.Group,
		Name:               session.Name,
		Email:              session.Email,
	}
	if !session.PremiumGrantedAt.IsZero() {
		claims.PremiumGrantedAt = jwt.NewNumericDate(session.PremiumGrantedAt)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signed, err := token.SignedString(s.signKey)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a session token.
func (s *SessionTokenizer) Verify(tokenStr string) (*core.Session, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &s.signKey.PublicKey, nil
	}, jwt.WithAudience(AudienceSession), jwt.WithIssuer(s.issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, core.ErrTokenExpired
		}
		return nil, fmt.Errorf("parse session token: %w", core.ErrInvalidToken)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, core.ErrInvalidToken
	}

	session := &core.Session{
		SubjectAddress:     claims.SubjectAddress,
		DID:                claims.DID,
		AccessLevel:        core.AccessLevel(claims.AccessLevel),
		IssuedAt:           claims.IssuedAt.Time,
		ExpiresAt:          claims.ExpiresAt.Time,
		Issuer:             claims.Issuer,
		CredentialVerified: claims.CredentialVerified,
		Role:               claims.Role,
		Group:              claims.Group,
		Name:               claims.Name,
		Email:              claims.Email,
	}
	if claims.PremiumGrantedAt != nil {
		session.PremiumGrantedAt = claims.PremiumGrantedAt.Time
	}
	return session, nil
}

// Upgrade mints a premium token from an existing session. Identity fields
// and credential passengers are carried over unchanged; issuance and expiry
// are re-stamped. The superseded token is not revoked and remains valid
// until its own expiry.
func (s *SessionTokenizer) Upgrade(existing *core.Session) (string, error) {
	now := s.now()

	upgraded := *existing
	upgraded.AccessLevel = core.AccessPremium
	upgraded.PremiumGrantedAt = now
	upgraded.IssuedAt = now
	upgraded.ExpiresAt = now.Add(s.ttl)

	return s.Mint(upgraded)
}
