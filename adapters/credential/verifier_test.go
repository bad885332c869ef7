package credential

import (
	"context"
	"crypto/ecdsa"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtp-labs/trustgate/core"
	"github.com/dtp-labs/trustgate/internal/eth"
)

type vcFixture struct {
	issuerDID  string
	issuerKey  *ecdsa.PrivateKey
	subjectDID string
	resolver   *StaticResolver
	verifier   *Verifier
}

func newVCFixture(t *testing.T) *vcFixture {
	t.Helper()

	issuerKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	subjectKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	issuerDID := eth.FormatDID(crypto.PubkeyToAddress(issuerKey.PublicKey))
	subjectDID := eth.FormatDID(crypto.PubkeyToAddress(subjectKey.PublicKey))

	resolver := NewStaticResolver()
	resolver.Register(issuerDID, &issuerKey.PublicKey)

	return &vcFixture{
		issuerDID:  issuerDID,
		issuerKey:  issuerKey,
		subjectDID: subjectDID,
		resolver:   resolver,
		verifier:   NewVerifier(resolver),
	}
}

func (f *vcFixture) mintVC(t *testing.T, mutate func(*credentialClaims)) string {
	t.Helper()

	claims := &credentialClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    f.issuerDID,
			Subject:   f.subjectDID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
		VC: &vcEnvelope{
			Context: []string{"https://www.w3.org/2018/credentials/v1"},
			Type:    []string{"VerifiableCredential", "EmployeeCredential"},
			Issuer:  f.issuerDID,
			CredentialSubject: credentialSubject{
				ID:          f.subjectDID,
				Role:        "Senior Designer",
				Department:  "Design",
				Name:        "Gracian",
				Email:       "gracian@company.com",
				RequesterID: "EMP004",
			},
		},
	}
	if mutate != nil {
		mutate(claims)
	}

	token, err := jwt.NewWithClaims(MethodES256K, claims).SignedString(f.issuerKey)
	require.NoError(t, err)
	return token
}

func TestVerifyCredential(t *testing.T) {
	f := newVCFixture(t)
	token := f.mintVC(t, nil)

	vc, err := f.verifier.Verify(context.Background(), token, f.subjectDID, []string{f.issuerDID})
	require.NoError(t, err)
	assert.Equal(t, f.issuerDID, vc.IssuerIdentity)
	assert.Equal(t, f.subjectDID, vc.SubjectIdentity)
	assert.Equal(t, "Senior Designer", vc.Claims.Role)
	assert.Equal(t, "Design", vc.Claims.Group)
	assert.Equal(t, "EMP004", vc.Claims.RequesterID)
	assert.False(t, vc.ExpirationDate.IsZero())
}

func TestVerifyCredentialSubjectMismatch(t *testing.T) {
	f := newVCFixture(t)
	token := f.mintVC(t, nil)

	otherDID := "did:ethr:0x0000000000000000000000000000000000000042"
	_, err := f.verifier.Verify(context.Background(), token, otherDID, []string{f.issuerDID})
	assert.ErrorIs(t, err, core.ErrCredentialSubjectMismatch)
}

func TestVerifyCredentialSubjectCaseInsensitiveAddress(t *testing.T) {
	f := newVCFixture(t)
	token := f.mintVC(t, nil)

	lowered := "did:ethr:" + f.subjectDID[len("did:ethr:"):]
	_, err := f.verifier.Verify(context.Background(), token, lowered, []string{f.issuerDID})
	assert.NoError(t, err)
}

func TestVerifyCredentialIssuerNotAllowed(t *testing.T) {
	f := newVCFixture(t)
	token := f.mintVC(t, nil)

	_, err := f.verifier.Verify(context.Background(), token, f.subjectDID, []string{"did:ethr:0x0000000000000000000000000000000000000001"})
	assert.ErrorIs(t, err, core.ErrCredentialIssuerNotAllowed)
}

func TestVerifyCredentialExpired(t *testing.T) {
	f := newVCFixture(t)
	token := f.mintVC(t, func(c *credentialClaims) {
		c.IssuedAt = jwt.NewNumericDate(time.Now().Add(-48 * time.Hour))
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-24 * time.Hour))
	})

	_, err := f.verifier.Verify(context.Background(), token, f.subjectDID, []string{f.issuerDID})
	assert.ErrorIs(t, err, core.ErrCredentialExpired)
}

func TestVerifyCredentialBadSignature(t *testing.T) {
	f := newVCFixture(t)

	// The resolver knows the issuer DID but returns a key the token was not
	// signed with.
	rogueKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	f.resolver.Register(f.issuerDID, &rogueKey.PublicKey)

	token := f.mintVC(t, nil)
	_, err = f.verifier.Verify(context.Background(), token, f.subjectDID, []string{f.issuerDID})
	assert.ErrorIs(t, err, core.ErrCredentialInvalid)
}

func TestVerifyCredentialMalformed(t *testing.T) {
	f := newVCFixture(t)

	_, err := f.verifier.Verify(context.Background(), "not-a-jwt", f.subjectDID, []string{f.issuerDID})
	assert.ErrorIs(t, err, core.ErrCredentialInvalid)

	// Structurally valid JWT without a vc envelope.
	bare, err := jwt.NewWithClaims(MethodES256K, &credentialClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    f.issuerDID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(f.issuerKey)
	require.NoError(t, err)

	_, err = f.verifier.Verify(context.Background(), bare, f.subjectDID, []string{f.issuerDID})
	assert.ErrorIs(t, err, core.ErrCredentialInvalid)
}

func TestVerifyCredentialUnknownIssuer(t *testing.T) {
	f := newVCFixture(t)
	token := f.mintVC(t, func(c *credentialClaims) {
		c.VC.Issuer = "did:ethr:0x00000000000000000000000000000000000000aa"
	})

	// Resolution fails before the allow-list is ever consulted.
	_, err := f.verifier.Verify(context.Background(), token, f.subjectDID, []string{f.issuerDID})
	assert.ErrorIs(t, err, core.ErrCredentialInvalid)
}
