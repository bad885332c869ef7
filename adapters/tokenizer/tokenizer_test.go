package tokenizer

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtp-labs/trustgate/core"
)

const testIssuer = "decentralized-trust-platform"

func newSigningKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

func TestSessionMintVerifyRoundTrip(t *testing.T) {
	tk := NewSessionTokenizer(newSigningKey(t), testIssuer, 24*time.Hour)

	session := core.Session{
		SubjectAddress: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		DID:            "did:ethr:0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		AccessLevel:    core.AccessStandard,
		Role:           "CTO",
		Group:          "Engineering",
	}

	token, err := tk.Mint(session)
	require.NoError(t, err)

	verified, err := tk.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, session.SubjectAddress, verified.SubjectAddress)
	assert.Equal(t, session.DID, verified.DID)
	assert.Equal(t, core.AccessStandard, verified.AccessLevel)
	assert.Equal(t, testIssuer, verified.Issuer)
	assert.Equal(t, "CTO", verified.Role)
	assert.True(t, verified.PremiumGrantedAt.IsZero())
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), verified.ExpiresAt, time.Minute)
}

func TestSessionMintRequiresAddress(t *testing.T) {
	tk := NewSessionTokenizer(newSigningKey(t), testIssuer, 24*time.Hour)

	_, err := tk.Mint(core.Session{})
	assert.ErrorIs(t, err, core.ErrInvalidAddress)
}

func TestSessionVerifyExpired(t *testing.T) {
	tk := NewSessionTokenizer(newSigningKey(t), testIssuer, 24*time.Hour)
	tk.now = func() time.Time { return time.Now().Add(-25 * time.Hour) }

	token, err := tk.Mint(core.Session{SubjectAddress: "0xabc0000000000000000000000000000000000abc"})
	require.NoError(t, err)

	tk.now = time.Now
	_, err = tk.Verify(token)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestSessionVerifyWrongKey(t *testing.T) {
	tk := NewSessionTokenizer(newSigningKey(t), testIssuer, 24*time.Hour)
	other := NewSessionTokenizer(newSigningKey(t), testIssuer, 24*time.Hour)

	token, err := tk.Mint(core.Session{SubjectAddress: "0xabc0000000000000000000000000000000000abc"})
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.ErrorIs(t, err, core.ErrInvalidToken)

	_, err = tk.Verify("not.a.token")
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestUpgradeCarriesIdentity(t *testing.T) {
	tk := NewSessionTokenizer(newSigningKey(t), testIssuer, 24*time.Hour)

	standard := core.Session{
		SubjectAddress: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		DID:            "did:ethr:0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		AccessLevel:    core.AccessStandard,
	}
	token, err := tk.Mint(standard)
	require.NoError(t, err)
	session, err := tk.Verify(token)
	require.NoError(t, err)

	upgradedToken, err := tk.Upgrade(session)
	require.NoError(t, err)
	upgraded, err := tk.Verify(upgradedToken)
	require.NoError(t, err)

	assert.Equal(t, core.AccessPremium, upgraded.AccessLevel)
	assert.Equal(t, standard.SubjectAddress, upgraded.SubjectAddress)
	assert.Equal(t, standard.DID, upgraded.DID)
	assert.False(t, upgraded.PremiumGrantedAt.IsZero())
}

func TestUpgradeIdempotence(t *testing.T) {
	tk := NewSessionTokenizer(newSigningKey(t), testIssuer, 24*time.Hour)

	session := &core.Session{
		SubjectAddress: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		AccessLevel:    core.AccessStandard,
	}

	first, err := tk.Upgrade(session)
	require.NoError(t, err)
	second, err := tk.Upgrade(session)
	require.NoError(t, err)

	for _, token := range []string{first, second} {
		verified, err := tk.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, core.AccessPremium, verified.AccessLevel)
		assert.Equal(t, session.SubjectAddress, verified.SubjectAddress)
	}
}

func TestAnonymousMintVerify(t *testing.T) {
	g := NewAnonymousGranter(newSigningKey(t), testIssuer, time.Hour)

	token, err := g.Mint(true, "corporate_excellence_2025")
	require.NoError(t, err)

	grant, err := g.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, core.AccessPremiumContent, grant.AccessLevel)
	assert.Equal(t, GrantTypeMembership, grant.GrantType)
	assert.Equal(t, "corporate_excellence_2025", grant.MembershipCollection)
	assert.True(t, grant.Anonymous)
	assert.WithinDuration(t, time.Now().Add(time.Hour), grant.ExpiresAt, time.Minute)
}

func TestAnonymousMintRejectedProof(t *testing.T) {
	g := NewAnonymousGranter(newSigningKey(t), testIssuer, time.Hour)

	_, err := g.Mint(false, "corporate_excellence_2025")
	assert.ErrorIs(t, err, core.ErrProofRejected)
}

func TestAnonymousVerifyRejectsSessionToken(t *testing.T) {
	key := newSigningKey(t)
	tk := NewSessionTokenizer(key, testIssuer, 24*time.Hour)
	g := NewAnonymousGranter(key, testIssuer, time.Hour)

	sessionToken, err := tk.Mint(core.Session{SubjectAddress: "0xabc0000000000000000000000000000000000abc"})
	require.NoError(t, err)

	// Same key, wrong audience and claim shape.
	_, err = g.Verify(sessionToken)
	assert.Error(t, err)
}

func TestAnonymousGrantCarriesNoIdentity(t *testing.T) {
	fixtureAddresses := []string{
		"0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		"0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
	}

	g := NewAnonymousGranter(newSigningKey(t), testIssuer, time.Hour)
	token, err := g.Mint(true, "corporate_excellence_2025")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)

	body := strings.ToLower(string(payload))
	for _, address := range fixtureAddresses {
		assert.NotContains(t, body, strings.ToLower(address))
		assert.NotContains(t, body, strings.ToLower("did:ethr:"+address))
	}
	assert.NotContains(t, body, "subjectaddress")
}
