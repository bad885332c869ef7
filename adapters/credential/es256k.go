package credential

import (
	"crypto/ecdsa"
	"crypto/sha256"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang-jwt/jwt/v5"
)

// SigningMethodES256K implements JWS ES256K (secp256k1 with SHA-256) on top
// of go-ethereum's secp256k1 bindings. golang-jwt only ships the NIST
// curves, and credentials issued against did:ethr identities are signed with
// the same curve as the identity key.
type SigningMethodES256K struct{}

// MethodES256K is the shared ES256K signing method instance.
var MethodES256K = &SigningMethodES256K{}

func init() {
	jwt.RegisterSigningMethod(MethodES256K.Alg(), func() jwt.SigningMethod {
		return MethodES256K
	})
}

// Alg returns the JWS algorithm identifier.
func (m *SigningMethodES256K) Alg() string { return "ES256K" }

// Verify checks an R||S signature over the signing string. A trailing
// recovery byte, as produced by some wallet libraries, is tolerated.
func (m *SigningMethodES256K) Verify(signingString string, sig []byte, key interface{}) error {
	pub, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return jwt.ErrInvalidKeyType
	}
	if len(sig) != 64 && len(sig) != 65 {
		return jwt.ErrSignatureInvalid
	}

	hash := sha256.Sum256([]byte(signingString))
	if !crypto.VerifySignature(crypto.FromECDSAPub(pub), hash[:], sig[:64]) {
		return jwt.ErrSignatureInvalid
	}
	return nil
}

// Sign produces an R||S signature over the signing string.
func (m *SigningMethodES256K) Sign(signingString string, key interface{}) ([]byte, error) {
	priv, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, jwt.ErrInvalidKeyType
	}

	hash := sha256.Sum256([]byte(signingString))
	sig, err := crypto.Sign(hash[:], priv)
	if err != nil {
		return nil, err
	}
	return sig[:64], nil
}
