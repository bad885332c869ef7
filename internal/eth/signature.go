package eth

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/dtp-labs/trustgate/core"
)

// personalHash hashes a message with the personal_sign prefix, matching what
// wallets sign when asked to sign plain text.
func personalHash(message string) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return crypto.Keccak256([]byte(prefixed))
}

// Recover performs ECDSA public key recovery over secp256k1 and returns the
// address that produced the signature. Pure and stateless.
func Recover(message, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("decode signature: %w", core.ErrInvalidSignature)
	}
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes: %w", crypto.SignatureLength, core.ErrInvalidSignature)
	}

	// Wallets encode the recovery id as 27/28; crypto.SigToPub wants 0/1.
	v := make([]byte, len(sig))
	copy(v, sig)
	if v[crypto.RecoveryIDOffset] >= 27 {
		v[crypto.RecoveryIDOffset] -= 27
	}
	if v[crypto.RecoveryIDOffset] > 1 {
		return common.Address{}, fmt.Errorf("invalid recovery id: %w", core.ErrInvalidSignature)
	}

	pub, err := crypto.SigToPub(personalHash(message), v)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key: %w", core.ErrInvalidSignature)
	}

	return crypto.PubkeyToAddress(*pub), nil
}

// Verify reports whether signature over message was produced by
// claimedAddress. Comparison is case-insensitive on the hex form.
func Verify(message, signature, claimedAddress string) bool {
	recovered, err := Recover(message, signature)
	if err != nil {
		return false
	}
	return strings.EqualFold(recovered.Hex(), claimedAddress)
}
