package eth

import (
	"regexp"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dtp-labs/trustgate/core"
)

var didEthrPattern = regexp.MustCompile(`^did:ethr:(0x[0-9a-fA-F]{40})$`)

// FormatDID returns the did:ethr identity for an address, using the EIP-55
// checksummed form.
func FormatDID(address common.Address) string {
	return "did:ethr:" + address.Hex()
}

// ParseDID extracts the address from a did:ethr identity string.
func ParseDID(did string) (common.Address, error) {
	m := didEthrPattern.FindStringSubmatch(did)
	if m == nil {
		return common.Address{}, core.ErrInvalidDID
	}
	return common.HexToAddress(m[1]), nil
}
