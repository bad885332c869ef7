package credential

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"
	"sync"

	"github.com/dtp-labs/trustgate/ports"
)

// StaticResolver resolves issuer DIDs from a fixed in-process key set. It
// stands in for a networked DID resolver in deployments where the issuer set
// is configured up front.
type StaticResolver struct {
	mu   sync.RWMutex
	keys map[string]*ecdsa.PublicKey
}

// NewStaticResolver creates an empty static resolver.
func NewStaticResolver() *StaticResolver {
	return &StaticResolver{keys: make(map[string]*ecdsa.PublicKey)}
}

var _ ports.KeyResolver = (*StaticResolver)(nil)

// Register associates a DID with its credential signing key.
func (r *StaticResolver) Register(did string, key *ecdsa.PublicKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[strings.ToLower(did)] = key
}

// ResolveKey returns the registered key for the DID.
func (r *StaticResolver) ResolveKey(_ context.Context, did string) (*ecdsa.PublicKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key, ok := r.keys[strings.ToLower(did)]
	if !ok {
		return nil, fmt.Errorf("no key registered for %s", did)
	}
	return key, nil
}
