package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dtp-labs/trustgate/core"
	"github.com/dtp-labs/trustgate/ports"
)

// MemoryStore is an in-memory implementation of the ChallengeStore backed by
// a mutex-guarded map. Suitable for single-instance deployments and tests.
type MemoryStore struct {
	mu         sync.Mutex
	challenges map[string]*core.Challenge

	ttl    time.Duration
	linger time.Duration
	now    func() time.Time
}

// NewMemoryStore creates a new in-memory challenge store.
func NewMemoryStore(ttl, linger time.Duration) *MemoryStore {
	return &MemoryStore{
		challenges: make(map[string]*core.Challenge),
		ttl:        ttl,
		linger:     linger,
		now:        time.Now,
	}
}

var _ ports.ChallengeStore = (*MemoryStore)(nil)

// newSecret returns a hex-encoded random value with at least 128 bits of
// entropy.
func newSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Create generates and stores a fresh challenge.
func (s *MemoryStore) Create(_ context.Context, bound *core.BoundContext) (*core.Challenge, error) {
	secret, err := newSecret()
	if err != nil {
		return nil, err
	}

	now := s.now()
	challenge := &core.Challenge{
		ID:        uuid.New().String(),
		Secret:    secret,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
		Bound:     bound,
	}

	s.mu.Lock()
	s.challenges[challenge.ID] = challenge
	s.mu.Unlock()

	return clone(challenge), nil
}

// Get returns the challenge with the given id.
func (s *MemoryStore) Get(_ context.Context, id string) (*core.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	challenge, ok := s.challenges[id]
	if !ok {
		return nil, core.ErrChallengeNotFound
	}
	return clone(challenge), nil
}

// TryConsume atomically marks the challenge as used. Only one of any number
// of concurrent callers for the same id observes success.
func (s *MemoryStore) TryConsume(_ context.Context, id string, result *core.ChallengeResult) (*core.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	challenge, ok := s.challenges[id]
	if !ok {
		return nil, core.ErrChallengeNotFound
	}
	if challenge.Used {
		return nil, core.ErrChallengeUsed
	}
	if challenge.Expired(s.now()) {
		return nil, core.ErrChallengeExpired
	}

	challenge.Used = true
	challenge.UsedAt = s.now()
	challenge.Result = result

	return clone(challenge), nil
}

// FindByFragment returns a challenge whose id or secret contains fragment.
// Linear scan over outstanding challenges.
func (s *MemoryStore) FindByFragment(_ context.Context, fragment string) (*core.Challenge, error) {
	if fragment == "" {
		return nil, core.ErrChallengeNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, challenge := range s.challenges {
		if strings.Contains(challenge.ID, fragment) || strings.Contains(challenge.Secret, fragment) {
			return clone(challenge), nil
		}
	}
	return nil, core.ErrChallengeNotFound
}

// Sweep deletes expired challenges and consumed challenges past the linger
// window.
func (s *MemoryStore) Sweep(_ context.Context) error {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, challenge := range s.challenges {
		if challenge.Expired(now) || (challenge.Used && now.Sub(challenge.UsedAt) > s.linger) {
			delete(s.challenges, id)
		}
	}
	return nil
}

func clone(c *core.Challenge) *core.Challenge {
	cp := *c
	if c.Result != nil {
		result := *c.Result
		cp.Result = &result
	}
	if c.Bound != nil {
		bound := *c.Bound
		cp.Bound = &bound
	}
	return &cp
}
