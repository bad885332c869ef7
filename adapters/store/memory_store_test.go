package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtp-labs/trustgate/core"
)

func newTestStore() *MemoryStore {
	return NewMemoryStore(5*time.Minute, 30*time.Second)
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	challenge, err := s.Create(ctx, &core.BoundContext{RequesterID: "EMP001", RequestKind: "portal_access"})
	require.NoError(t, err)
	assert.NotEmpty(t, challenge.ID)
	assert.GreaterOrEqual(t, len(challenge.Secret), 32)
	assert.False(t, challenge.Used)

	loaded, err := s.Get(ctx, challenge.ID)
	require.NoError(t, err)
	assert.Equal(t, challenge.ID, loaded.ID)
	assert.Equal(t, challenge.Secret, loaded.Secret)
	require.NotNil(t, loaded.Bound)
	assert.Equal(t, "EMP001", loaded.Bound.RequesterID)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrChallengeNotFound)
}

func TestTryConsumeSingleUse(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	challenge, err := s.Create(ctx, nil)
	require.NoError(t, err)

	result := &core.ChallengeResult{Token: "tok", SubjectAddress: "0xabc", DID: "did:ethr:0xabc"}
	consumed, err := s.TryConsume(ctx, challenge.ID, result)
	require.NoError(t, err)
	assert.True(t, consumed.Used)
	require.NotNil(t, consumed.Result)
	assert.Equal(t, "tok", consumed.Result.Token)

	_, err = s.TryConsume(ctx, challenge.ID, result)
	assert.ErrorIs(t, err, core.ErrChallengeUsed)
}

func TestTryConsumeConcurrent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	challenge, err := s.Create(ctx, nil)
	require.NoError(t, err)

	const workers = 32
	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = s.TryConsume(ctx, challenge.ID, &core.ChallengeResult{Token: "tok"})
		}(i)
	}
	wg.Wait()

	var successes, alreadyUsed int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case assert.ErrorIs(t, err, core.ErrChallengeUsed):
			alreadyUsed++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, alreadyUsed)
}

func TestTryConsumeExpired(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	challenge, err := s.Create(ctx, nil)
	require.NoError(t, err)

	// Advance the clock past the TTL.
	s.now = func() time.Time { return time.Now().Add(6 * time.Minute) }

	_, err = s.TryConsume(ctx, challenge.ID, &core.ChallengeResult{})
	assert.ErrorIs(t, err, core.ErrChallengeExpired)
}

func TestFindByFragment(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	challenge, err := s.Create(ctx, nil)
	require.NoError(t, err)

	byID, err := s.FindByFragment(ctx, challenge.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, challenge.ID, byID.ID)

	bySecret, err := s.FindByFragment(ctx, challenge.Secret[:12])
	require.NoError(t, err)
	assert.Equal(t, challenge.ID, bySecret.ID)

	_, err = s.FindByFragment(ctx, "no-such-fragment")
	assert.ErrorIs(t, err, core.ErrChallengeNotFound)

	_, err = s.FindByFragment(ctx, "")
	assert.ErrorIs(t, err, core.ErrChallengeNotFound)
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	expired, err := s.Create(ctx, nil)
	require.NoError(t, err)

	consumed, err := s.Create(ctx, nil)
	require.NoError(t, err)
	_, err = s.TryConsume(ctx, consumed.ID, &core.ChallengeResult{Token: "tok"})
	require.NoError(t, err)

	live, err := s.Create(ctx, nil)
	require.NoError(t, err)

	// Past the TTL for the first challenge and past the linger window for
	// the consumed one, but before the third was created.
	s.now = func() time.Time { return live.CreatedAt.Add(time.Minute) }
	s.challenges[expired.ID].ExpiresAt = live.CreatedAt.Add(-time.Second)
	s.challenges[consumed.ID].UsedAt = live.CreatedAt.Add(-time.Minute)
	s.challenges[consumed.ID].ExpiresAt = live.CreatedAt.Add(5 * time.Minute)

	require.NoError(t, s.Sweep(ctx))

	_, err = s.Get(ctx, expired.ID)
	assert.ErrorIs(t, err, core.ErrChallengeNotFound)
	_, err = s.Get(ctx, consumed.ID)
	assert.ErrorIs(t, err, core.ErrChallengeNotFound)
	_, err = s.Get(ctx, live.ID)
	assert.NoError(t, err)
}

func TestConsumedChallengeLingersForPolling(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	challenge, err := s.Create(ctx, nil)
	require.NoError(t, err)
	_, err = s.TryConsume(ctx, challenge.ID, &core.ChallengeResult{Token: "tok"})
	require.NoError(t, err)

	require.NoError(t, s.Sweep(ctx))

	loaded, err := s.Get(ctx, challenge.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Result)
	assert.Equal(t, "tok", loaded.Result.Token)
}
