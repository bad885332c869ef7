package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dtp-labs/trustgate/core"
	"github.com/dtp-labs/trustgate/ports"
)

// RedisStore is a Redis implementation of the ChallengeStore for
// multi-replica deployments. Consumption is made atomic with an optimistic
// WATCH transaction; key TTLs bound how long entries survive, so Sweep is
// mostly delegated to Redis eviction.
type RedisStore struct {
	client *redis.Client
	prefix string

	ttl    time.Duration
	linger time.Duration
	now    func() time.Time
}

// NewRedisStore creates a Redis-backed challenge store.
func NewRedisStore(client *redis.Client, ttl, linger time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "trustgate:challenge:",
		ttl:    ttl,
		linger: linger,
		now:    time.Now,
	}
}

var _ ports.ChallengeStore = (*RedisStore)(nil)

type challengeRecord struct {
	ID        string                `json:"id"`
	Secret    string                `json:"secret"`
	CreatedAt time.Time             `json:"createdAt"`
	ExpiresAt time.Time             `json:"expiresAt"`
	Used      bool                  `json:"used"`
	UsedAt    time.Time             `json:"usedAt,omitempty"`
	Result    *core.ChallengeResult `json:"result,omitempty"`
	Bound     *core.BoundContext    `json:"bound,omitempty"`
}

func toRecord(c *core.Challenge) challengeRecord {
	return challengeRecord{
		ID:        c.ID,
		Secret:    c.Secret,
		CreatedAt: c.CreatedAt,
		ExpiresAt: c.ExpiresAt,
		Used:      c.Used,
		UsedAt:    c.UsedAt,
		Result:    c.Result,
		Bound:     c.Bound,
	}
}

func (r challengeRecord) toChallenge() *core.Challenge {
	return &core.Challenge{
		ID:        r.ID,
		Secret:    r.Secret,
		CreatedAt: r.CreatedAt,
		ExpiresAt: r.ExpiresAt,
		Used:      r.Used,
		UsedAt:    r.UsedAt,
		Result:    r.Result,
		Bound:     r.Bound,
	}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

// Create generates and stores a fresh challenge. The key outlives the TTL by
// the linger window so consumed challenges stay pollable.
func (s *RedisStore) Create(ctx context.Context, bound *core.BoundContext) (*core.Challenge, error) {
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

	payload, err := json.Marshal(toRecord(challenge))
	if err != nil {
		return nil, fmt.Errorf("marshal challenge: %w", err)
	}

	if err := s.client.Set(ctx, s.key(challenge.ID), payload, s.ttl+s.linger).Err(); err != nil {
		return nil, fmt.Errorf("store challenge: %w", err)
	}

	return challenge, nil
}

// Get returns the challenge with the given id.
func (s *RedisStore) Get(ctx context.Context, id string) (*core.Challenge, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrChallengeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load challenge: %w", err)
	}

	var record challengeRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode challenge: %w", err)
	}
	return record.toChallenge(), nil
}

// TryConsume atomically marks the challenge as used. A concurrent consumer
// aborts the transaction, which is reported as core.ErrChallengeUsed.
func (s *RedisStore) TryConsume(ctx context.Context, id string, result *core.ChallengeResult) (*core.Challenge, error) {
	key := s.key(id)
	var consumed *core.Challenge

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return core.ErrChallengeNotFound
		}
		if err != nil {
			return fmt.Errorf("load challenge: %w", err)
		}

		var record challengeRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return fmt.Errorf("decode challenge: %w", err)
		}
		if record.Used {
			return core.ErrChallengeUsed
		}
		if s.now().After(record.ExpiresAt) {
			return core.ErrChallengeExpired
		}

		record.Used = true
		record.UsedAt = s.now()
		record.Result = result

		payload, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal challenge: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.linger)
			return nil
		})
		if err != nil {
			return err
		}

		consumed = record.toChallenge()
		return nil
	}

	err := s.client.Watch(ctx, txn, key)
	if errors.Is(err, redis.TxFailedErr) {
		// The key changed between read and write. Re-read to report what
		// actually happened to it.
		current, getErr := s.Get(ctx, id)
		return nil, consumeConflictError(current, getErr, s.now())
	}
	if err != nil {
		return nil, err
	}
	return consumed, nil
}

// consumeConflictError classifies an aborted consume transaction from a
// re-read of the challenge. A conflict with no better explanation means a
// concurrent caller won the consume race.
func consumeConflictError(challenge *core.Challenge, readErr error, now time.Time) error {
	switch {
	case errors.Is(readErr, core.ErrChallengeNotFound):
		return core.ErrChallengeNotFound
	case readErr != nil:
		return core.ErrChallengeUsed
	case challenge.Used:
		return core.ErrChallengeUsed
	case challenge.Expired(now):
		return core.ErrChallengeExpired
	default:
		return core.ErrChallengeUsed
	}
}

// FindByFragment scans outstanding challenges for one whose id or secret
// contains fragment. O(n) over live keys.
func (s *RedisStore) FindByFragment(ctx context.Context, fragment string) (*core.Challenge, error) {
	if fragment == "" {
		return nil, core.ErrChallengeNotFound
	}

	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load challenge: %w", err)
		}

		var record challengeRecord
		if err := json.Unmarshal(data, &record); err != nil {
			continue
		}
		if strings.Contains(record.ID, fragment) || strings.Contains(record.Secret, fragment) {
			return record.toChallenge(), nil
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan challenges: %w", err)
	}
	return nil, core.ErrChallengeNotFound
}

// Sweep is a no-op for the Redis store: creation and consumption set key
// TTLs that enforce the expiry and linger windows server-side.
func (s *RedisStore) Sweep(context.Context) error {
	return nil
}
