package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	resetKeyPrefix      = "password_reset:"
	resetGrantKeyPrefix = "password_reset_verified:"
)

// verifyResetScript consumes a matching code and leaves a grant behind.
//   0 – nothing staged, 1 – mismatch (code kept), 2 – verified
var verifyResetScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then
    return 0
end
if v ~= ARGV[1] then
    return 1
end
redis.call('DEL', KEYS[1])
redis.call('SET', KEYS[2], '1', 'PX', ARGV[2])
return 2
`)

// authorizeResetScript accepts a still-staged matching code or an earlier grant.
var authorizeResetScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if v then
    if v ~= ARGV[1] then
        return 1
    end
    return 2
end
if redis.call('EXISTS', KEYS[2]) == 1 then
    return 2
end
return 0
`)

// ResetStore keeps password-reset codes, separate from signup codes.
type ResetStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewResetStore(rdb *redis.Client, ttl time.Duration) *ResetStore {
	return &ResetStore{rdb: rdb, ttl: ttl}
}

func (s *ResetStore) keys(email string) []string {
	e := NormalizeEmail(email)
	return []string{resetKeyPrefix + e, resetGrantKeyPrefix + e}
}

// Stage writes the reset code for email, replacing any earlier one.
func (s *ResetStore) Stage(ctx context.Context, email, code string) error {
	if err := s.rdb.Set(ctx, s.keys(email)[0], code, s.ttl).Err(); err != nil {
		return fmt.Errorf("reset store: stage: %w", err)
	}
	return nil
}

// Verify consumes a matching code and records that email passed verification.
func (s *ResetStore) Verify(ctx context.Context, email, code string) error {
	n, err := verifyResetScript.Run(ctx, s.rdb, s.keys(email), code, s.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("reset store: verify: %w", err)
	}
	return resetOutcome(n)
}

// Authorize checks that a password change for email may proceed: a staged
// code must match code, and without a staged code a prior Verify must exist.
func (s *ResetStore) Authorize(ctx context.Context, email, code string) error {
	n, err := authorizeResetScript.Run(ctx, s.rdb, s.keys(email), code).Int()
	if err != nil {
		return fmt.Errorf("reset store: authorize: %w", err)
	}
	return resetOutcome(n)
}

// Clear removes both the code and the grant.
func (s *ResetStore) Clear(ctx context.Context, email string) error {
	if err := s.rdb.Del(ctx, s.keys(email)...).Err(); err != nil {
		return fmt.Errorf("reset store: clear: %w", err)
	}
	return nil
}

func resetOutcome(n int) error {
	switch n {
	case 0:
		return ErrStagedNotFound
	case 1:
		return ErrCodeMismatch
	case 2:
		return nil
	}
	return errors.New("reset store: unexpected script reply")
}
