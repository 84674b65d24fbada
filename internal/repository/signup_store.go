package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cleft-care-backend/internal/model"
)

const signupKeyPrefix = "verification_code:"

// consumeSignupScript compares the staged code and, only on a match, returns
// the payload and deletes the hash in the same step.
//   returns {0, ""}      – nothing staged
//   returns {1, ""}      – code mismatch, record untouched
//   returns {2, payload} – consumed
var consumeSignupScript = redis.NewScript(`
local code = redis.call('HGET', KEYS[1], 'code')
if not code then
    return {0, ''}
end
if code ~= ARGV[1] then
    return {1, ''}
end
local payload = redis.call('HGET', KEYS[1], 'payload')
redis.call('DEL', KEYS[1])
return {2, payload or ''}
`)

// stageCodeIfAbsentScript stages a code-only record unless one already exists.
var stageCodeIfAbsentScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
    return 0
end
redis.call('HSET', KEYS[1], 'code', ARGV[1])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return 1
`)

// restoreSignupScript puts a consumed record back unless a new one was
// staged in the meantime.
var restoreSignupScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
    return 0
end
redis.call('HSET', KEYS[1], 'code', ARGV[1], 'payload', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// discardCodeScript deletes the record only while it still holds ARGV[1].
var discardCodeScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'code') == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`)

// SignupStore keeps pending signups in Redis hashes keyed by email, with
// fields "code" and "payload" (JSON model.PendingSignup).
type SignupStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSignupStore(rdb *redis.Client, ttl time.Duration) *SignupStore {
	return &SignupStore{rdb: rdb, ttl: ttl}
}

func (s *SignupStore) key(email string) string { return signupKeyPrefix + NormalizeEmail(email) }

// Stage writes (or replaces) the pending signup for email.
func (s *SignupStore) Stage(ctx context.Context, email, code string, p model.PendingSignup) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("signup store: encode: %w", err)
	}
	key := s.key(email)
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, "code", code, "payload", payload)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("signup store: stage: %w", err)
	}
	return nil
}

// StageCodeIfAbsent stages a code without profile data.  It reports false
// and writes nothing when a record for email already exists.
func (s *SignupStore) StageCodeIfAbsent(ctx context.Context, email, code string) (bool, error) {
	n, err := stageCodeIfAbsentScript.Run(ctx, s.rdb, []string{s.key(email)}, code, s.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("signup store: stage if absent: %w", err)
	}
	return n == 1, nil
}

// Consume atomically checks code against the staged one and removes the
// record on a match, so concurrent callers cannot both succeed.
func (s *SignupStore) Consume(ctx context.Context, email, code string) (model.PendingSignup, error) {
	res, err := consumeSignupScript.Run(ctx, s.rdb, []string{s.key(email)}, code).Slice()
	if err != nil {
		return model.PendingSignup{}, fmt.Errorf("signup store: consume: %w", err)
	}
	if len(res) != 2 {
		return model.PendingSignup{}, fmt.Errorf("signup store: consume: unexpected reply %v", res)
	}
	status, _ := res[0].(int64)
	switch status {
	case 0:
		return model.PendingSignup{}, ErrStagedNotFound
	case 1:
		return model.PendingSignup{}, ErrCodeMismatch
	}

	var p model.PendingSignup
	raw, _ := res[1].(string)
	if raw == "" {
		return p, nil
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return model.PendingSignup{}, errors.Join(ErrStagedNotFound, fmt.Errorf("signup store: decode: %w", err))
	}
	return p, nil
}

// DiscardCode removes the record for email if it still holds code.  A record
// replaced in the meantime is left alone.
func (s *SignupStore) DiscardCode(ctx context.Context, email, code string) error {
	if err := discardCodeScript.Run(ctx, s.rdb, []string{s.key(email)}, code).Err(); err != nil {
		return fmt.Errorf("signup store: discard: %w", err)
	}
	return nil
}

// Restore re-stages a record taken by Consume, for when the account could
// not be created afterwards.  The TTL starts over.  It reports false when a
// newer record already exists for email.
func (s *SignupStore) Restore(ctx context.Context, email, code string, p model.PendingSignup) (bool, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return false, fmt.Errorf("signup store: encode: %w", err)
	}
	n, err := restoreSignupScript.Run(ctx, s.rdb, []string{s.key(email)}, code, payload, s.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("signup store: restore: %w", err)
	}
	return n == 1, nil
}
