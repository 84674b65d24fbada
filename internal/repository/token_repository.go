package repository

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const refreshKeyPrefix = "refresh_token:"

// TokenRepo keeps the single active refresh token per user in Redis.  Only a
// SHA-256 digest of the token is stored.
type TokenRepo struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewTokenRepo(rdb *redis.Client, ttl time.Duration) *TokenRepo {
	return &TokenRepo{rdb: rdb, ttl: ttl}
}

func (r *TokenRepo) key(userID uint64) string {
	return refreshKeyPrefix + strconv.FormatUint(userID, 10)
}

// StoreRefresh records tokenHash as the user's active refresh token,
// replacing whatever was stored before.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string) error {
	if err := r.rdb.Set(ctx, r.key(userID), tokenHash, r.ttl).Err(); err != nil {
		return fmt.Errorf("token repo: store: %w", err)
	}
	return nil
}

// ValidateRefresh succeeds only if tokenHash equals the stored digest.
// ErrStagedNotFound means nothing is stored; ErrCodeMismatch means a
// different token is active.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, userID uint64, tokenHash string) error {
	stored, err := r.rdb.Get(ctx, r.key(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrStagedNotFound
		}
		return fmt.Errorf("token repo: get: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(tokenHash)) != 1 {
		return ErrCodeMismatch
	}
	return nil
}

// RevokeForUser deletes the user's refresh token.  Deleting a missing key is
// not an error.
func (r *TokenRepo) RevokeForUser(ctx context.Context, userID uint64) error {
	if err := r.rdb.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("token repo: revoke: %w", err)
	}
	return nil
}
