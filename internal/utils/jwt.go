package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token parse failures.  Callers can tell an expired token (prompt a
// refresh or re-login) from a forged or malformed one.
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// Token is a signed JWT together with its expiry.
type Token struct {
	Value string
	Exp   time.Time
}

// TokenPair is what a successful sign-in hands out.
type TokenPair struct {
	Access  Token
	Refresh Token
}

// TokenIssuer mints and verifies access and refresh JWTs.  The two kinds are
// signed with different secrets so a leaked access key cannot forge refresh
// tokens.  Claims carry only the user id (sub), exp, iat and a random jti.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// Issue mints an access and a refresh token for userID.
func (i *TokenIssuer) Issue(userID uint64) (TokenPair, error) {
	access, err := i.IssueAccess(userID)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := i.sign(userID, i.refreshSecret, i.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// IssueAccess mints only an access token.
func (i *TokenIssuer) IssueAccess(userID uint64) (Token, error) {
	return i.sign(userID, i.accessSecret, i.accessTTL)
}

// ParseAccess verifies an access token and returns its user id.
func (i *TokenIssuer) ParseAccess(raw string) (uint64, error) {
	return i.parse(raw, i.accessSecret)
}

// ParseRefresh verifies a refresh token and returns its user id.
func (i *TokenIssuer) ParseRefresh(raw string) (uint64, error) {
	return i.parse(raw, i.refreshSecret)
}

func (i *TokenIssuer) sign(userID uint64, secret []byte, ttl time.Duration) (Token, error) {
	now := i.now().UTC()
	exp := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(userID, 10),
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: signed, Exp: exp}, nil
}

func (i *TokenIssuer) parse(raw string, secret []byte) (uint64, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, ErrTokenInvalid
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrTokenInvalid
	}
	return id, nil
}

// HashRefreshRaw returns the SHA-256 hex digest of a refresh token.  Only
// the digest is kept server side.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
