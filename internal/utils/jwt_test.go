package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIssuer() *TokenIssuer {
	return NewTokenIssuer("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
}

func TestIssue_RoundTrip(t *testing.T) {
	i := newIssuer()
	pair, err := i.Issue(42)
	require.NoError(t, err)

	id, err := i.ParseAccess(pair.Access.Value)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)

	id, err = i.ParseRefresh(pair.Refresh.Value)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)

	assert.WithinDuration(t, time.Now().Add(15*time.Minute), pair.Access.Exp, 5*time.Second)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), pair.Refresh.Exp, 5*time.Second)
}

func TestIssue_SecretsAreNotInterchangeable(t *testing.T) {
	i := newIssuer()
	pair, err := i.Issue(1)
	require.NoError(t, err)

	_, err = i.ParseRefresh(pair.Access.Value)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = i.ParseAccess(pair.Refresh.Value)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestIssue_SameSecondTokensDiffer(t *testing.T) {
	i := newIssuer()
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	i.now = func() time.Time { return fixed }

	a, err := i.Issue(1)
	require.NoError(t, err)
	b, err := i.Issue(1)
	require.NoError(t, err)
	assert.NotEqual(t, a.Refresh.Value, b.Refresh.Value)
	assert.NotEqual(t, HashRefreshRaw(a.Refresh.Value), HashRefreshRaw(b.Refresh.Value))
}

func TestParse_ExpiredVsInvalid(t *testing.T) {
	i := newIssuer()
	issued := time.Now().Add(-time.Hour)
	i.now = func() time.Time { return issued }
	tok, err := i.IssueAccess(7)
	require.NoError(t, err)

	i.now = time.Now
	_, err = i.ParseAccess(tok.Value)
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = i.ParseAccess(tok.Value + "x")
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = i.ParseAccess("")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParse_RejectsOtherAlgorithms(t *testing.T) {
	i := newIssuer()
	claims := jwt.RegisteredClaims{Subject: "1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = i.ParseAccess(none)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("access-secret"))
	require.NoError(t, err)
	_, err = i.ParseAccess(hs512)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParse_RequiresNumericSubject(t *testing.T) {
	i := newIssuer()
	claims := jwt.RegisteredClaims{Subject: "abc", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("access-secret"))
	require.NoError(t, err)

	_, err = i.ParseAccess(raw)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
