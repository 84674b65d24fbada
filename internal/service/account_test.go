package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cleft-care-backend/internal/model"
)

func TestUpdateProfile_KeepsEmptyFields(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.seedUser(t, "a@x.com", "pw123456")
	require.NoError(t, h.users.UpdateContact(ctx, u.ID, "Old street", "0911"))

	got, err := h.svc.UpdateProfile(ctx, u.ID, "New street", "")
	require.NoError(t, err)
	assert.Equal(t, "New street", got.Address)
	assert.Equal(t, "0911", got.PhoneNumber)

	_, err = h.svc.UpdateProfile(ctx, 999, "x", "y")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdatePassword(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.seedUser(t, "a@x.com", "pw123456")
	h.seedUser(t, "b@x.com", "other")

	assert.ErrorIs(t, h.svc.UpdatePassword(ctx, u.ID, "b@x.com", "pw123456", "next"), ErrForbidden)
	assert.ErrorIs(t, h.svc.UpdatePassword(ctx, u.ID, "", "wrong", "next"), ErrInvalidCredentials)
	require.NoError(t, h.svc.UpdatePassword(ctx, u.ID, "A@x.com", "pw123456", "next-password"))

	_, err := h.svc.Login(ctx, "a@x.com", "next-password")
	assert.NoError(t, err)
}

func TestDonationHistory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := uint64(1)
	h.donations.rows = []model.Donation{
		{ID: 1, Email: "a@x.com", UserID: &owner, Amount: 20, Status: model.DonationSuccessful, CreatedAt: time.Now()},
		{ID: 2, Email: "a@x.com", UserID: &owner, Amount: 30, Status: model.DonationPending, CreatedAt: time.Now()},
		{ID: 3, Email: "a@x.com", Amount: 40, Status: model.DonationSuccessful, CreatedAt: time.Now()},
	}

	mine, err := h.svc.DonationHistory(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, mine.Donations, 1)
	assert.Equal(t, 20.0, mine.Summary.TotalDonated)

	all, err := h.svc.DonationsByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Len(t, all.Donations, 3)
	assert.Equal(t, 60.0, all.Summary.TotalDonated)
	assert.Equal(t, 2, all.Summary.DonationCount)
}

func TestAdminOperations(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.seedUser(t, "a@x.com", "pw123456")
	sess, err := h.svc.Login(ctx, "a@x.com", "pw123456")
	require.NoError(t, err)

	_, err = h.svc.UpdateUserRole(ctx, u.ID, "superuser")
	assert.ErrorIs(t, err, ErrInvalidRole)
	got, err := h.svc.UpdateUserRole(ctx, u.ID, model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, got.Role)

	_, err = h.svc.UpdateUserStatus(ctx, u.ID, "banned")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	got, err = h.svc.UpdateUserStatus(ctx, u.ID, model.StatusSuspended)
	require.NoError(t, err)
	assert.True(t, got.IsSuspended())
	assert.False(t, h.mr.Exists("refresh_token:1"))
	_, err = h.svc.Refresh(ctx, sess.Tokens.Refresh.Value)
	assert.ErrorIs(t, err, ErrUnauthorized)

	users, err := h.svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	require.NoError(t, h.svc.DeleteUser(ctx, u.ID))
	assert.ErrorIs(t, h.svc.DeleteUser(ctx, u.ID), ErrUserNotFound)
	_, err = h.svc.UpdateUserRole(ctx, u.ID, model.RoleUser)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
