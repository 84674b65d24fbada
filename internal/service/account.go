package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iliyamo/cleft-care-backend/internal/lib/logger/sl"
	"github.com/iliyamo/cleft-care-backend/internal/model"
	"github.com/iliyamo/cleft-care-backend/internal/repository"
)

// DonationHistory is a list of donations with its aggregates.
type DonationHistory struct {
	Donations []model.Donation
	Summary   model.DonationSummary
}

// Profile returns the signed-in user.
func (s *AuthService) Profile(ctx context.Context, userID uint64) (model.User, error) {
	return s.reload(ctx, "service.AuthService.Profile", userID)
}

// UpdateProfile changes address and phone number.  Empty values keep the
// stored ones.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uint64, address, phone string) (model.User, error) {
	const op = "service.AuthService.UpdateProfile"

	user, err := s.userByID(ctx, userID)
	if err != nil {
		return model.User{}, fmt.Errorf("%s: %w", op, err)
	}
	if address == "" {
		address = user.Address
	}
	if phone == "" {
		phone = user.PhoneNumber
	}
	if err := s.users.UpdateContact(ctx, userID, address, phone); err != nil {
		return model.User{}, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return s.reload(ctx, op, userID)
}

// DonationHistory lists the user's successful donations, newest first.
func (s *AuthService) DonationHistory(ctx context.Context, userID uint64) (DonationHistory, error) {
	const op = "service.AuthService.DonationHistory"

	donations, err := s.donations.SuccessfulByUser(ctx, userID)
	if err != nil {
		return DonationHistory{}, fmt.Errorf("%s: %w", op, err)
	}
	summary, err := s.donations.SummaryByUser(ctx, userID)
	if err != nil {
		return DonationHistory{}, fmt.Errorf("%s: %w", op, err)
	}
	return DonationHistory{Donations: donations, Summary: summary}, nil
}

// ListUsers returns every account.
func (s *AuthService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.AuthService.ListUsers: %w", err)
	}
	return users, nil
}

// DeleteUser removes an account and its session.
func (s *AuthService) DeleteUser(ctx context.Context, userID uint64) error {
	const op = "service.AuthService.DeleteUser"
	log := s.log.With(slog.String("op", op))

	if err := s.users.Delete(ctx, userID); err != nil {
		return fmt.Errorf("%s: %w", op, notFound(err))
	}
	s.revokeQuietly(ctx, log, userID)
	log.Info("user deleted", slog.Uint64("uid", userID))
	return nil
}

// UpdateUserRole sets the role of an account.
func (s *AuthService) UpdateUserRole(ctx context.Context, userID uint64, role string) (model.User, error) {
	const op = "service.AuthService.UpdateUserRole"

	if !model.ValidRole(role) {
		return model.User{}, fmt.Errorf("%s: %w", op, ErrInvalidRole)
	}
	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		return model.User{}, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return s.reload(ctx, op, userID)
}

// UpdateUserStatus activates or suspends an account.  Suspension also ends
// the account's session.
func (s *AuthService) UpdateUserStatus(ctx context.Context, userID uint64, status string) (model.User, error) {
	const op = "service.AuthService.UpdateUserStatus"
	log := s.log.With(slog.String("op", op))

	if !model.ValidStatus(status) {
		return model.User{}, fmt.Errorf("%s: %w", op, ErrInvalidStatus)
	}
	if err := s.users.UpdateStatus(ctx, userID, status); err != nil {
		return model.User{}, fmt.Errorf("%s: %w", op, notFound(err))
	}
	if status == model.StatusSuspended {
		s.revokeQuietly(ctx, log, userID)
	}
	return s.reload(ctx, op, userID)
}

// DonationsByEmail lists every donation made with email, whatever its
// status, with aggregates over the successful ones.
func (s *AuthService) DonationsByEmail(ctx context.Context, email string) (DonationHistory, error) {
	const op = "service.AuthService.DonationsByEmail"

	donations, err := s.donations.ByEmail(ctx, email)
	if err != nil {
		return DonationHistory{}, fmt.Errorf("%s: %w", op, err)
	}
	summary, err := s.donations.SummaryByEmail(ctx, email)
	if err != nil {
		return DonationHistory{}, fmt.Errorf("%s: %w", op, err)
	}
	return DonationHistory{Donations: donations, Summary: summary}, nil
}

func (s *AuthService) revokeQuietly(ctx context.Context, log *slog.Logger, userID uint64) {
	if err := s.refresh.RevokeForUser(ctx, userID); err != nil {
		log.Warn("failed to revoke refresh token", slog.Uint64("uid", userID), sl.Err(err))
	}
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}
