package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iliyamo/cleft-care-backend/internal/lib/logger/sl"
	"github.com/iliyamo/cleft-care-backend/internal/model"
	"github.com/iliyamo/cleft-care-backend/internal/notify"
	"github.com/iliyamo/cleft-care-backend/internal/repository"
	"github.com/iliyamo/cleft-care-backend/internal/utils"
)

// RequestPasswordReset mails a reset code to a registered email.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	const op = "service.AuthService.RequestPasswordReset"
	log := s.log.With(slog.String("op", op))

	email = repository.NormalizeEmail(email)
	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	code, err := s.newCode()
	if err != nil {
		return fmt.Errorf("%s: generate code: %w", op, err)
	}
	if err := s.notifier.SendOTP(ctx, email, code, notify.PurposePasswordReset); err != nil {
		log.Error("failed to send reset code", sl.Err(err))
		return fmt.Errorf("%s: %w", op, errors.Join(ErrDependency, err))
	}
	if err := s.resets.Stage(ctx, email, code); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// VerifyPasswordResetOTP consumes a matching reset code.  The verification
// is remembered for the code's lifetime so CompletePasswordReset can follow.
func (s *AuthService) VerifyPasswordResetOTP(ctx context.Context, email, otp string) error {
	const op = "service.AuthService.VerifyPasswordResetOTP"

	err := s.resets.Verify(ctx, repository.NormalizeEmail(email), otp)
	switch {
	case errors.Is(err, repository.ErrStagedNotFound), errors.Is(err, repository.ErrCodeMismatch):
		return fmt.Errorf("%s: %w", op, ErrInvalidCode)
	case err != nil:
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CompletePasswordReset sets a new password.  A still-staged code must match
// otp; otherwise the email must have passed VerifyPasswordResetOTP.  All
// sessions of the user are revoked afterwards.
func (s *AuthService) CompletePasswordReset(ctx context.Context, email, otp, newPassword string) error {
	const op = "service.AuthService.CompletePasswordReset"
	log := s.log.With(slog.String("op", op))

	email = repository.NormalizeEmail(email)
	err := s.resets.Authorize(ctx, email, otp)
	switch {
	case errors.Is(err, repository.ErrStagedNotFound), errors.Is(err, repository.ErrCodeMismatch):
		return fmt.Errorf("%s: %w", op, ErrInvalidCode)
	case err != nil:
		return fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.setPassword(ctx, user.ID, newPassword); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.resets.Clear(ctx, email); err != nil {
		log.Warn("failed to clear reset state", sl.Err(err))
	}
	if err := s.refresh.RevokeForUser(ctx, user.ID); err != nil {
		log.Warn("failed to revoke sessions", sl.Err(err))
	}
	log.Info("password reset", slog.Uint64("uid", user.ID))
	return nil
}

// UpdatePassword changes the password of a signed-in user after checking
// the current one.  A non-empty email must name the same account.
func (s *AuthService) UpdatePassword(ctx context.Context, userID uint64, email, oldPassword, newPassword string) error {
	const op = "service.AuthService.UpdatePassword"

	user, err := s.userByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if email != "" && repository.NormalizeEmail(email) != user.Email {
		return fmt.Errorf("%s: %w", op, ErrForbidden)
	}
	if !utils.VerifyPassword(user.PasswordHash, oldPassword) {
		return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	if err := s.setPassword(ctx, user.ID, newPassword); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *AuthService) setPassword(ctx context.Context, userID uint64, plain string) error {
	hash, err := utils.HashPassword(plain, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

func (s *AuthService) userByID(ctx context.Context, id uint64) (model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, err
	}
	return user, nil
}
