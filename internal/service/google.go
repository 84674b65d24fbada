package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iliyamo/cleft-care-backend/internal/lib/logger/sl"
	"github.com/iliyamo/cleft-care-backend/internal/model"
	"github.com/iliyamo/cleft-care-backend/internal/oauth"
	"github.com/iliyamo/cleft-care-backend/internal/repository"
)

// GoogleLogin signs in the account matching a verified Google ID token.
// Accounts are never created here; a match by email is linked to the
// Google subject on first use.
func (s *AuthService) GoogleLogin(ctx context.Context, idToken string) (Session, error) {
	const op = "service.AuthService.GoogleLogin"
	log := s.log.With(slog.String("op", op))

	if idToken == "" {
		return Session{}, fmt.Errorf("%s: %w", op, ErrMissingIDToken)
	}
	ident, err := s.google.Verify(ctx, idToken)
	if err != nil {
		if errors.Is(err, oauth.ErrInvalidToken) {
			return Session{}, fmt.Errorf("%s: %w", op, errors.Join(ErrUnauthorized, err))
		}
		if errors.Is(err, oauth.ErrProviderUnavailable) {
			log.Warn("google verification unavailable", sl.Err(err))
			return Session{}, fmt.Errorf("%s: %w", op, errors.Join(ErrDependency, err))
		}
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}
	if ident.Email == "" || !ident.EmailVerified {
		return Session{}, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	user, err := s.users.GetByGoogleIDOrEmail(ctx, ident.Subject, ident.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Session{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}
	if user.IsSuspended() {
		return Session{}, fmt.Errorf("%s: %w", op, ErrAccountSuspended)
	}

	if user.GoogleID == "" || user.AvatarURL == "" || !user.IsVerified {
		if err := s.users.LinkGoogle(ctx, user.ID, ident.Subject, ident.Picture); err != nil {
			return Session{}, fmt.Errorf("%s: link google: %w", op, err)
		}
		if user, err = s.users.GetByID(ctx, user.ID); err != nil {
			return Session{}, fmt.Errorf("%s: reload user: %w", op, err)
		}
		log.Info("google account linked", slog.Uint64("uid", user.ID))
	}

	return s.startSession(ctx, op, user)
}

// CompleteGoogleProfile stores the contact details a Google-provisioned
// account still lacks.  It can run only once per account.
func (s *AuthService) CompleteGoogleProfile(ctx context.Context, userID uint64, p model.ProfileCompletion) (model.User, error) {
	const op = "service.AuthService.CompleteGoogleProfile"

	if p.Missing() {
		return model.User{}, fmt.Errorf("%s: %w", op, ErrProfileFieldsMissing)
	}
	user, err := s.userByID(ctx, userID)
	if err != nil {
		return model.User{}, fmt.Errorf("%s: %w", op, err)
	}
	if !user.NeedsProfileCompletion {
		return model.User{}, fmt.Errorf("%s: %w", op, ErrProfileCompleted)
	}
	if err := s.users.CompleteProfile(ctx, userID, p); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return model.User{}, fmt.Errorf("%s: %w", op, ErrProfileCompleted)
		}
		return model.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return s.reload(ctx, op, userID)
}

func (s *AuthService) reload(ctx context.Context, op string, id uint64) (model.User, error) {
	user, err := s.userByID(ctx, id)
	if err != nil {
		return model.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}
