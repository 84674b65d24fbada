// Package service implements the account flows: signup with an emailed
// code, password and Google sign-in, token refresh, password reset and the
// admin operations on users.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iliyamo/cleft-care-backend/internal/lib/logger/sl"
	"github.com/iliyamo/cleft-care-backend/internal/model"
	"github.com/iliyamo/cleft-care-backend/internal/notify"
	"github.com/iliyamo/cleft-care-backend/internal/oauth"
	"github.com/iliyamo/cleft-care-backend/internal/repository"
	"github.com/iliyamo/cleft-care-backend/internal/utils"
)

type UserStore interface {
	Create(ctx context.Context, u model.User) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByGoogleIDOrEmail(ctx context.Context, googleID, email string) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	UpdatePassword(ctx context.Context, id uint64, passwordHash string) error
	UpdateContact(ctx context.Context, id uint64, address, phone string) error
	CompleteProfile(ctx context.Context, id uint64, p model.ProfileCompletion) error
	LinkGoogle(ctx context.Context, id uint64, googleID, avatarURL string) error
	UpdateRole(ctx context.Context, id uint64, role string) error
	UpdateStatus(ctx context.Context, id uint64, status string) error
	UpdateDonationStats(ctx context.Context, id uint64, s model.DonationSummary) error
	Delete(ctx context.Context, id uint64) error
}

type DonationStore interface {
	AssignAnonymous(ctx context.Context, email string, userID uint64) (int64, error)
	SummaryByUser(ctx context.Context, userID uint64) (model.DonationSummary, error)
	SummaryByEmail(ctx context.Context, email string) (model.DonationSummary, error)
	SuccessfulByUser(ctx context.Context, userID uint64) ([]model.Donation, error)
	ByEmail(ctx context.Context, email string) ([]model.Donation, error)
}

type SignupStager interface {
	Stage(ctx context.Context, email, code string, p model.PendingSignup) error
	StageCodeIfAbsent(ctx context.Context, email, code string) (bool, error)
	Consume(ctx context.Context, email, code string) (model.PendingSignup, error)
	Restore(ctx context.Context, email, code string, p model.PendingSignup) (bool, error)
	DiscardCode(ctx context.Context, email, code string) error
}

type ResetStager interface {
	Stage(ctx context.Context, email, code string) error
	Verify(ctx context.Context, email, code string) error
	Authorize(ctx context.Context, email, code string) error
	Clear(ctx context.Context, email string) error
}

type RefreshStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string) error
	ValidateRefresh(ctx context.Context, userID uint64, tokenHash string) error
	RevokeForUser(ctx context.Context, userID uint64) error
}

// Notifier delivers one-time codes, either directly over SMTP or through
// the mail queue.
type Notifier interface {
	SendOTP(ctx context.Context, email, code string, purpose notify.Purpose) error
}

type IdentityVerifier interface {
	Verify(ctx context.Context, rawToken string) (oauth.Identity, error)
}

// Deps groups the collaborators of AuthService.
type Deps struct {
	Users      UserStore
	Donations  DonationStore
	Signups    SignupStager
	Resets     ResetStager
	Refresh    RefreshStore
	Notifier   Notifier
	Google     IdentityVerifier
	Issuer     *utils.TokenIssuer
	BcryptCost int
}

type AuthService struct {
	log        *slog.Logger
	users      UserStore
	donations  DonationStore
	signups    SignupStager
	resets     ResetStager
	refresh    RefreshStore
	notifier   Notifier
	google     IdentityVerifier
	issuer     *utils.TokenIssuer
	bcryptCost int
	newCode    func() (string, error)
}

func NewAuthService(log *slog.Logger, d Deps) *AuthService {
	return &AuthService{
		log:        log,
		users:      d.Users,
		donations:  d.Donations,
		signups:    d.Signups,
		resets:     d.Resets,
		refresh:    d.Refresh,
		notifier:   d.Notifier,
		google:     d.Google,
		issuer:     d.Issuer,
		bcryptCost: d.BcryptCost,
		newCode:    utils.NewOTP,
	}
}

// Session is the result of a successful sign-in.
type Session struct {
	User   model.User
	Tokens utils.TokenPair
}

// SignupInput is the profile submitted when a signup starts.
type SignupInput struct {
	Email       string
	FirstName   string
	LastName    string
	PhoneNumber string
	Address     string
	Password    string
}

// InitiateSignup mails a code to in.Email and stages the signup until the
// code is confirmed.  It returns the normalized email.
func (s *AuthService) InitiateSignup(ctx context.Context, in SignupInput) (string, error) {
	const op = "service.AuthService.InitiateSignup"
	log := s.log.With(slog.String("op", op))

	email := repository.NormalizeEmail(in.Email)
	if err := s.ensureNoUser(ctx, email); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	code, err := s.newCode()
	if err != nil {
		return "", fmt.Errorf("%s: generate code: %w", op, err)
	}
	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("%s: hash password: %w", op, err)
	}

	if err := s.notifier.SendOTP(ctx, email, code, notify.PurposeSignup); err != nil {
		log.Error("failed to send signup code", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, errors.Join(ErrDependency, err))
	}

	pending := model.PendingSignup{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PhoneNumber:  in.PhoneNumber,
		Address:      in.Address,
		PasswordHash: hash,
	}
	if err := s.signups.Stage(ctx, email, code, pending); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("signup code sent")
	return email, nil
}

func (s *AuthService) ensureNoUser(ctx context.Context, email string) error {
	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrUserExists
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return err
	}
}

// VerifySignup consumes the staged signup for email if otp matches, creates
// the account and signs it in.
func (s *AuthService) VerifySignup(ctx context.Context, email, otp string) (Session, error) {
	const op = "service.AuthService.VerifySignup"
	log := s.log.With(slog.String("op", op))

	email = repository.NormalizeEmail(email)
	pending, err := s.signups.Consume(ctx, email, otp)
	switch {
	case errors.Is(err, repository.ErrStagedNotFound):
		return Session{}, fmt.Errorf("%s: %w", op, ErrSignupNotFound)
	case errors.Is(err, repository.ErrCodeMismatch):
		log.Info("signup code mismatch")
		return Session{}, fmt.Errorf("%s: %w", op, ErrInvalidCode)
	case err != nil:
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}
	if !pending.Complete() {
		return Session{}, fmt.Errorf("%s: %w", op, ErrSignupIncomplete)
	}

	id, err := s.users.Create(ctx, model.User{
		Email:        email,
		PasswordHash: pending.PasswordHash,
		FirstName:    pending.FirstName,
		LastName:     pending.LastName,
		PhoneNumber:  pending.PhoneNumber,
		Address:      pending.Address,
		Role:         model.RoleUser,
		Status:       model.StatusActive,
		IsVerified:   true,
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return Session{}, fmt.Errorf("%s: %w", op, ErrUserExists)
		}
		// the code was already consumed; hand it back so the user can retry
		if restored, rerr := s.signups.Restore(ctx, email, otp, pending); rerr != nil {
			log.Error("failed to restore pending signup", sl.Err(rerr))
		} else if !restored {
			log.Info("pending signup replaced, not restored")
		}
		return Session{}, fmt.Errorf("%s: create user: %w", op, err)
	}
	log.Info("user created", slog.Uint64("uid", id))

	s.claimDonations(ctx, log, id, email)

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return Session{}, fmt.Errorf("%s: reload user: %w", op, err)
	}
	return s.startSession(ctx, op, user)
}

// claimDonations attaches earlier anonymous donations to the new account and
// refreshes its aggregates.  The account already exists at this point, so
// failures are logged rather than returned.
func (s *AuthService) claimDonations(ctx context.Context, log *slog.Logger, userID uint64, email string) {
	moved, err := s.donations.AssignAnonymous(ctx, email, userID)
	if err != nil {
		log.Warn("failed to assign anonymous donations", sl.Err(err))
		return
	}
	summary, err := s.donations.SummaryByUser(ctx, userID)
	if err != nil {
		log.Warn("failed to summarize donations", sl.Err(err))
		return
	}
	if err := s.users.UpdateDonationStats(ctx, userID, summary); err != nil {
		log.Warn("failed to store donation stats", sl.Err(err))
		return
	}
	if moved > 0 {
		log.Info("anonymous donations claimed", slog.Int64("count", moved))
	}
}

// startSession issues a token pair and records the refresh token as the
// user's only active one.
func (s *AuthService) startSession(ctx context.Context, op string, user model.User) (Session, error) {
	pair, err := s.issuer.Issue(user.ID)
	if err != nil {
		return Session{}, fmt.Errorf("%s: issue tokens: %w", op, err)
	}
	if err := s.refresh.StoreRefresh(ctx, user.ID, utils.HashRefreshRaw(pair.Refresh.Value)); err != nil {
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}
	return Session{User: user, Tokens: pair}, nil
}

// ResendOTP mails a fresh signup code when none is pending.  It never
// replaces a staged signup.
func (s *AuthService) ResendOTP(ctx context.Context, email string) (string, error) {
	const op = "service.AuthService.ResendOTP"
	log := s.log.With(slog.String("op", op))

	email = repository.NormalizeEmail(email)
	if err := s.ensureNoUser(ctx, email); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	code, err := s.newCode()
	if err != nil {
		return "", fmt.Errorf("%s: generate code: %w", op, err)
	}
	staged, err := s.signups.StageCodeIfAbsent(ctx, email, code)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !staged {
		return "", fmt.Errorf("%s: %w", op, ErrSignupPending)
	}

	if err := s.notifier.SendOTP(ctx, email, code, notify.PurposeSignup); err != nil {
		log.Error("failed to send signup code", sl.Err(err))
		if derr := s.signups.DiscardCode(ctx, email, code); derr != nil {
			log.Warn("failed to discard unsent code", sl.Err(derr))
		}
		return "", fmt.Errorf("%s: %w", op, errors.Join(ErrDependency, err))
	}
	return email, nil
}

// Login checks email and password and signs the user in.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	const op = "service.AuthService.Login"
	log := s.log.With(slog.String("op", op))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Session{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}
	if user.IsSuspended() {
		log.Info("suspended user tried to log in", slog.Uint64("uid", user.ID))
		return Session{}, fmt.Errorf("%s: %w", op, ErrAccountSuspended)
	}
	if !user.HasPassword() {
		log.Info("password login on google-only account", slog.Uint64("uid", user.ID))
		return Session{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	if !utils.VerifyPassword(user.PasswordHash, password) {
		return Session{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	sess, err := s.startSession(ctx, op, user)
	if err != nil {
		return Session{}, err
	}
	log.Info("user logged in", slog.Uint64("uid", user.ID))
	return sess, nil
}

// Logout revokes the refresh token's session.  It never fails: a missing,
// expired or forged token simply has nothing to revoke.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) {
	const op = "service.AuthService.Logout"
	log := s.log.With(slog.String("op", op))

	if refreshToken == "" {
		return
	}
	uid, err := s.issuer.ParseRefresh(refreshToken)
	if err != nil {
		log.Debug("ignoring unverifiable refresh token", sl.Err(err))
		return
	}
	if err := s.refresh.RevokeForUser(ctx, uid); err != nil {
		log.Error("failed to revoke refresh token", sl.Err(err), slog.Uint64("uid", uid))
	}
}

// Refresh returns a new access token for a valid, current refresh token.
// The refresh token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (utils.Token, error) {
	const op = "service.AuthService.Refresh"

	if refreshToken == "" {
		return utils.Token{}, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}
	uid, err := s.issuer.ParseRefresh(refreshToken)
	if err != nil {
		return utils.Token{}, fmt.Errorf("%s: %w", op, errors.Join(ErrUnauthorized, err))
	}

	err = s.refresh.ValidateRefresh(ctx, uid, utils.HashRefreshRaw(refreshToken))
	switch {
	case errors.Is(err, repository.ErrStagedNotFound), errors.Is(err, repository.ErrCodeMismatch):
		return utils.Token{}, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	case err != nil:
		return utils.Token{}, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.Token{}, fmt.Errorf("%s: %w", op, ErrUnauthorized)
		}
		return utils.Token{}, fmt.Errorf("%s: %w", op, err)
	}
	if user.IsSuspended() {
		return utils.Token{}, fmt.Errorf("%s: %w", op, ErrAccountSuspended)
	}

	access, err := s.issuer.IssueAccess(uid)
	if err != nil {
		return utils.Token{}, fmt.Errorf("%s: issue access: %w", op, err)
	}
	return access, nil
}
