package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cleft-care-backend/internal/middleware"
	"github.com/iliyamo/cleft-care-backend/internal/model"
	"github.com/iliyamo/cleft-care-backend/internal/service"
)

// requestTimeout bounds the store and mail calls made for one request.
const requestTimeout = 5 * time.Second

// AuthHandler serves the signup, sign-in, session and account endpoints.
type AuthHandler struct {
	log     *slog.Logger
	svc     *service.AuthService
	cookies CookieSettings
}

func NewAuthHandler(log *slog.Logger, svc *service.AuthService, cookies CookieSettings) *AuthHandler {
	return &AuthHandler{log: log, svc: svc, cookies: cookies}
}

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// sessionData is returned by every sign-in path.
func sessionData(s service.Session) echo.Map {
	return echo.Map{
		"user":         s.User,
		"accessToken":  s.Tokens.Access.Value,
		"refreshToken": s.Tokens.Refresh.Value,
	}
}

// InitiateSignup: POST /api/auth/signup/initiate
func (h *AuthHandler) InitiateSignup(c echo.Context) error {
	var req signupReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	email, err := h.svc.InitiateSignup(ctx, service.SignupInput{
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Address:     req.Address,
		Password:    req.Password,
	})
	if err != nil {
		return serviceError(c, h.log, err)
	}
	return ok(c, http.StatusOK, "Verification code sent successfully", echo.Map{"email": email})
}

// VerifySignup: POST /api/auth/signup/verify
func (h *AuthHandler) VerifySignup(c echo.Context) error {
	var req otpReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	sess, err := h.svc.VerifySignup(ctx, req.Email, string(req.OTP))
	if err != nil {
		return serviceError(c, h.log, err)
	}
	h.cookies.setPair(c, sess.Tokens)
	u := sess.User
	return ok(c, http.StatusCreated, "User verified and account created successfully", echo.Map{
		"id":           u.ID,
		"firstName":    u.FirstName,
		"lastName":     u.LastName,
		"email":        u.Email,
		"role":         u.Role,
		"totalDonated": u.TotalDonated,
	})
}

// ResendOTP: PUT /api/auth/signup/resend-otp
func (h *AuthHandler) ResendOTP(c echo.Context) error {
	var req emailReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	email, err := h.svc.ResendOTP(ctx, req.Email)
	if err != nil {
		return serviceError(c, h.log, err)
	}
	return ok(c, http.StatusOK, "Verification code sent successfully", echo.Map{"email": email})
}

// Login: POST /api/auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	sess, err := h.svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return serviceError(c, h.log, err)
	}
	h.cookies.setPair(c, sess.Tokens)
	return ok(c, http.StatusOK, "User logged in successfully", sessionData(sess))
}

// Logout: POST /api/auth/logout.  Always succeeds and clears both cookies.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	if ck, err := c.Cookie(middleware.RefreshCookie); err == nil {
		h.svc.Logout(ctx, ck.Value)
	}
	h.cookies.clear(c)
	return ok(c, http.StatusOK, "Logout successful", nil)
}

// RefreshToken: GET /api/auth/refresh-token.  Issues a new access token; the
// refresh token stays as it is.
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	ck, err := c.Cookie(middleware.RefreshCookie)
	if err != nil || ck.Value == "" {
		return Fail(c, http.StatusUnauthorized, "No token found")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	access, err := h.svc.Refresh(ctx, ck.Value)
	if err != nil {
		return serviceError(c, h.log, err)
	}
	h.cookies.set(c, middleware.AccessCookie, access)
	return ok(c, http.StatusOK, "Access token refreshed", echo.Map{"accessToken": access.Value})
}

// GoogleLogin: POST /api/auth/google
func (h *AuthHandler) GoogleLogin(c echo.Context) error {
	var req googleReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	sess, err := h.svc.GoogleLogin(ctx, req.IDToken)
	if err != nil {
		return serviceError(c, h.log, err)
	}
	h.cookies.setPair(c, sess.Tokens)
	return ok(c, http.StatusOK, "Google authentication successful", sessionData(sess))
}

// CompleteGoogleProfile: POST /api/auth/google/complete-profile
func (h *AuthHandler) CompleteGoogleProfile(c echo.Context) error {
	me, _ := middleware.CurrentUser(c)
	var req completeProfileReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.svc.CompleteGoogleProfile(ctx, me.ID, model.ProfileCompletion{
		PhoneNumber: req.PhoneNumber,
		Address:     req.Address,
		City:        req.City,
		State:       req.State,
		ZipCode:     req.ZipCode,
	})
	if err != nil {
		return serviceError(c, h.log, err)
	}
	return ok(c, http.StatusOK, "Profile completed successfully", echo.Map{"user": u})
}

// RequestPasswordReset: POST /api/auth/password/reset/request
func (h *AuthHandler) RequestPasswordReset(c echo.Context) error {
	var req emailReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.svc.RequestPasswordReset(ctx, req.Email); err != nil {
		return serviceError(c, h.log, err)
	}
	return ok(c, http.StatusOK, "Password reset code sent to your email", nil)
}

// VerifyPasswordResetOTP: POST /api/auth/password/reset/verify
func (h *AuthHandler) VerifyPasswordResetOTP(c echo.Context) error {
	var req otpReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.svc.VerifyPasswordResetOTP(ctx, req.Email, string(req.OTP)); err != nil {
		return serviceError(c, h.log, err)
	}
	return ok(c, http.StatusOK, "Code verified, you can now set a new password", nil)
}

// CompletePasswordReset: POST /api/auth/password/reset/complete
func (h *AuthHandler) CompletePasswordReset(c echo.Context) error {
	var req resetCompleteReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.svc.CompletePasswordReset(ctx, req.Email, string(req.OTP), req.NewPassword); err != nil {
		return serviceError(c, h.log, err)
	}
	return ok(c, http.StatusOK, "Password reset successfully", nil)
}
