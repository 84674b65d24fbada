// Package middleware holds the echo middleware shared by the API routes.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cleft-care-backend/internal/lib/logger/sl"
	"github.com/iliyamo/cleft-care-backend/internal/model"
	"github.com/iliyamo/cleft-care-backend/internal/repository"
	"github.com/iliyamo/cleft-care-backend/internal/utils"
)

// Cookie names carrying the tokens.
const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

// Context keys set by RequireAuth.
const (
	ctxUser   = "user"
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// AccessParser verifies access tokens.
type AccessParser interface {
	ParseAccess(raw string) (uint64, error)
}

// UserLoader loads the account named by a token.
type UserLoader interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

func deny(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"success": false, "message": msg, "data": nil})
}

// accessToken reads the access token from its cookie, falling back to an
// Authorization: Bearer header.
func accessToken(c echo.Context) string {
	if ck, err := c.Cookie(AccessCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	if auth := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

// RequireAuth rejects requests without a valid access token and stores the
// current user, its id and role in the context.
func RequireAuth(tokens AccessParser, users UserLoader, log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := accessToken(c)
			if raw == "" {
				return deny(c, http.StatusUnauthorized, "Unauthorized - No access token provided")
			}
			uid, err := tokens.ParseAccess(raw)
			if err != nil {
				if errors.Is(err, utils.ErrTokenExpired) {
					return deny(c, http.StatusUnauthorized, "Unauthorized - Access token expired")
				}
				return deny(c, http.StatusUnauthorized, "Unauthorized - Invalid access token")
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			user, err := users.GetByID(ctx, uid)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return deny(c, http.StatusUnauthorized, "User not found")
				}
				log.Error("failed to load user", slog.Uint64("uid", uid), sl.Err(err))
				return deny(c, http.StatusInternalServerError, "something went wrong")
			}
			if user.IsSuspended() {
				return deny(c, http.StatusForbidden, "your account has been suspended, contact the admin")
			}

			c.Set(ctxUser, user)
			c.Set(ctxUserID, user.ID)
			c.Set(ctxRole, user.Role)
			return next(c)
		}
	}
}

// CurrentUser returns the user stored by RequireAuth.
func CurrentUser(c echo.Context) (model.User, bool) {
	u, ok := c.Get(ctxUser).(model.User)
	return u, ok
}
