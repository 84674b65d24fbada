// Package router registers the HTTP routes of the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cleft-care-backend/internal/handler"
)

// RegisterRoutes registers routes that need no session.  Currently only the
// health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the account endpoints under /api/auth.  limit
// guards the unauthenticated endpoints that send mail or check passwords;
// auth is the access-token middleware for the profile endpoints.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, auth, limit echo.MiddlewareFunc) {
	g := e.Group("/api/auth")

	// signup
	g.POST("/signup/initiate", a.InitiateSignup, limit)
	g.POST("/signup/verify", a.VerifySignup, limit)
	g.PUT("/signup/resend-otp", a.ResendOTP, limit)

	// sessions
	g.POST("/login", a.Login, limit)
	g.POST("/logout", a.Logout)
	g.GET("/refresh-token", a.RefreshToken)
	g.POST("/google", a.GoogleLogin, limit)

	// password reset
	g.POST("/password/reset/request", a.RequestPasswordReset, limit)
	g.POST("/password/reset/verify", a.VerifyPasswordResetOTP, limit)
	g.POST("/password/reset/complete", a.CompletePasswordReset, limit)

	// signed in
	g.GET("/profile", a.Profile, auth)
	g.PUT("/updateprofile", a.UpdateProfile, auth)
	g.PUT("/updatepassword", a.UpdatePassword, auth)
	g.GET("/donations", a.Donations, auth)
	g.POST("/google/complete-profile", a.CompleteGoogleProfile, auth)
}
