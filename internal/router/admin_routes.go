package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cleft-care-backend/internal/handler"
	"github.com/iliyamo/cleft-care-backend/internal/middleware"
	"github.com/iliyamo/cleft-care-backend/internal/model"
)

// RegisterAdmin registers the user management endpoints.  Every route needs
// a valid access token and the admin role.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, auth echo.MiddlewareFunc) {
	// Per-route middleware: a guarded group would also catch unknown
	// /api/auth paths and answer them with 401 instead of 404.
	admin := []echo.MiddlewareFunc{auth, middleware.RequireRole(model.RoleAdmin)}
	g := e.Group("/api/auth")

	g.GET("/getallusers", h.ListUsers, admin...)
	g.DELETE("/deleteuser/:id", h.DeleteUser, admin...)
	g.PUT("/updateuserrole/:id", h.UpdateUserRole, admin...)
	g.PUT("/updateuserstatus/:id", h.UpdateUserStatus, admin...)
	g.GET("/donations/:email", h.DonationsByEmail, admin...)
}
