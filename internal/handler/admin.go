package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cleft-care-backend/internal/service"
)

// AdminHandler serves the user management endpoints.  Routes are expected to
// sit behind RequireAuth and RequireRole(admin).
type AdminHandler struct {
	log *slog.Logger
	svc *service.AuthService
}

func NewAdminHandler(log *slog.Logger, svc *service.AuthService) *AdminHandler {
	return &AdminHandler{log: log, svc: svc}
}

func pathID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

// ListUsers: GET /api/auth/getallusers
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	users, err := h.svc.ListUsers(ctx)
	if err != nil {
		return serviceError(c, h.log, err)
	}
	return ok(c, http.StatusOK, "Users retrieved successfully", users)
}

// DeleteUser: DELETE /api/auth/deleteuser/:id
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id, valid := pathID(c)
	if !valid {
		return Fail(c, http.StatusBadRequest, "invalid user id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.svc.DeleteUser(ctx, id); err != nil {
		return serviceError(c, h.log, err)
	}
	return ok(c, http.StatusOK, "User deleted successfully", nil)
}

// UpdateUserRole: PUT /api/auth/updateuserrole/:id
func (h *AdminHandler) UpdateUserRole(c echo.Context) error {
	id, valid := pathID(c)
	if !valid {
		return Fail(c, http.StatusBadRequest, "invalid user id")
	}
	var req roleReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.svc.UpdateUserRole(ctx, id, strings.TrimSpace(req.Role))
	if err != nil {
		return serviceError(c, h.log, err)
	}
	return ok(c, http.StatusOK, "User role updated successfully", echo.Map{"user": u})
}

// UpdateUserStatus: PUT /api/auth/updateuserstatus/:id
func (h *AdminHandler) UpdateUserStatus(c echo.Context) error {
	id, valid := pathID(c)
	if !valid {
		return Fail(c, http.StatusBadRequest, "invalid user id")
	}
	var req statusReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.svc.UpdateUserStatus(ctx, id, strings.TrimSpace(req.Status))
	if err != nil {
		return serviceError(c, h.log, err)
	}
	return ok(c, http.StatusOK, "User status updated successfully", echo.Map{"user": u})
}

// DonationsByEmail: GET /api/auth/donations/:email
func (h *AdminHandler) DonationsByEmail(c echo.Context) error {
	email := strings.TrimSpace(c.Param("email"))
	if email == "" {
		return Fail(c, http.StatusBadRequest, "email is required")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	hist, err := h.svc.DonationsByEmail(ctx, email)
	if err != nil {
		return serviceError(c, h.log, err)
	}
	return ok(c, http.StatusOK, "Donations retrieved successfully", donationData(hist))
}
