package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cleft-care-backend/internal/middleware"
	"github.com/iliyamo/cleft-care-backend/internal/service"
)

func donationData(h service.DonationHistory) echo.Map {
	return echo.Map{
		"donations":        h.Donations,
		"totalDonated":     h.Summary.TotalDonated,
		"donationCount":    h.Summary.DonationCount,
		"lastDonationDate": h.Summary.LastDonationDate,
	}
}

// Profile: GET /api/auth/profile
func (h *AuthHandler) Profile(c echo.Context) error {
	me, _ := middleware.CurrentUser(c)
	return ok(c, http.StatusOK, "Profile retrieved successfully", echo.Map{"user": me})
}

// UpdateProfile: PUT /api/auth/updateprofile
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	me, _ := middleware.CurrentUser(c)
	var req updateProfileReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.svc.UpdateProfile(ctx, me.ID, req.Address, req.Phone)
	if err != nil {
		return serviceError(c, h.log, err)
	}
	return ok(c, http.StatusOK, "Profile updated successfully", echo.Map{"user": u})
}

// UpdatePassword: PUT /api/auth/updatepassword
func (h *AuthHandler) UpdatePassword(c echo.Context) error {
	me, _ := middleware.CurrentUser(c)
	var req updatePasswordReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.svc.UpdatePassword(ctx, me.ID, req.Email, req.OldPassword, req.NewPassword); err != nil {
		return serviceError(c, h.log, err)
	}
	return ok(c, http.StatusOK, "Password updated successfully", nil)
}

// Donations: GET /api/auth/donations
func (h *AuthHandler) Donations(c echo.Context) error {
	me, _ := middleware.CurrentUser(c)
	ctx, cancel := requestContext(c)
	defer cancel()

	hist, err := h.svc.DonationHistory(ctx, me.ID)
	if err != nil {
		return serviceError(c, h.log, err)
	}
	return ok(c, http.StatusOK, "Donation history retrieved successfully", donationData(hist))
}
