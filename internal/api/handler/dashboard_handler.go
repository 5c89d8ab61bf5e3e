package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/inventory-web/internal/core/ports"
)

// DashboardHandler serves the manager-only JSON endpoints.
type DashboardHandler struct {
	products ports.ProductService
	profiles ports.ProfileService
}

func NewDashboardHandler(products ports.ProductService, profiles ports.ProfileService) *DashboardHandler {
	return &DashboardHandler{products: products, profiles: profiles}
}

// Stats returns the inventory aggregates.
//
// @Summary      Dashboard statistics
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  domain.DashboardStats
// @Failure      403  {object}  errorResponse
// @Router       /api/dashboard [get]
func (h *DashboardHandler) Stats(c echo.Context) error {
	ctx, err := sessionContext(c)
	if err != nil {
		return err
	}

	defer observe("dashboard_stats")()
	stats, err := h.products.GetDashboardStats(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// Profiles lists every user profile, newest first.
//
// @Summary      List profiles
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  profileListResponse
// @Failure      403  {object}  errorResponse
// @Router       /api/profiles [get]
func (h *DashboardHandler) Profiles(c echo.Context) error {
	ctx, err := sessionContext(c)
	if err != nil {
		return err
	}

	defer observe("list_profiles")()
	profiles, err := h.profiles.ListProfiles(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profileListResponse{Profiles: profiles})
}
