package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/course-marketplace/internal/services"
	"github.com/SAP-F-2025/course-marketplace/internal/utils"
)

type DashboardHandler struct {
	BaseHandler
	service services.DashboardService
}

func NewDashboardHandler(service services.DashboardService, logger utils.Logger) *DashboardHandler {
	return &DashboardHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ===== DASHBOARD ENDPOINTS =====

// GetDashboard returns the caller's learning summary, plus platform totals for admins
// @Summary Get dashboard
// @Tags dashboard
// @Produce json
// @Success 200 {object} models.LearnerDashboard
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /me/dashboard [get]
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	h.LogRequest(c, "Getting dashboard", "user_id", user.ID)

	dashboard, err := h.service.GetDashboard(c.Request.Context(), user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// GetAdminStats returns platform totals
// @Summary Get admin statistics
// @Tags admin
// @Produce json
// @Success 200 {object} models.AdminStats
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Router /admin/dashboard/stats [get]
func (h *DashboardHandler) GetAdminStats(c *gin.Context) {
	h.LogRequest(c, "Getting admin stats")

	stats, err := h.service.GetAdminStats(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetRevenueTrends returns daily approved revenue
// @Summary Get revenue trends
// @Tags admin
// @Produce json
// @Param days query int false "Number of days including today (default: 30, max: 366)"
// @Success 200 {object} services.RevenueTrendResponse
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Router /admin/dashboard/revenue-trends [get]
func (h *DashboardHandler) GetRevenueTrends(c *gin.Context) {
	days := h.parseIntQuery(c, "days", 30)
	h.LogRequest(c, "Getting revenue trends", "days", days)

	trends, err := h.service.GetRevenueTrends(c.Request.Context(), days)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, trends)
}
