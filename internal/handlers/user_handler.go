package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/course-marketplace/internal/services"
	"github.com/SAP-F-2025/course-marketplace/internal/utils"
)

// UserHandler serves the caller's own account pages
type UserHandler struct {
	BaseHandler
	profile services.ProfileService
}

func NewUserHandler(profile services.ProfileService, logger utils.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler: NewBaseHandler(logger),
		profile:     profile,
	}
}

// GetProfile returns the user, their course progress and payments
// @Summary Get profile
// @Tags me
// @Produce json
// @Success 200 {object} models.Profile
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /me/profile [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	h.LogRequest(c, "Getting profile", "user_id", user.ID)

	profile, err := h.profile.GetProfile(c.Request.Context(), user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// GetPayments
// @Summary List the caller's payments, latest first
// @Tags me
// @Produce json
// @Success 200 {array} models.Payment
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /me/payments [get]
func (h *UserHandler) GetPayments(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	payments, err := h.profile.GetPayments(c.Request.Context(), user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}
