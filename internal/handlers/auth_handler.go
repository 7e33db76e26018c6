package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/course-marketplace/internal/services"
	"github.com/SAP-F-2025/course-marketplace/internal/utils"
	"github.com/SAP-F-2025/course-marketplace/internal/validator"
)

type AuthHandler struct {
	BaseHandler
	service services.AuthService
}

func NewAuthHandler(service services.AuthService, logger utils.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// SignIn exchanges email and password for a session
// @Summary Sign in
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body services.SignInRequest true "Credentials"
// @Success 200 {object} models.AuthToken
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/signin [post]
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req services.SignInRequest
	if !h.bindJSON(c, &req) {
		return
	}

	token, err := h.service.SignIn(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, token)
}

// SignUp creates an account and signs it in
// @Summary Sign up
// @Tags auth
// @Accept json
// @Produce json
// @Param account body services.SignUpRequest true "Account"
// @Success 201 {object} services.SignUpResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /auth/signup [post]
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req services.SignUpRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.service.SignUp(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Refresh
// @Summary Refresh a session
// @Tags auth
// @Accept json
// @Produce json
// @Param body body validator.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} models.AuthToken
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req validator.RefreshTokenRequest
	if !h.bindJSON(c, &req) {
		return
	}

	token, err := h.service.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, token)
}

// OAuthURL returns the provider login URL
// @Summary Start an OAuth login
// @Tags auth
// @Produce json
// @Param provider path string true "Provider, e.g. google"
// @Param redirect query string false "Path to return to after login"
// @Success 200 {object} services.OAuthURLResponse
// @Failure 503 {object} ErrorResponse
// @Router /auth/oauth/{provider}/url [get]
func (h *AuthHandler) OAuthURL(c *gin.Context) {
	resp, err := h.service.OAuthURL(c.Request.Context(), c.Param("provider"), c.Query("redirect"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// OAuthCallback
// @Summary Finish an OAuth login
// @Tags auth
// @Produce json
// @Param code query string true "Authorization code"
// @Param state query string true "State from the login URL"
// @Success 200 {object} services.OAuthCallbackResponse
// @Failure 400 {object} ErrorResponse
// @Router /auth/oauth/callback [get]
func (h *AuthHandler) OAuthCallback(c *gin.Context) {
	resp, err := h.service.OAuthCallback(c.Request.Context(), c.Query("code"), c.Query("state"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ForgotPassword always answers 202 so callers cannot discover accounts
// @Summary Request a password reset email
// @Tags auth
// @Accept json
// @Param body body validator.ForgotPasswordRequest true "Email"
// @Success 202 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /auth/password/forgot [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req validator.ForgotPasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.service.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, SuccessResponse{Message: "If the account exists, a reset link was sent"})
}

// ResetPassword
// @Summary Reset a password with an emailed token
// @Tags auth
// @Accept json
// @Param body body services.ResetPasswordRequest true "Token and new password"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /auth/password/reset [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req services.ResetPasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.service.ResetPassword(c.Request.Context(), &req); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Password updated"})
}

// ChangePassword
// @Summary Change the caller's password
// @Tags auth
// @Accept json
// @Param body body services.ChangePasswordRequest true "Old and new password"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req services.ChangePasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), user, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Password updated"})
}

// Me
// @Summary Current user
// @Tags auth
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	me, err := h.service.Me(c.Request.Context(), user.ID)
	if err != nil {
		// the session user is enough when the provider cannot be reached
		h.log(c).Warn("Failed to load current user", "user_id", user.ID, "error", err)
		c.JSON(http.StatusOK, user)
		return
	}
	c.JSON(http.StatusOK, me)
}
