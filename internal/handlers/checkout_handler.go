package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/course-marketplace/internal/services"
	"github.com/SAP-F-2025/course-marketplace/internal/utils"
)

const maxWebhookBody = 64 << 10

type CheckoutHandler struct {
	BaseHandler
	service services.CheckoutService
}

func NewCheckoutHandler(service services.CheckoutService, logger utils.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// CreatePreference
// @Summary Start a MercadoPago checkout for a paid course
// @Tags checkout
// @Accept json
// @Produce json
// @Param body body services.CheckoutRequest true "Course"
// @Success 201 {object} services.PreferenceResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /checkout/preferences [post]
func (h *CheckoutHandler) CreatePreference(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req services.CheckoutRequest
	if !h.bindJSON(c, &req) {
		return
	}

	pref, err := h.service.CreatePreference(c.Request.Context(), user, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, pref)
}

type webhookBody struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID json.RawMessage `json:"id"`
	} `json:"data"`
}

// parseNotification reads type and data id from the body, then from the query string
func parseNotification(c *gin.Context) services.WebhookNotification {
	n := services.WebhookNotification{
		Signature: c.GetHeader("x-signature"),
		RequestID: c.GetHeader("x-request-id"),
	}

	raw, _ := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	var body webhookBody
	if len(raw) > 0 && json.Unmarshal(raw, &body) == nil {
		n.Type = body.Type
		n.DataID = strings.Trim(string(body.Data.ID), `"`)
	}

	if n.Type == "" {
		n.Type = c.Query("type")
	}
	if n.Type == "" {
		n.Type = c.Query("topic")
	}
	if n.DataID == "" || n.DataID == "null" {
		n.DataID = c.Query("data.id")
	}
	if n.DataID == "" {
		n.DataID = c.Query("id")
	}
	return n
}

// Webhook receives MercadoPago payment notifications
// @Summary MercadoPago notification
// @Tags checkout
// @Accept json
// @Produce json
// @Success 200 {object} services.WebhookResult
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /payments/webhook [post]
func (h *CheckoutHandler) Webhook(c *gin.Context) {
	n := parseNotification(c)
	h.LogRequest(c, "Payment notification", "type", n.Type, "data_id", n.DataID)

	result, err := h.service.HandleWebhook(c.Request.Context(), n)
	if err != nil {
		h.log(c).Warn("Payment notification rejected", "data_id", n.DataID, "error", err)
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
