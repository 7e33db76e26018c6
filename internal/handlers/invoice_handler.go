package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/course-marketplace/internal/services"
	"github.com/SAP-F-2025/course-marketplace/internal/utils"
)

type InvoiceHandler struct {
	BaseHandler
	service services.InvoiceService
}

func NewInvoiceHandler(service services.InvoiceService, logger utils.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// GetInvoice downloads the PDF invoice of a provider payment
// @Summary Download an invoice
// @Tags invoices
// @Produce application/pdf
// @Param payment_id path string true "MercadoPago payment ID"
// @Success 200 {file} file
// @Failure 404 {object} ErrorResponse
// @Router /invoices/{payment_id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	h.serveInvoice(c, c.Param("payment_id"))
}

// GetInvoiceByQuery is the paymentId query form of GetInvoice
// @Summary Download an invoice
// @Tags invoices
// @Produce application/pdf
// @Param paymentId query string true "MercadoPago payment ID"
// @Success 200 {file} file
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /invoices [get]
func (h *InvoiceHandler) GetInvoiceByQuery(c *gin.Context) {
	paymentID := strings.TrimSpace(c.Query("paymentId"))
	if paymentID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "paymentId is required"})
		return
	}
	h.serveInvoice(c, paymentID)
}

func (h *InvoiceHandler) serveInvoice(c *gin.Context, paymentID string) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	file, err := h.service.GetInvoice(c.Request.Context(), user, paymentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

// Resend
// @Summary Email an invoice again
// @Tags admin
// @Produce json
// @Param payment_id path string true "MercadoPago payment ID"
// @Success 202 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/invoices/{payment_id}/resend [post]
func (h *InvoiceHandler) Resend(c *gin.Context) {
	if err := h.service.Resend(c.Request.Context(), c.Param("payment_id")); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, SuccessResponse{Message: "Invoice queued"})
}
