package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/course-marketplace/internal/services"
	"github.com/SAP-F-2025/course-marketplace/internal/utils"
)

const (
	serviceName        = "course-marketplace"
	healthCheckTimeout = 3 * time.Second
)

// HealthCheck is one dependency checked by /health
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// SiteHandler serves the sitemap and the health endpoint
type SiteHandler struct {
	BaseHandler
	sitemap services.SitemapService
	checks  []HealthCheck
}

func NewSiteHandler(sitemap services.SitemapService, checks []HealthCheck, logger utils.Logger) *SiteHandler {
	return &SiteHandler{
		BaseHandler: NewBaseHandler(logger),
		sitemap:     sitemap,
		checks:      checks,
	}
}

// Sitemap
// @Summary Sitemap of the storefront
// @Tags site
// @Produce xml
// @Success 200 {string} string
// @Router /sitemap.xml [get]
func (h *SiteHandler) Sitemap(c *gin.Context) {
	doc, err := h.sitemap.Generate(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "application/xml; charset=utf-8", doc)
}

// Health reports each dependency. Any failed check answers 503.
// @Summary Health check
// @Tags site
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *SiteHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	checks := make(map[string]string, len(h.checks))
	for _, check := range h.checks {
		if err := check.Check(ctx); err != nil {
			h.log(c).Warn("Health check failed", "check", check.Name, "error", err)
			checks[check.Name] = err.Error()
			status = "unhealthy"
			code = http.StatusServiceUnavailable
			continue
		}
		checks[check.Name] = "ok"
	}

	c.JSON(code, gin.H{
		"status":    status,
		"service":   serviceName,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
