package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	r := gin.New()
	r.GET("/metrics", m.Handler())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestMetrics_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New(prometheus.NewRegistry())

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/courses/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/courses/1", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	body := scrape(t, m)
	assert.Contains(t, body, `course_marketplace_http_requests_total{method="GET",route="/courses/:id",status="200"} 2`)
	assert.Contains(t, body, `course_marketplace_http_requests_total{method="GET",route="unmatched",status="404"} 1`)
	assert.Contains(t, body, "course_marketplace_http_request_duration_seconds_bucket")
}

func TestMetrics_DomainCounters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New(nil)
	m.PaymentProcessed("approved", "recorded")
	m.EnrollmentCreated("payment")
	m.InvoiceSent("ok")
	m.InvoiceSent("ok")

	body := scrape(t, m)
	assert.Contains(t, body, `course_marketplace_payments_processed_total{outcome="recorded",status="approved"} 1`)
	assert.Contains(t, body, `course_marketplace_enrollments_created_total{source="payment"} 1`)
	assert.Contains(t, body, `course_marketplace_invoices_sent_total{result="ok"} 2`)

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.InvoiceSent("ok") })
}
