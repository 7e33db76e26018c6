package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "course_marketplace"

// Metrics holds the HTTP and domain collectors
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec

	PaymentsProcessed  *prometheus.CounterVec
	EnrollmentsCreated *prometheus.CounterVec
	InvoicesSent       *prometheus.CounterVec
}

// New registers the collectors on reg. A nil reg creates a private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		PaymentsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_processed_total",
			Help:      "Webhook payments by provider status and outcome.",
		}, []string{"status", "outcome"}),
		EnrollmentsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrollments_created_total",
			Help:      "New enrollments by source.",
		}, []string{"source"}),
		InvoicesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoices_sent_total",
			Help:      "Invoice emails by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(m.requests, m.duration, m.PaymentsProcessed, m.EnrollmentsCreated, m.InvoicesSent)
	return m
}

// Middleware records request count and latency per matched route
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Registry is shared with collectors registered elsewhere, like the event router
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

func (m *Metrics) PaymentProcessed(status, outcome string) {
	if m == nil {
		return
	}
	m.PaymentsProcessed.WithLabelValues(status, outcome).Inc()
}

func (m *Metrics) EnrollmentCreated(source string) {
	if m == nil {
		return
	}
	m.EnrollmentsCreated.WithLabelValues(source).Inc()
}

func (m *Metrics) InvoiceSent(result string) {
	if m == nil {
		return
	}
	m.InvoicesSent.WithLabelValues(result).Inc()
}
