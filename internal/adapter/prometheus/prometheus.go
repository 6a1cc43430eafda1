package prometheus

import (
	"errors"
	"strconv"
	"time"

	"github.com/sm8ta/webike_rental_microservice/internal/core/domain"
	"github.com/sm8ta/webike_rental_microservice/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var _ ports.MetricsPort = (*PrometheusAdapter)(nil)

type PrometheusAdapter struct {
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	relations *prometheus.CounterVec
}

// NewPrometheusAdapter registers the collectors with the default registry.
func NewPrometheusAdapter() *PrometheusAdapter {
	return NewPrometheusAdapterWith(prometheus.DefaultRegisterer)
}

func NewPrometheusAdapterWith(reg prometheus.Registerer) *PrometheusAdapter {
	a := &PrometheusAdapter{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		relations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relation_operations_total",
			Help: "Relationship operations by outcome.",
		}, []string{"operation", "outcome"}),
	}
	reg.MustRegister(a.requests, a.duration, a.relations)
	return a
}

func (a *PrometheusAdapter) RecordMetrics(c *gin.Context, start time.Time) {
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	status := strconv.Itoa(c.Writer.Status())
	a.requests.WithLabelValues(c.Request.Method, route, status).Inc()
	a.duration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
}

func (a *PrometheusAdapter) RecordRelation(operation string, err error) {
	a.relations.WithLabelValues(operation, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrAlreadyLinked), errors.Is(err, domain.ErrAlreadyRented):
		return "conflict"
	case errors.Is(err, domain.ErrNotLinked), errors.Is(err, domain.ErrNotRented), errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrNotAuthorized):
		return "forbidden"
	default:
		return "error"
	}
}
