package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics records request latency per route.
type HTTPMetrics struct {
	duration *prometheus.HistogramVec
	inflight prometheus.Gauge
}

func NewHTTPMetrics(cfg Config) *HTTPMetrics {
	return newHTTPMetrics(prometheus.DefaultRegisterer, cfg)
}

func newHTTPMetrics(registerer prometheus.Registerer, cfg Config) *HTTPMetrics {
	labels := constLabels(cfg)
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "clinicbill_http_request_duration_seconds",
		Help:        "HTTP request latency by route.",
		Buckets:     prometheus.DefBuckets,
		ConstLabels: labels,
	}, []string{"method", "route", "status_code"})
	inflight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "clinicbill_http_requests_in_flight",
		Help:        "HTTP requests currently being served.",
		ConstLabels: labels,
	})
	return &HTTPMetrics{
		duration: register(registerer, duration),
		inflight: register(registerer, inflight),
	}
}

func (m *HTTPMetrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		m.inflight.Inc()
		defer m.inflight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.duration.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
