package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's Prometheus collectors on a private registry, so
// several servers can live in one process.
//
// Metrics:
//   - decide_http_requests_total{route,status}
//   - decide_http_request_duration_seconds{route}
//   - decide_analyses_total{mode,outcome}
//   - decide_degraded_analyses_total
//   - decide_stream_clients
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	analyses *prometheus.CounterVec
	degraded prometheus.Counter
}

// NewMetrics registers the collectors. clients reports connected stream clients.
func NewMetrics(clients func() int) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "decide_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "decide_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		analyses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "decide_analyses_total",
			Help: "Completed analyses by mode and outcome",
		}, []string{"mode", "outcome"}),
		degraded: factory.NewCounter(prometheus.CounterOpts{
			Name: "decide_degraded_analyses_total",
			Help: "Analyses where a remote stage fell back to local inference",
		}),
	}
	if clients != nil {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "decide_stream_clients",
			Help: "Connected analysis stream websocket clients",
		}, func() float64 { return float64(clients()) })
	}
	return m
}

// Middleware records request counts and latency per matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// ObserveAnalysis counts one analysis outcome.
func (m *Metrics) ObserveAnalysis(mode, outcome string, degraded bool) {
	m.analyses.WithLabelValues(mode, outcome).Inc()
	if degraded {
		m.degraded.Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
