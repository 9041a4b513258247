package mcpgateway

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// unknownServerLabel replaces server names the manager does not know, so
// arbitrary request input cannot mint new series.
const unknownServerLabel = "unknown"

// metrics holds the gateway's collectors on a private registry so several
// gateways can coexist in one process.
type metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	toolCalls       *prometheus.CounterVec
	toolDuration    *prometheus.HistogramVec
	aggregatedTools prometheus.GaugeFunc
}

func newMetrics(toolCount func() int) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mcp_gateway",
			Name:      "http_requests_total",
			Help:      "HTTP requests handled, by route and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mcp_gateway",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mcp_gateway",
			Name:      "tool_calls_total",
			Help:      "Backend tool invocations by server, provider, and outcome.",
		}, []string{"server", "provider", "outcome"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mcp_gateway",
			Name:      "tool_call_duration_seconds",
			Help:      "Backend tool invocation latency by server.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"server"}),
	}
	m.aggregatedTools = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "mcp_gateway",
		Name:      "aggregated_tools",
		Help:      "Tools currently exposed on the aggregated MCP endpoint.",
	}, func() float64 { return float64(toolCount()) })

	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.toolCalls,
		m.toolDuration,
		m.aggregatedTools,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *metrics) observeRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *metrics) observeToolCall(server, provider string, err error, elapsed time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	if provider == "" {
		provider = "none"
	}
	m.toolCalls.WithLabelValues(server, provider, outcome).Inc()
	m.toolDuration.WithLabelValues(server).Observe(elapsed.Seconds())
}
