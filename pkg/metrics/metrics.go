package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Scheduler metrics
var (
	// SchedulerCycles counts loop iterations by loop (market, analysis) and result (ok, error)
	SchedulerCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "energydesk_scheduler_cycles_total",
			Help: "Total number of scheduler loop iterations",
		},
		[]string{"loop", "result"},
	)

	// SchedulerCycleDuration records how long one loop iteration took
	SchedulerCycleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "energydesk_scheduler_cycle_duration_seconds",
			Help:    "Duration of one scheduler loop iteration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"loop"},
	)
)

// Agent metrics
var (
	// AgentRuns counts agent executions by agent and result (ok, error, panic)
	AgentRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "energydesk_agent_runs_total",
			Help: "Total number of agent executions",
		},
		[]string{"agent", "result"},
	)

	// AgentLatency records agent execution time
	AgentLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "energydesk_agent_latency_seconds",
			Help:    "Latency in seconds of a single agent execution",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"agent"},
	)
)

// Feed metrics
var (
	// FeedFallbacks counts quotes substituted with synthetic data, by symbol
	FeedFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "energydesk_feed_fallbacks_total",
			Help: "Total number of quotes substituted by the synthetic feed",
		},
		[]string{"symbol"},
	)
)

// Websocket metrics
var (
	// ActiveConnections is the number of authenticated push channels
	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "energydesk_ws_active_connections",
			Help: "Number of registered push channels",
		},
	)

	// EventsSent counts push events by type and result (delivered, dropped, offline)
	EventsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "energydesk_ws_events_total",
			Help: "Total number of push events attempted",
		},
		[]string{"type", "result"},
	)
)

// HTTP metrics
var (
	// HTTPRequests counts API requests by route template, method and status code
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "energydesk_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "energydesk_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)

func init() {
	prometheus.MustRegister(SchedulerCycles, SchedulerCycleDuration)
	prometheus.MustRegister(AgentRuns, AgentLatency)
	prometheus.MustRegister(FeedFallbacks)
	prometheus.MustRegister(ActiveConnections, EventsSent)
	prometheus.MustRegister(HTTPRequests, HTTPDuration)
}
