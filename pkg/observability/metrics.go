// Package observability provides Prometheus metrics and the injectable
// snapshot collector for monitoring the assistant orchestrator.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts chat requests by delivery mode and outcome.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "electrohub_requests_total",
			Help: "Total chat requests",
		},
		[]string{"mode", "status"},
	)

	// RequestDuration records end-to-end chat request duration in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "electrohub_request_duration_seconds",
			Help:    "Chat request duration",
			Buckets: LLMBuckets,
		},
		[]string{"mode"},
	)

	// StreamingConnections tracks active incremental-delivery connections.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "electrohub_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)

	// ProviderRequestsTotal counts calls sent to LLM providers by role.
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "electrohub_provider_requests_total",
			Help: "Provider requests",
		},
		[]string{"provider", "role", "status"},
	)

	// ProviderLatency records provider call latency in seconds.
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "electrohub_provider_latency_seconds",
			Help:    "Provider latency",
			Buckets: LLMBuckets,
		},
		[]string{"provider", "role"},
	)

	// FailoverTotal counts per-request switches to the secondary provider.
	FailoverTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "electrohub_provider_failover_total",
			Help: "Quota-triggered failovers to the secondary provider",
		},
	)

	// ToolExecutionsTotal counts tool executions by name and outcome.
	ToolExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "electrohub_tool_executions_total",
			Help: "Tool executions",
		},
		[]string{"tool_name", "status"},
	)

	// ToolDuration records tool execution duration in seconds.
	ToolDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "electrohub_tool_duration_seconds",
			Help:    "Tool execution duration",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"tool_name"},
	)

	// PersonaSelectionsTotal counts routing decisions by persona.
	PersonaSelectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "electrohub_persona_selections_total",
			Help: "Persona routing decisions",
		},
		[]string{"persona"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingConnections,
		ProviderRequestsTotal,
		ProviderLatency,
		FailoverTotal,
		ToolExecutionsTotal,
		ToolDuration,
		PersonaSelectionsTotal,
	)
}
