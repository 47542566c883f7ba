package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instruments from the global meter. They delegate to whatever provider
// telemetry.Setup installs and are no-ops when none is installed.
var (
	meter = otel.Meter("github.com/Aidin1998/energydesk")

	otelCycles, _ = meter.Int64Counter("energydesk.scheduler.cycles",
		metric.WithDescription("Scheduler loop iterations"))
	otelCycleDuration, _ = meter.Float64Histogram("energydesk.scheduler.cycle.duration",
		metric.WithDescription("Duration of one scheduler loop iteration"),
		metric.WithUnit("s"))
	otelAgentRuns, _ = meter.Int64Counter("energydesk.agent.runs",
		metric.WithDescription("Agent executions"))
	otelAgentLatency, _ = meter.Float64Histogram("energydesk.agent.latency",
		metric.WithDescription("Latency of a single agent execution"),
		metric.WithUnit("s"))
)

// RecordSchedulerCycle records one loop iteration; result is ok or error
func RecordSchedulerCycle(ctx context.Context, loop, result string, elapsed time.Duration) {
	SchedulerCycles.WithLabelValues(loop, result).Inc()
	SchedulerCycleDuration.WithLabelValues(loop).Observe(elapsed.Seconds())

	loopAttr := attribute.String("loop", loop)
	otelCycles.Add(ctx, 1, metric.WithAttributes(loopAttr, attribute.String("result", result)))
	otelCycleDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(loopAttr))
}

// RecordAgentRun records one agent execution; result is ok, error or panic
func RecordAgentRun(ctx context.Context, agent, result string, elapsed time.Duration) {
	AgentRuns.WithLabelValues(agent, result).Inc()
	AgentLatency.WithLabelValues(agent).Observe(elapsed.Seconds())

	agentAttr := attribute.String("agent", agent)
	otelAgentRuns.Add(ctx, 1, metric.WithAttributes(agentAttr, attribute.String("result", result)))
	otelAgentLatency.Record(ctx, elapsed.Seconds(), metric.WithAttributes(agentAttr))
}
