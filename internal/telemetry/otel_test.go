package telemetry

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/Aidin1998/energydesk/pkg/metrics"
)

func TestSetupTracingExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	ctx := context.Background()

	shutdown, err := Setup(ctx, Config{ServiceName: "energydesk-test", Tracing: true, Writer: &buf})
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(ctx, "cycle")
	span.End()

	require.NoError(t, shutdown(ctx))
	assert.Contains(t, buf.String(), `"Name":"cycle"`)
}

func TestSetupDisabledIsNoop(t *testing.T) {
	ctx := context.Background()
	shutdown, err := Setup(ctx, Config{ServiceName: "energydesk-test"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(ctx))
}

func TestSetupMetricsExportsDeskInstruments(t *testing.T) {
	var buf bytes.Buffer
	ctx := context.Background()

	shutdown, err := Setup(ctx, Config{ServiceName: "energydesk-test", Metrics: true, Writer: &buf})
	require.NoError(t, err)

	metrics.RecordSchedulerCycle(ctx, "market", "ok", 20*time.Millisecond)
	metrics.RecordAgentRun(ctx, "risk_manager", "error", 5*time.Millisecond)

	require.NoError(t, shutdown(ctx))
	out := buf.String()
	assert.Contains(t, out, `"Name":"energydesk.scheduler.cycles"`)
	assert.Contains(t, out, `"Name":"energydesk.agent.runs"`)
	assert.NotContains(t, out, `"ScopeMetrics":null`)
}
