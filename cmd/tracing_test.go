package cmd

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"parkgo/runner"
)

func TestNewTracerProvider_RecordsWithoutExporter(t *testing.T) {
	tp, err := newTracerProvider(context.Background(), settings{})
	require.NoError(t, err)
	defer shutdownTracing(tp, slog.Default())

	_, span := tp.Tracer(runner.TracerName).Start(context.Background(), "workflow.run")
	defer span.End()

	assert.True(t, span.IsRecording())
	assert.True(t, span.SpanContext().IsSampled())
	assert.Equal(t, tp, otel.GetTracerProvider())
}

func TestOTLPEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")
	assert.Equal(t, "http://collector:4318", otlpEndpoint())

	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "http://traces:4318/v1/traces")
	assert.Equal(t, "http://traces:4318/v1/traces", otlpEndpoint())
}
