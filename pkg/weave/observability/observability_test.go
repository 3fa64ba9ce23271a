package observability_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/convergio/weave/pkg/weave/observability"
)

func TestNewLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewLogger(&buf, "warn")

	logger.Info("quiet")
	logger.Warn("loud")

	out := buf.String()
	assert.NotContains(t, out, "quiet")
	assert.Contains(t, out, "loud")
}

func TestNewLogger_UnknownLevelMeansInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewLogger(&buf, "chatty")

	logger.Debug("hidden")
	logger.Info("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestEnrichLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewLogger(&buf, "info")

	enriched := observability.EnrichLogger(logger, 7, "review")
	enriched.Info("step")

	out := buf.String()
	assert.Contains(t, out, "workflow_id=7")
	assert.Contains(t, out, "workflow=review")

	assert.Nil(t, observability.EnrichLogger(nil, 1, "w"))
}

func TestLogHelpers_WriteStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewLogger(&buf, "debug")

	observability.LogRunStart(logger, 3, "pipeline")
	observability.LogNodeStart(logger, 2, "Extract", "task")
	observability.LogNodeError(logger, 2, "Extract", errors.New("boom"))
	observability.LogRunError(logger, 3, errors.New("boom"), 40.0, "Extract")
	observability.LogCheckpoint(logger, 3, 1, 2, 128)

	out := buf.String()
	assert.Contains(t, out, "workflow starting")
	assert.Contains(t, out, "node=Extract")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "checkpoint")
}

func TestLogHelpers_NilLoggerIsSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		observability.LogRunStart(nil, 1, "w")
		observability.LogRunComplete(nil, 1, 1.0, 1)
		observability.LogRunError(nil, 1, errors.New("x"), 1.0, "n")
		observability.LogNodeStart(nil, 1, "n", "task")
		observability.LogNodeComplete(nil, 1, "n", 1.0)
		observability.LogNodeError(nil, 1, "n", errors.New("x"))
		observability.LogCheckpoint(nil, 1, 1, 1, 1)
		observability.LogCheckpointError(nil, 1, "save", errors.New("x"))
	})
}

func TestMetricsRecorder_EmitsInstruments(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))

	rec := observability.NewMetricsRecorder()
	ctx := context.Background()
	rec.RecordNodeExecution(ctx, "Extract", "task", 25*time.Millisecond, nil)
	rec.RecordNodeExecution(ctx, "Extract", "task", 25*time.Millisecond, errors.New("boom"))
	rec.RecordWorkflowRun(ctx, "pipeline", true, 120*time.Millisecond)
	rec.RecordCheckpoint(ctx, "pipeline", 256)
	rec.RecordBranches(ctx, "pipeline", 3)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	names := map[string]bool{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			names[m.Name] = true
		}
	}
	for _, want := range []string{
		"weave.node.executions",
		"weave.node.latency_ms",
		"weave.node.errors",
		"weave.workflow.runs",
		"weave.workflow.latency_ms",
		"weave.checkpoint.size_bytes",
		"weave.fork.branches",
	} {
		assert.True(t, names[want], "missing instrument %s", want)
	}
}

func TestNoopImplementations(t *testing.T) {
	assert.NotPanics(t, func() {
		ctx := context.Background()
		var m observability.MetricsRecorder = observability.NoopMetrics{}
		m.RecordNodeExecution(ctx, "n", "task", time.Millisecond, nil)
		m.RecordWorkflowRun(ctx, "w", false, time.Millisecond)
		m.RecordCheckpoint(ctx, "w", 1)
		m.RecordBranches(ctx, "w", 1)

		var s observability.SpanManager = observability.NoopSpanManager{}
		spanCtx, span := s.StartRunSpan(ctx, "w", 1)
		_, nodeSpan := s.StartNodeSpan(spanCtx, "n", "task")
		s.EndSpanWithError(nodeSpan, errors.New("x"))
		s.EndSpanWithError(span, nil)
		s.AddSpanEvent(spanCtx, "event")
	})
}

func TestSpanManager_RecordsError(t *testing.T) {
	s := observability.NewSpanManager()
	ctx, span := s.StartRunSpan(context.Background(), "w", 1)
	_, nodeSpan := s.StartNodeSpan(ctx, "n", "task")

	assert.NotPanics(t, func() {
		s.AddSpanEvent(ctx, "checkpoint", attribute.Int("checkpoint_id", 1))
		s.EndSpanWithError(nodeSpan, errors.New("boom"))
		s.EndSpanWithError(span, nil)
	})
}

func TestTimedOperation(t *testing.T) {
	done := observability.TimedOperation()
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, done(), 5.0)
}
