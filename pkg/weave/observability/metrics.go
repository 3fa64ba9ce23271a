package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records workflow execution metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordNodeExecution records a node execution with its duration and error status.
	RecordNodeExecution(ctx context.Context, node, kind string, duration time.Duration, err error)

	// RecordWorkflowRun records a workflow run completion.
	RecordWorkflowRun(ctx context.Context, workflow string, success bool, duration time.Duration)

	// RecordCheckpoint records a checkpoint save.
	RecordCheckpoint(ctx context.Context, workflow string, sizeBytes int64)

	// RecordBranches records the branch count of a fork dispatch.
	RecordBranches(ctx context.Context, workflow string, count int64)
}

type otelMetrics struct {
	nodeExecutions metric.Int64Counter
	nodeLatency    metric.Float64Histogram
	nodeErrors     metric.Int64Counter
	workflowRuns   metric.Int64Counter
	runLatency     metric.Float64Histogram
	checkpointSize metric.Int64Histogram
	forkBranches   metric.Int64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("weave")

	nodeExecutions, err := meter.Int64Counter("weave.node.executions",
		metric.WithDescription("Number of node executions"),
	)
	if err != nil {
		return nil, err
	}

	nodeLatency, err := meter.Float64Histogram("weave.node.latency_ms",
		metric.WithDescription("Node execution latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	nodeErrors, err := meter.Int64Counter("weave.node.errors",
		metric.WithDescription("Number of node execution errors"),
	)
	if err != nil {
		return nil, err
	}

	workflowRuns, err := meter.Int64Counter("weave.workflow.runs",
		metric.WithDescription("Number of workflow runs"),
	)
	if err != nil {
		return nil, err
	}

	runLatency, err := meter.Float64Histogram("weave.workflow.latency_ms",
		metric.WithDescription("Workflow run latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	checkpointSize, err := meter.Int64Histogram("weave.checkpoint.size_bytes",
		metric.WithDescription("Checkpoint state size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	forkBranches, err := meter.Int64Histogram("weave.fork.branches",
		metric.WithDescription("Branch count per fork dispatch"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		nodeExecutions: nodeExecutions,
		nodeLatency:    nodeLatency,
		nodeErrors:     nodeErrors,
		workflowRuns:   workflowRuns,
		runLatency:     runLatency,
		checkpointSize: checkpointSize,
		forkBranches:   forkBranches,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder backed by OpenTelemetry.
// If metric initialization fails, a no-op recorder is returned.
//
// The recorder uses the global OTel meter provider. Configure the
// provider before calling:
//
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

func (m *otelMetrics) RecordNodeExecution(ctx context.Context, node, kind string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("node", node),
		attribute.String("kind", kind),
	}

	m.nodeExecutions.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.nodeLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if err != nil {
		m.nodeErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func (m *otelMetrics) RecordWorkflowRun(ctx context.Context, workflow string, success bool, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("workflow", workflow),
		attribute.Bool("success", success),
	}
	m.workflowRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.runLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

func (m *otelMetrics) RecordCheckpoint(ctx context.Context, workflow string, sizeBytes int64) {
	m.checkpointSize.Record(ctx, sizeBytes, metric.WithAttributes(
		attribute.String("workflow", workflow),
	))
}

func (m *otelMetrics) RecordBranches(ctx context.Context, workflow string, count int64) {
	m.forkBranches.Record(ctx, count, metric.WithAttributes(
		attribute.String("workflow", workflow),
	))
}
