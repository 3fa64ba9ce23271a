package weave

import (
	"log/slog"

	"github.com/convergio/weave/pkg/weave/agent"
	"github.com/convergio/weave/pkg/weave/checkpoint"
	"github.com/convergio/weave/pkg/weave/event"
	"github.com/convergio/weave/pkg/weave/observability"
	"github.com/convergio/weave/pkg/weave/retrypolicy"
)

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithCapacity bounds how many workflows the engine tracks at once.
// Register returns ErrRegistryFull beyond this. Default: 64.
func WithCapacity(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.capacity = n
		}
	}
}

// WithMaxSteps sets the per-run ceiling on node executions, a safety
// net against unbounded loops. Default: 1000.
func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// WithCheckpointStore enables durable checkpoints. Without a store,
// runs keep state in memory only and Resume works from the live
// instance alone.
func WithCheckpointStore(store checkpoint.Store) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithCheckpointInterval captures a checkpoint every n completed tasks
// instead of after each one. Default: 1.
func WithCheckpointInterval(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.checkpointInterval = n
		}
	}
}

// WithStrictCheckpoints makes checkpoint failures fail the run instead
// of logging and continuing.
func WithStrictCheckpoints() Option {
	return func(e *Engine) {
		e.strictCheckpoints = true
	}
}

// WithAgents replaces the engine's agent registry.
func WithAgents(r *agent.Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.agents = r
		}
	}
}

// WithEventBus publishes lifecycle events to the given bus.
func WithEventBus(bus *event.Bus) Option {
	return func(e *Engine) {
		e.bus = bus
	}
}

// WithLogger enables structured logging of run progress.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics records execution metrics through the given recorder.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithTracing emits OTel spans for runs and node executions.
func WithTracing(spans observability.SpanManager) Option {
	return func(e *Engine) {
		if spans != nil {
			e.spans = spans
			e.tracing = true
		}
	}
}

// WithTaskRetry retries transient task failures under the given policy.
// Default: no retries.
func WithTaskRetry(p retrypolicy.Policy) Option {
	return func(e *Engine) {
		e.retry = p
	}
}
