// Package observability provides structured logging, metrics, and
// distributed tracing for workflow execution.
//
// Features:
//   - Structured logging via slog, with tint for colorized terminals
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// NewLogger builds a slog.Logger writing to w at the given level
// (debug, info, warn, error; anything else means info). Terminal
// destinations get colorized tint output, everything else plain text.
func NewLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      lvl,
			TimeFormat: time.Kitchen,
		}))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// EnrichLogger adds workflow context to a logger.
func EnrichLogger(logger *slog.Logger, workflowID uint64, workflow string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.Uint64("workflow_id", workflowID),
		slog.String("workflow", workflow),
	)
}

// LogRunStart logs the start of a workflow run.
func LogRunStart(logger *slog.Logger, workflowID uint64, workflow string) {
	if logger == nil {
		return
	}
	logger.Info("workflow starting",
		slog.Uint64("workflow_id", workflowID),
		slog.String("workflow", workflow),
	)
}

// LogRunComplete logs successful workflow completion.
func LogRunComplete(logger *slog.Logger, workflowID uint64, durationMs float64, tasksDone int) {
	if logger == nil {
		return
	}
	logger.Info("workflow completed",
		slog.Uint64("workflow_id", workflowID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("tasks_executed", tasksDone),
	)
}

// LogRunError logs workflow failure.
func LogRunError(logger *slog.Logger, workflowID uint64, err error, durationMs float64, lastNode string) {
	if logger == nil {
		return
	}
	logger.Error("workflow failed",
		slog.Uint64("workflow_id", workflowID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.String("last_node", lastNode),
	)
}

// LogNodeStart logs node execution start.
func LogNodeStart(logger *slog.Logger, nodeID int, node, kind string) {
	if logger == nil {
		return
	}
	logger.Debug("node starting",
		slog.Int("node_id", nodeID),
		slog.String("node", node),
		slog.String("kind", kind),
	)
}

// LogNodeComplete logs successful node completion.
func LogNodeComplete(logger *slog.Logger, nodeID int, node string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("node completed",
		slog.Int("node_id", nodeID),
		slog.String("node", node),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogNodeError logs node execution failure.
func LogNodeError(logger *slog.Logger, nodeID int, node string, err error) {
	if logger == nil {
		return
	}
	logger.Error("node failed",
		slog.Int("node_id", nodeID),
		slog.String("node", node),
		slog.String("error", err.Error()),
	)
}

// LogCheckpoint logs checkpoint creation.
func LogCheckpoint(logger *slog.Logger, workflowID, checkpointID uint64, nodeID int, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("checkpoint saved",
		slog.Uint64("workflow_id", workflowID),
		slog.Uint64("checkpoint_id", checkpointID),
		slog.Int("node_id", nodeID),
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogCheckpointError logs a checkpoint failure (non-fatal unless the
// engine runs in strict checkpoint mode).
func LogCheckpointError(logger *slog.Logger, workflowID uint64, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("checkpoint failed",
		slog.Uint64("workflow_id", workflowID),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation. The returned
// function reports the elapsed time in milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000.0
	}
}
