package weave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/convergio/weave/pkg/weave/agent"
	"github.com/convergio/weave/pkg/weave/checkpoint"
	"github.com/convergio/weave/pkg/weave/event"
	"github.com/convergio/weave/pkg/weave/expr"
	"github.com/convergio/weave/pkg/weave/observability"
	"github.com/convergio/weave/pkg/weave/prompt"
	"github.com/convergio/weave/pkg/weave/retrypolicy"
)

// iterationVar is the guard variable holding a Decision node's loop
// counter during guard evaluation.
const iterationVar = "iteration"

// Execute runs the workflow from its start node. input, when non-nil,
// is stored under the "input" context key before the first task runs.
//
// A terminal instance is re-armed with a fresh context, so a registered
// workflow acts as a reusable template. Calling Execute while the
// instance is already running returns ErrAlreadyRunning.
//
// On failure the instance keeps its position and context; Resume
// retries the failed node.
func (e *Engine) Execute(ctx context.Context, id uint64, input any) error {
	w, err := e.FindByID(id)
	if err != nil {
		return err
	}
	if !w.runMu.TryLock() {
		return fmt.Errorf("%w: id %d", ErrAlreadyRunning, id)
	}
	defer w.runMu.Unlock()

	if w.Status().IsTerminal() {
		w.rearm()
	}
	if input != nil {
		w.Context().Set(InputKey, input)
	}
	w.setCurrent(w.graph.Start())
	return e.run(ctx, w)
}

// Resume continues an interrupted workflow.
//
// With checkpointID > 0 the named checkpoint is loaded from the store
// and the instance's position and context are replaced by it. With
// checkpointID 0, a Failed or Cancelled instance resumes from its live
// in-memory state, retrying the node it stopped at; otherwise the
// latest stored checkpoint is used.
func (e *Engine) Resume(ctx context.Context, id, checkpointID uint64) error {
	w, err := e.FindByID(id)
	if err != nil {
		return err
	}
	if !w.runMu.TryLock() {
		return fmt.Errorf("%w: id %d", ErrAlreadyRunning, id)
	}
	defer w.runMu.Unlock()

	switch {
	case checkpointID > 0:
		if err := e.restoreFromStore(w, checkpointID); err != nil {
			return err
		}
	case w.Status() == StatusFailed || w.Status() == StatusCancelled:
		// Live state is intact. Retry from the node the run stopped at,
		// or from the start if the run never began.
		node := w.Current()
		if node == 0 {
			node = w.graph.Start()
		}
		w.restore(node, w.Context())
	default:
		if err := e.restoreFromStore(w, 0); err != nil {
			return err
		}
	}

	w.cancelled.Store(false)
	return e.run(ctx, w)
}

// restoreFromStore loads checkpointID (or the latest when 0) and
// replaces the instance's position and context with the snapshot.
func (e *Engine) restoreFromStore(w *Workflow, checkpointID uint64) error {
	if e.store == nil {
		return &CheckpointError{WorkflowID: w.id, Op: "restore", Err: errors.New("no checkpoint store configured")}
	}

	var cp *checkpoint.Checkpoint
	var err error
	if checkpointID > 0 {
		cp, err = e.store.Load(w.id, checkpointID)
	} else {
		cp, err = e.store.Latest(w.id)
	}
	if err != nil {
		return &CheckpointError{WorkflowID: w.id, Op: "restore", Err: err}
	}

	restored := NewContext()
	if err := json.Unmarshal(cp.State, restored); err != nil {
		return &CheckpointError{WorkflowID: w.id, Op: "restore", Err: err}
	}
	w.restore(NodeID(cp.NodeID), restored)
	return nil
}

// run drives the traversal loop until a terminal node, a failure, or
// cancellation. The caller holds w.runMu.
func (e *Engine) run(pctx context.Context, w *Workflow) (runErr error) {
	w.setStatus(StatusRunning)
	e.publish(event.New(event.RunStarted, w.id, w.name))
	observability.LogRunStart(e.logger, w.id, w.name)

	start := time.Now()
	ctx := pctx
	var runSpan trace.Span
	if e.tracing {
		ctx, runSpan = e.spans.StartRunSpan(pctx, w.name, w.id)
	}
	defer func() {
		duration := time.Since(start)
		e.metrics.RecordWorkflowRun(pctx, w.name, runErr == nil, duration)
		if e.tracing {
			e.spans.EndSpanWithError(runSpan, runErr)
		}
		durationMs := float64(duration.Microseconds()) / 1000.0
		switch {
		case runErr == nil:
			observability.LogRunComplete(e.logger, w.id, durationMs, w.tasksDone)
		case errors.Is(runErr, ErrCancelled):
			// Cancellation is an outcome, not an error worth alarming on.
		default:
			lastNode := ""
			if n, ok := w.graph.Node(w.Current()); ok {
				lastNode = n.Name
			}
			observability.LogRunError(e.logger, w.id, runErr, durationMs, lastNode)
		}
	}()

	var lastResult any
	var haveResult bool

	for steps := 0; ; steps++ {
		if steps >= e.maxSteps {
			return e.failRun(w, "", fmt.Errorf("%w: %d", ErrMaxSteps, e.maxSteps))
		}
		if err := e.checkCancelled(ctx, w); err != nil {
			return err
		}

		node, ok := w.graph.Node(w.Current())
		if !ok {
			return e.failRun(w, "", fmt.Errorf("%w: no node with id %d", ErrMalformedGraph, w.Current()))
		}

		switch node.Kind {
		case KindTask:
			result, err := e.runTask(ctx, w, w.Context(), node)
			if err != nil {
				return e.failRun(w, node.Name, err)
			}
			lastResult, haveResult = result, true

			next, err := singleNext(w.graph, node.ID)
			if err != nil {
				return e.failRun(w, node.Name, err)
			}
			w.setCurrent(next)
			if err := e.afterTask(ctx, w, next); err != nil {
				return e.failRun(w, node.Name, err)
			}

		case KindDecision:
			next, err := e.decide(w.Context(), w.graph, node)
			if err != nil {
				return e.failRun(w, node.Name, err)
			}
			w.setCurrent(next)

		case KindFork:
			if err := e.runFork(ctx, w, node, w.Context()); err != nil {
				return e.failRun(w, node.Name, err)
			}
			w.setCurrent(node.Join)

		case KindJoin:
			next, err := singleNext(w.graph, node.ID)
			if err != nil {
				return e.failRun(w, node.Name, err)
			}
			w.setCurrent(next)

		case KindSuccess:
			if _, set := w.Context().Get(OutputKey); !set && haveResult {
				w.Context().Set(OutputKey, lastResult)
			}
			w.setStatus(StatusCompleted)
			e.publish(event.New(event.RunCompleted, w.id, w.name).WithNode(node.Name))
			return nil

		case KindFailure:
			return e.failRun(w, node.Name, fmt.Errorf("%w: %s", ErrTerminalFailure, node.Name))

		default:
			return e.failRun(w, node.Name, fmt.Errorf("%w: node %s has unknown kind", ErrMalformedGraph, node.Name))
		}
	}
}

// failRun records the failure on the instance and publishes RunFailed.
func (e *Engine) failRun(w *Workflow, node string, err error) error {
	w.fail(err.Error())
	evt := event.New(event.RunFailed, w.id, w.name).WithField("error", err.Error())
	if node != "" {
		evt = evt.WithNode(node)
	}
	e.publish(evt)
	return err
}

// checkCancelled observes the cancel flag and the caller's context at a
// safe point between nodes.
func (e *Engine) checkCancelled(ctx context.Context, w *Workflow) error {
	if ctx.Err() != nil {
		w.cancelled.Store(true)
	}
	if !w.cancelled.Load() {
		return nil
	}
	w.setStatus(StatusCancelled)
	e.publish(event.New(event.RunCancelled, w.id, w.name))
	return fmt.Errorf("%w: id %d", ErrCancelled, w.id)
}

// runTask expands the node's prompt against cctx, invokes the agent
// (with retries when configured), and stores the result under the
// node's output key.
func (e *Engine) runTask(ctx context.Context, w *Workflow, cctx *Context, node Node) (any, error) {
	ag, err := e.agents.Get(node.AgentRef)
	if err != nil {
		return nil, &AgentError{NodeID: node.ID, Node: node.Name, Agent: node.AgentRef, Err: err}
	}

	e.publish(event.New(event.NodeStarted, w.id, w.name).WithNode(node.Name))
	observability.LogNodeStart(e.logger, int(node.ID), node.Name, node.Kind.String())

	nodeCtx := ctx
	var span trace.Span
	if e.tracing {
		nodeCtx, span = e.spans.StartNodeSpan(ctx, node.Name, node.Kind.String())
	}

	vars := cctx.Snapshot()
	task := agent.Task{
		WorkflowID: w.id,
		Workflow:   w.name,
		NodeID:     int(node.ID),
		Node:       node.Name,
		Prompt:     prompt.Expand(node.Prompt, vars),
	}

	start := time.Now()
	res := retrypolicy.Do(nodeCtx, e.retry, func(c context.Context) (any, error) {
		return ag.Execute(c, task, vars)
	})
	duration := time.Since(start)

	e.metrics.RecordNodeExecution(nodeCtx, node.Name, node.Kind.String(), duration, res.Err)
	if e.tracing {
		e.spans.EndSpanWithError(span, res.Err)
	}

	if res.Err != nil {
		observability.LogNodeError(e.logger, int(node.ID), node.Name, res.Err)
		e.publish(event.New(event.NodeFailed, w.id, w.name).
			WithNode(node.Name).
			WithField("error", res.Err.Error()).
			WithField("attempts", res.Attempts))
		return nil, &AgentError{NodeID: node.ID, Node: node.Name, Agent: node.AgentRef, Err: res.Err}
	}

	cctx.Set(node.OutputKey, res.Value)
	observability.LogNodeComplete(e.logger, int(node.ID), node.Name, float64(duration.Microseconds())/1000.0)
	e.publish(event.New(event.NodeCompleted, w.id, w.name).WithNode(node.Name))
	return res.Value, nil
}

// decide routes a Decision node. Edges are tried in declaration order;
// an empty guard always matches, and validation pins it to last place.
// Taking a Loop edge increments the node's iteration counter.
func (e *Engine) decide(cctx *Context, g *Graph, node Node) (NodeID, error) {
	iterations := cctx.Int(counterKey(node.ID))
	vars := cctx.Snapshot()
	vars[iterationVar] = iterations

	for _, edge := range g.Outgoing(node.ID) {
		matched := edge.Guard == ""
		if !matched {
			ok, err := expr.Evaluate(edge.Guard, vars)
			if err != nil {
				return 0, fmt.Errorf("decision %s: guard %q: %w", node.Name, edge.Guard, err)
			}
			matched = ok
		}
		if matched {
			if edge.Loop {
				cctx.Set(counterKey(node.ID), iterations+1)
			}
			return edge.To, nil
		}
	}
	return 0, &TransitionError{NodeID: node.ID, Node: node.Name}
}

// afterTask counts the completed task and captures a checkpoint when
// the interval is due. next is the node the run will execute next.
func (e *Engine) afterTask(ctx context.Context, w *Workflow, next NodeID) error {
	w.mu.Lock()
	w.tasksDone++
	done := w.tasksDone
	w.mu.Unlock()

	if e.store == nil || done%e.checkpointInterval != 0 {
		return nil
	}
	return e.capture(ctx, w, next)
}

// capture snapshots the run context and saves it against the node that
// will execute next. Failures are logged and swallowed unless the
// engine runs with strict checkpoints.
func (e *Engine) capture(ctx context.Context, w *Workflow, next NodeID) error {
	state, err := json.Marshal(w.Context())
	if err != nil {
		return e.checkpointFailure(w, "serialize", err)
	}
	id, err := e.store.Save(w.id, int(next), state)
	if err != nil {
		return e.checkpointFailure(w, "save", err)
	}

	observability.LogCheckpoint(e.logger, w.id, id, int(next), len(state))
	e.metrics.RecordCheckpoint(ctx, w.name, int64(len(state)))
	e.publish(event.New(event.CheckpointSaved, w.id, w.name).WithField("checkpoint_id", id))
	return nil
}

func (e *Engine) checkpointFailure(w *Workflow, op string, err error) error {
	if e.strictCheckpoints {
		return &CheckpointError{WorkflowID: w.id, Op: op, Err: err}
	}
	observability.LogCheckpointError(e.logger, w.id, op, err)
	return nil
}

// singleNext returns the sole outgoing edge's target.
func singleNext(g *Graph, id NodeID) (NodeID, error) {
	out := g.Outgoing(id)
	if len(out) != 1 {
		return 0, fmt.Errorf("%w: node %d has %d outgoing edges, want 1", ErrMalformedGraph, id, len(out))
	}
	return out[0].To, nil
}
