package weave

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/convergio/weave/pkg/weave/event"
)

// runFork executes every branch of a fork concurrently on a clone of
// into, waits for all of them, and merges the surviving clones back in
// declared branch order, so later declarations win contested keys.
//
// Branches are never force-cancelled: a failing branch does not stop
// its siblings, and successful branch results are merged even when the
// fork as a whole fails.
func (e *Engine) runFork(ctx context.Context, w *Workflow, fork Node, into *Context) error {
	branches := w.graph.Outgoing(fork.ID)
	e.metrics.RecordBranches(ctx, w.name, int64(len(branches)))
	e.publish(event.New(event.NodeStarted, w.id, w.name).
		WithNode(fork.Name).
		WithField("branches", len(branches)))

	type outcome struct {
		entry string
		bctx  *Context
		err   error
	}
	outcomes := make([]outcome, len(branches))

	var wg sync.WaitGroup
	for i, edge := range branches {
		entry, _ := w.graph.Node(edge.To)
		outcomes[i] = outcome{entry: entry.Name, bctx: into.Clone()}

		wg.Add(1)
		go func(i int, from NodeID) {
			defer wg.Done()
			outcomes[i].err = e.runBranch(ctx, w, outcomes[i].bctx, from, fork.Join)
		}(i, edge.To)
	}
	wg.Wait()

	var errs []error
	for _, o := range outcomes {
		if o.err != nil {
			errs = append(errs, &BranchError{Fork: fork.Name, Entry: o.entry, Err: o.err})
			continue
		}
		into.MergeFrom(o.bctx)
	}

	if len(errs) > 0 {
		err := errors.Join(errs...)
		e.publish(event.New(event.NodeFailed, w.id, w.name).
			WithNode(fork.Name).
			WithField("error", err.Error()))
		return err
	}

	e.publish(event.New(event.NodeCompleted, w.id, w.name).WithNode(fork.Name))
	return nil
}

// runBranch walks one branch from its entry node until it reaches the
// fork's join, executing against the branch's private context clone.
// Nested forks recurse with that clone as the merge target.
func (e *Engine) runBranch(ctx context.Context, w *Workflow, bctx *Context, from, join NodeID) error {
	for steps := 0; ; steps++ {
		if steps >= e.maxSteps {
			return fmt.Errorf("%w: %d", ErrMaxSteps, e.maxSteps)
		}
		if from == join {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if w.cancelled.Load() {
			return fmt.Errorf("%w: id %d", ErrCancelled, w.id)
		}

		node, ok := w.graph.Node(from)
		if !ok {
			return fmt.Errorf("%w: no node with id %d", ErrMalformedGraph, from)
		}

		switch node.Kind {
		case KindTask:
			if _, err := e.runTask(ctx, w, bctx, node); err != nil {
				return err
			}
			next, err := singleNext(w.graph, node.ID)
			if err != nil {
				return err
			}
			from = next

		case KindDecision:
			next, err := e.decide(bctx, w.graph, node)
			if err != nil {
				return err
			}
			from = next

		case KindFork:
			if err := e.runFork(ctx, w, node, bctx); err != nil {
				return err
			}
			from = node.Join

		case KindJoin:
			// A nested fork's join, passed through on the way out.
			next, err := singleNext(w.graph, node.ID)
			if err != nil {
				return err
			}
			from = next

		default:
			return fmt.Errorf("%w: terminal node %s inside fork branch", ErrMalformedGraph, node.Name)
		}
	}
}
