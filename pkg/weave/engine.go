package weave

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/convergio/weave/pkg/weave/agent"
	"github.com/convergio/weave/pkg/weave/checkpoint"
	"github.com/convergio/weave/pkg/weave/event"
	"github.com/convergio/weave/pkg/weave/observability"
	"github.com/convergio/weave/pkg/weave/retrypolicy"
)

// Engine is a bounded registry of workflow instances plus the executor
// that drives them. Construct one with New, register graphs with
// Register, then Execute or Resume instances by id.
//
// Engine is safe for concurrent use. Different workflows may run
// concurrently; a single instance runs at most once at a time.
type Engine struct {
	mu     sync.RWMutex
	byID   map[uint64]*Workflow
	byName map[string]*Workflow
	order  []uint64
	nextID uint64

	capacity int
	maxSteps int

	store              checkpoint.Store
	checkpointInterval int
	strictCheckpoints  bool

	agents  *agent.Registry
	bus     *event.Bus
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	tracing bool

	retry retrypolicy.Policy
}

// New creates an engine with the given options applied over defaults:
// capacity 64, max 1000 traversal steps per run, a checkpoint after
// every completed task when a store is configured, no-op metrics and
// tracing, and no retries.
func New(opts ...Option) *Engine {
	e := &Engine{
		byID:               make(map[uint64]*Workflow),
		byName:             make(map[string]*Workflow),
		capacity:           64,
		maxSteps:           1000,
		checkpointInterval: 1,
		agents:             agent.NewRegistry(),
		metrics:            observability.NoopMetrics{},
		spans:              observability.NoopSpanManager{},
		retry:              retrypolicy.None,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Agents returns the engine's agent registry.
func (e *Engine) Agents() *agent.Registry {
	return e.agents
}

// Register creates a workflow instance for graph under the given name
// and assigns it the next id. Ids start at 1 and are never reused
// within an engine.
func (e *Engine) Register(name string, graph *Graph) (*Workflow, error) {
	if graph == nil {
		return nil, fmt.Errorf("%w: nil graph", ErrMalformedGraph)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.byName[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	if len(e.byID) >= e.capacity {
		return nil, fmt.Errorf("%w: capacity %d", ErrRegistryFull, e.capacity)
	}

	e.nextID++
	w := newWorkflow(e.nextID, name, graph)
	e.byID[w.id] = w
	e.byName[name] = w
	e.order = append(e.order, w.id)
	return w, nil
}

// FindByID returns the workflow registered under id.
func (e *Engine) FindByID(id uint64) (*Workflow, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	w, ok := e.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return w, nil
}

// FindByName returns the workflow registered under name.
func (e *Engine) FindByName(name string) (*Workflow, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	w, ok := e.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: name %q", ErrNotFound, name)
	}
	return w, nil
}

// List returns one Summary per registered workflow, in registration
// order.
func (e *Engine) List() []Summary {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Summary, 0, len(e.order))
	for _, id := range e.order {
		w := e.byID[id]
		out = append(out, Summary{
			ID:          w.id,
			Name:        w.name,
			Description: w.description,
			Status:      w.Status(),
			Current:     w.Current(),
		})
	}
	return out
}

// Len returns the number of registered workflows.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.byID)
}

// Remove unregisters a workflow and deletes its checkpoints. A running
// workflow cannot be removed.
func (e *Engine) Remove(id uint64) error {
	e.mu.Lock()
	w, ok := e.byID[id]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if w.Status() == StatusRunning {
		e.mu.Unlock()
		return fmt.Errorf("%w: id %d", ErrAlreadyRunning, id)
	}
	delete(e.byID, id)
	delete(e.byName, w.name)
	for i, oid := range e.order {
		if oid == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	e.mu.Unlock()

	if e.store != nil {
		if err := e.store.DeleteWorkflow(id); err != nil {
			return &CheckpointError{WorkflowID: id, Op: "delete", Err: err}
		}
	}
	return nil
}

// Cancel requests cancellation of a workflow run. A running workflow
// stops at its next safe point; a pending one is marked cancelled
// immediately. Cancelling an already terminal workflow is a no-op.
func (e *Engine) Cancel(id uint64) error {
	w, err := e.FindByID(id)
	if err != nil {
		return err
	}

	w.cancelled.Store(true)
	status := w.Status()
	if status == StatusRunning || status.IsTerminal() {
		return nil
	}

	w.setStatus(StatusCancelled)
	e.publish(event.New(event.RunCancelled, w.id, w.name))
	return nil
}

// publish sends evt if an event bus is configured.
func (e *Engine) publish(evt event.Event) {
	if e.bus != nil {
		e.bus.Publish(evt)
	}
}
