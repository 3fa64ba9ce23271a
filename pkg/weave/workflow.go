package weave

import (
	"sync"
	"sync/atomic"
	"time"
)

// Status is the lifecycle state of a workflow run.
type Status int

// Workflow statuses. Pending transitions to Running on the first
// Execute or Resume; Completed, Failed, and Cancelled are terminal for
// that run, but a registered workflow is a reusable template and a new
// Execute re-arms it to Pending.
const (
	StatusPending Status = iota
	StatusRunning
	StatusCompleted
	StatusFailed
	StatusCancelled
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the status ends a run.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Workflow is a registered, reusable workflow instance: a graph plus
// live run state. Instances are created by Engine.Register and are
// addressable by id or name; both lookups return the same instance.
//
// Run state (status, current node, context) is guarded internally and
// may be read concurrently with a run. Execute/Resume on the same
// instance are mutually exclusive.
type Workflow struct {
	id          uint64
	name        string
	description string
	graph       *Graph

	// runMu serializes Execute/Resume on this instance.
	runMu sync.Mutex

	mu        sync.RWMutex
	status    Status
	current   NodeID
	errMsg    string
	ctx       *Context
	updatedAt time.Time

	cancelled atomic.Bool
	// tasksDone counts completed Task nodes for checkpoint intervals.
	tasksDone int
}

func newWorkflow(id uint64, name string, graph *Graph) *Workflow {
	return &Workflow{
		id:          id,
		name:        name,
		description: graph.Description(),
		graph:       graph,
		status:      StatusPending,
		ctx:         NewContext(),
		updatedAt:   time.Now().UTC(),
	}
}

// ID returns the registry-assigned identifier.
func (w *Workflow) ID() uint64 { return w.id }

// Name returns the registration name.
func (w *Workflow) Name() string { return w.name }

// Description returns the graph's description.
func (w *Workflow) Description() string { return w.description }

// Graph returns the immutable graph backing this instance.
func (w *Workflow) Graph() *Graph { return w.graph }

// Status returns the current run status.
func (w *Workflow) Status() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status
}

// Current returns the current node id, 0 before the first run.
func (w *Workflow) Current() NodeID {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Err returns the recorded error message, set only when Failed.
func (w *Workflow) Err() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.errMsg
}

// Context returns the live run context.
func (w *Workflow) Context() *Context {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.ctx
}

// UpdatedAt returns when run state last changed.
func (w *Workflow) UpdatedAt() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.updatedAt
}

func (w *Workflow) setStatus(s Status) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = s
	w.updatedAt = time.Now().UTC()
}

func (w *Workflow) setCurrent(id NodeID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.current = id
	w.updatedAt = time.Now().UTC()
}

func (w *Workflow) fail(msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = StatusFailed
	w.errMsg = msg
	w.updatedAt = time.Now().UTC()
}

// rearm resets a terminal instance back to Pending with a fresh context
// so the template can be executed again.
func (w *Workflow) rearm() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = StatusPending
	w.current = 0
	w.errMsg = ""
	w.ctx = NewContext()
	w.tasksDone = 0
	w.cancelled.Store(false)
	w.updatedAt = time.Now().UTC()
}

// restore replaces run position and context from a checkpoint snapshot.
func (w *Workflow) restore(node NodeID, ctx *Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.current = node
	w.ctx = ctx
	w.errMsg = ""
	w.updatedAt = time.Now().UTC()
}

// Summary is one row of Engine.List output.
type Summary struct {
	ID          uint64
	Name        string
	Description string
	Status      Status
	Current     NodeID
}
