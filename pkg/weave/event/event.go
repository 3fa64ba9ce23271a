// Package event delivers workflow lifecycle notifications. The engine
// publishes an event at every significant execution point (run and
// node transitions, checkpoints, cancellation) so monitors and CLIs can
// observe progress without polling the registry.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies what happened.
type Type string

// Lifecycle event types.
const (
	RunStarted      Type = "run.started"
	RunCompleted    Type = "run.completed"
	RunFailed       Type = "run.failed"
	RunCancelled    Type = "run.cancelled"
	NodeStarted     Type = "node.started"
	NodeCompleted   Type = "node.completed"
	NodeFailed      Type = "node.failed"
	CheckpointSaved Type = "checkpoint.saved"
)

// Event is one lifecycle notification. Events are immutable once
// published.
type Event struct {
	// ID is a unique event identifier.
	ID string `json:"id"`
	// Type identifies what happened.
	Type Type `json:"type"`
	// WorkflowID is the workflow instance the event concerns.
	WorkflowID uint64 `json:"workflow_id"`
	// Workflow is the instance's registered name.
	Workflow string `json:"workflow,omitempty"`
	// Node is the node's name, for node-scoped events.
	Node string `json:"node,omitempty"`
	// At is when the event occurred.
	At time.Time `json:"at"`
	// Fields carries event-specific details (error messages, checkpoint
	// ids, durations).
	Fields map[string]any `json:"fields,omitempty"`
}

// New creates an event for a workflow instance.
func New(t Type, workflowID uint64, workflow string) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       t,
		WorkflowID: workflowID,
		Workflow:   workflow,
		At:         time.Now().UTC(),
	}
}

// WithNode returns a copy scoped to a node.
func (e Event) WithNode(node string) Event {
	e.Node = node
	return e
}

// WithField returns a copy carrying an extra detail.
func (e Event) WithField(key string, value any) Event {
	fields := make(map[string]any, len(e.Fields)+1)
	for k, v := range e.Fields {
		fields[k] = v
	}
	fields[key] = value
	e.Fields = fields
	return e
}
