// Package checkpoint provides persistent snapshot storage for workflow
// resumption. A checkpoint records the workflow's current node and a
// full copy of its run context; ids are strictly increasing per
// workflow, starting at 1, and checkpoints are immutable once captured.
package checkpoint

import (
	"errors"
	"time"
)

// Store persists checkpoints. Implementations must be safe for
// concurrent use.
type Store interface {
	// Save captures a snapshot for a workflow and returns the new
	// checkpoint id. Ids are assigned per workflow, strictly increasing
	// from 1.
	Save(workflowID uint64, nodeID int, state []byte) (uint64, error)

	// Load retrieves a specific checkpoint.
	// Returns ErrNotFound if it doesn't exist.
	Load(workflowID, checkpointID uint64) (*Checkpoint, error)

	// Latest retrieves the highest-id checkpoint for a workflow.
	// Returns ErrNotFound if the workflow has none.
	Latest(workflowID uint64) (*Checkpoint, error)

	// List returns metadata for all of a workflow's checkpoints, ordered
	// by id. Returns an empty slice (not an error) when there are none.
	List(workflowID uint64) ([]Info, error)

	// DeleteWorkflow removes all checkpoints for a workflow.
	// Returns nil if the workflow has none.
	DeleteWorkflow(workflowID uint64) error

	// Close releases any resources.
	Close() error
}

// Info is checkpoint metadata without the state payload.
type Info struct {
	WorkflowID uint64
	ID         uint64
	NodeID     int
	CreatedAt  time.Time
	Size       int64
}

// Sentinel errors for checkpoint operations.
var (
	// ErrNotFound indicates the checkpoint doesn't exist.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("checkpoint store closed")
)
