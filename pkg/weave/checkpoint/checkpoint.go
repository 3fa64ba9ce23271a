package checkpoint

import (
	"encoding/json"
	"time"
)

// Version is the current checkpoint format version. Increment on
// breaking changes to the checkpoint structure.
const Version = 1

// Checkpoint is an immutable snapshot of a run's position and context.
type Checkpoint struct {
	Version    int       `json:"version"`
	WorkflowID uint64    `json:"workflow_id"`
	ID         uint64    `json:"checkpoint_id"`
	NodeID     int       `json:"node_id"`
	CreatedAt  time.Time `json:"created_at"`

	// State is the JSON-serialized run context at capture time.
	State json.RawMessage `json:"state"`
}

// New creates a checkpoint record. State must already be serialized.
func New(workflowID, id uint64, nodeID int, state []byte) *Checkpoint {
	return &Checkpoint{
		Version:    Version,
		WorkflowID: workflowID,
		ID:         id,
		NodeID:     nodeID,
		CreatedAt:  time.Now().UTC(),
		State:      state,
	}
}

// Marshal serializes the checkpoint to JSON.
func (c *Checkpoint) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// Unmarshal deserializes a checkpoint from JSON.
func Unmarshal(data []byte) (*Checkpoint, error) {
	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Info returns the checkpoint's metadata.
func (c *Checkpoint) Info() Info {
	return Info{
		WorkflowID: c.WorkflowID,
		ID:         c.ID,
		NodeID:     c.NodeID,
		CreatedAt:  c.CreatedAt,
		Size:       int64(len(c.State)),
	}
}
