package checkpoint

import (
	"sync"
	"time"
)

// MemoryStore is an in-memory checkpoint store for tests and
// single-process use. Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	runs   map[uint64][]*Checkpoint // workflowID -> checkpoints in id order
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[uint64][]*Checkpoint)}
}

// Save implements Store.
func (m *MemoryStore) Save(workflowID uint64, nodeID int, state []byte) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrStoreClosed
	}

	cps := m.runs[workflowID]
	id := uint64(1)
	if n := len(cps); n > 0 {
		id = cps[n-1].ID + 1
	}

	// Copy state so the caller's buffer isn't retained.
	stored := make([]byte, len(state))
	copy(stored, state)

	cp := &Checkpoint{
		Version:    Version,
		WorkflowID: workflowID,
		ID:         id,
		NodeID:     nodeID,
		CreatedAt:  time.Now().UTC(),
		State:      stored,
	}
	m.runs[workflowID] = append(cps, cp)
	return id, nil
}

// Load implements Store.
func (m *MemoryStore) Load(workflowID, checkpointID uint64) (*Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	for _, cp := range m.runs[workflowID] {
		if cp.ID == checkpointID {
			return copyCheckpoint(cp), nil
		}
	}
	return nil, ErrNotFound
}

// Latest implements Store.
func (m *MemoryStore) Latest(workflowID uint64) (*Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	cps := m.runs[workflowID]
	if len(cps) == 0 {
		return nil, ErrNotFound
	}
	return copyCheckpoint(cps[len(cps)-1]), nil
}

// List implements Store.
func (m *MemoryStore) List(workflowID uint64) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	cps := m.runs[workflowID]
	infos := make([]Info, 0, len(cps))
	for _, cp := range cps {
		infos = append(infos, cp.Info())
	}
	return infos, nil
}

// DeleteWorkflow implements Store.
func (m *MemoryStore) DeleteWorkflow(workflowID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.runs, workflowID)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.runs = nil
	return nil
}

// Len returns the total number of checkpoints across all workflows.
// Useful for testing.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, cps := range m.runs {
		count += len(cps)
	}
	return count
}

func copyCheckpoint(cp *Checkpoint) *Checkpoint {
	dup := *cp
	dup.State = make([]byte, len(cp.State))
	copy(dup.State, cp.State)
	return &dup
}
