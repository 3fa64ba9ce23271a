package checkpoint

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists checkpoints to SQLite. It is suitable for
// single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a SQLite checkpoint store. The path should be
// a file path (e.g. "./checkpoints.db") or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL improves concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS workflow_checkpoints (
			workflow_id INTEGER NOT NULL,
			checkpoint_id INTEGER NOT NULL,
			node_id INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			state BLOB NOT NULL,
			PRIMARY KEY (workflow_id, checkpoint_id)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(workflowID uint64, nodeID int, state []byte) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	// Assign the next per-workflow id inside one statement so ids stay
	// strictly increasing under concurrent savers.
	row := s.db.QueryRow(`
		INSERT INTO workflow_checkpoints (workflow_id, checkpoint_id, node_id, created_at, state)
		VALUES (
			?,
			COALESCE((SELECT MAX(checkpoint_id) FROM workflow_checkpoints WHERE workflow_id = ?), 0) + 1,
			?, ?, ?
		)
		RETURNING checkpoint_id
	`, workflowID, workflowID, nodeID, time.Now().UTC().Format(time.RFC3339Nano), state)

	var id uint64
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("save checkpoint: %w", err)
	}
	return id, nil
}

// Load implements Store.
func (s *SQLiteStore) Load(workflowID, checkpointID uint64) (*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	row := s.db.QueryRow(`
		SELECT node_id, created_at, state FROM workflow_checkpoints
		WHERE workflow_id = ? AND checkpoint_id = ?
	`, workflowID, checkpointID)
	return scanCheckpoint(row, workflowID, checkpointID)
}

// Latest implements Store.
func (s *SQLiteStore) Latest(workflowID uint64) (*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	// MAX returns NULL, not zero rows, when the workflow has no
	// checkpoints.
	var max sql.NullInt64
	err := s.db.QueryRow(`
		SELECT MAX(checkpoint_id) FROM workflow_checkpoints WHERE workflow_id = ?
	`, workflowID).Scan(&max)
	if err != nil {
		return nil, fmt.Errorf("latest checkpoint: %w", err)
	}
	if !max.Valid || max.Int64 == 0 {
		return nil, ErrNotFound
	}
	id := uint64(max.Int64)

	row := s.db.QueryRow(`
		SELECT node_id, created_at, state FROM workflow_checkpoints
		WHERE workflow_id = ? AND checkpoint_id = ?
	`, workflowID, id)
	return scanCheckpoint(row, workflowID, id)
}

// List implements Store.
func (s *SQLiteStore) List(workflowID uint64) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`
		SELECT checkpoint_id, node_id, created_at, LENGTH(state)
		FROM workflow_checkpoints
		WHERE workflow_id = ?
		ORDER BY checkpoint_id
	`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	infos := make([]Info, 0)
	for rows.Next() {
		var info Info
		var createdAt string
		if err := rows.Scan(&info.ID, &info.NodeID, &createdAt, &info.Size); err != nil {
			return nil, fmt.Errorf("scan checkpoint info: %w", err)
		}
		info.WorkflowID = workflowID
		info.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}
	return infos, nil
}

// DeleteWorkflow implements Store.
func (s *SQLiteStore) DeleteWorkflow(workflowID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	if _, err := s.db.Exec(`
		DELETE FROM workflow_checkpoints WHERE workflow_id = ?
	`, workflowID); err != nil {
		return fmt.Errorf("delete workflow checkpoints: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func scanCheckpoint(row *sql.Row, workflowID, checkpointID uint64) (*Checkpoint, error) {
	cp := &Checkpoint{
		Version:    Version,
		WorkflowID: workflowID,
		ID:         checkpointID,
	}
	var createdAt string
	err := row.Scan(&cp.NodeID, &createdAt, &cp.State)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	cp.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return cp, nil
}
