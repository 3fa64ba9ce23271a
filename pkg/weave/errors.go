package weave

import (
	"errors"
	"fmt"
)

// Sentinel errors for registry operations.
var (
	// ErrNotFound indicates an unknown workflow id, name, or checkpoint.
	ErrNotFound = errors.New("workflow not found")

	// ErrDuplicateName indicates a registration collision.
	ErrDuplicateName = errors.New("workflow name already registered")

	// ErrRegistryFull indicates a bounded registry reached its capacity.
	ErrRegistryFull = errors.New("registry full")
)

// Sentinel errors for graph construction and execution.
var (
	// ErrMalformedGraph indicates a structural invariant violation
	// detected at build or load time.
	ErrMalformedGraph = errors.New("malformed graph")

	// ErrNoViableTransition indicates a Decision node exhausted its
	// guards without a matching or else edge.
	ErrNoViableTransition = errors.New("no viable transition")

	// ErrAgentExecution indicates a collaborator call failed at a Task
	// node. The workflow stays at the failed node and can be resumed.
	ErrAgentExecution = errors.New("agent execution failed")

	// ErrCancelled indicates the run was cancelled at a safe point.
	ErrCancelled = errors.New("workflow cancelled")

	// ErrTerminalFailure indicates the run reached a failure terminal.
	ErrTerminalFailure = errors.New("workflow reached failure terminal")

	// ErrMaxSteps indicates the traversal loop exceeded the configured
	// step ceiling, usually an unbounded loop in the graph.
	ErrMaxSteps = errors.New("exceeded maximum traversal steps")

	// ErrAlreadyRunning indicates a second Execute/Resume was attempted
	// on a workflow that is currently running.
	ErrAlreadyRunning = errors.New("workflow already running")
)

// AgentError wraps a collaborator failure with node context.
type AgentError struct {
	// NodeID is the Task node whose collaborator call failed.
	NodeID NodeID
	// Node is the node's name.
	Node string
	// Agent is the collaborator reference.
	Agent string
	// Err is the underlying error from the agent.
	Err error
}

// Error implements the error interface.
func (e *AgentError) Error() string {
	return fmt.Sprintf("node %s (agent %s): %v", e.Node, e.Agent, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AgentError) Unwrap() error {
	return e.Err
}

// Is reports ErrAgentExecution so callers can classify without
// unwrapping to the collaborator's error.
func (e *AgentError) Is(target error) bool {
	return target == ErrAgentExecution
}

// TransitionError reports a Decision node that found no matching edge.
type TransitionError struct {
	// NodeID is the Decision node that could not route.
	NodeID NodeID
	// Node is the node's name.
	Node string
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("decision %s: no viable transition", e.Node)
}

// Unwrap returns ErrNoViableTransition for errors.Is support.
func (e *TransitionError) Unwrap() error {
	return ErrNoViableTransition
}

// BranchError wraps a failure inside a fork branch.
type BranchError struct {
	// Fork is the fork node's name.
	Fork string
	// Entry is the branch's entry node name.
	Entry string
	// Err is the underlying branch error.
	Err error
}

// Error implements the error interface.
func (e *BranchError) Error() string {
	return fmt.Sprintf("fork %s branch %s: %v", e.Fork, e.Entry, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *BranchError) Unwrap() error {
	return e.Err
}

// CheckpointError wraps a checkpoint capture or restore failure.
type CheckpointError struct {
	// WorkflowID is the workflow the checkpoint belongs to.
	WorkflowID uint64
	// Op is the operation that failed ("capture", "restore").
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint %s for workflow %d: %v", e.Op, e.WorkflowID, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *CheckpointError) Unwrap() error {
	return e.Err
}
