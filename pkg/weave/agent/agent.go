// Package agent defines the collaborator interface that Task nodes
// delegate to, plus a registry of named agents and ready-made
// implementations. The engine treats an agent as an opaque, possibly
// slow, possibly failing call; timeout and cancellation policy belong
// to the agent, not the engine.
package agent

import "context"

// Task describes the work a Task node hands to an agent.
type Task struct {
	// WorkflowID identifies the running workflow instance.
	WorkflowID uint64
	// Workflow is the instance's registered name.
	Workflow string
	// NodeID is the Task node's id within its graph.
	NodeID int
	// Node is the Task node's name.
	Node string
	// Prompt is the node's instruction with ${key} placeholders already
	// expanded from the run context.
	Prompt string
}

// Agent executes one task against the run context and returns its
// result. vars is a read-only snapshot of the context at call time.
type Agent interface {
	Execute(ctx context.Context, task Task, vars map[string]any) (any, error)
}

// Func adapts a plain function to the Agent interface.
type Func func(ctx context.Context, task Task, vars map[string]any) (any, error)

// Execute implements Agent.
func (f Func) Execute(ctx context.Context, task Task, vars map[string]any) (any, error) {
	return f(ctx, task, vars)
}
