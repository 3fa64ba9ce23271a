package weave

import "fmt"

// NodeID is a stable index identifying a node within its graph.
// IDs are assigned by the Builder starting at 1; the zero value means
// "unset" (a workflow that has not started yet has Current() == 0).
type NodeID int

// NodeKind classifies what a node does during traversal.
type NodeKind int

// Node kinds.
const (
	// KindTask delegates work to an agent collaborator and stores the
	// result in the run context under the node's output key.
	KindTask NodeKind = iota + 1

	// KindDecision routes along the first outgoing edge whose guard
	// matches the run context. An unguarded edge is the else path.
	KindDecision

	// KindFork starts each outgoing edge's target as a concurrent
	// branch and waits for all of them at the declared join node.
	KindFork

	// KindJoin is the barrier where fork branches converge.
	KindJoin

	// KindSuccess terminates the run with status Completed.
	KindSuccess

	// KindFailure terminates the run with status Failed.
	KindFailure
)

// String returns a human-readable kind name.
func (k NodeKind) String() string {
	switch k {
	case KindTask:
		return "task"
	case KindDecision:
		return "decision"
	case KindFork:
		return "fork"
	case KindJoin:
		return "join"
	case KindSuccess:
		return "success"
	case KindFailure:
		return "failure"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// IsTerminal reports whether the kind ends a run.
func (k NodeKind) IsTerminal() bool {
	return k == KindSuccess || k == KindFailure
}

// Node is one step in a workflow graph. The shape is immutable once the
// graph is built.
type Node struct {
	ID   NodeID
	Name string
	Kind NodeKind

	// Task configuration.

	// AgentRef names the collaborator that executes this node.
	AgentRef string
	// Prompt is the instruction passed to the agent. ${key} placeholders
	// are expanded from the run context before the call.
	Prompt string
	// OutputKey is the context key the agent's result is stored under.
	// Defaults to "node_<id>_result" when left empty at build time.
	OutputKey string

	// Fork configuration.

	// Join is the node where all branches of this fork must converge.
	Join NodeID
}

// Edge is a directed, optionally guarded transition between two nodes.
// For Decision nodes, outgoing edges are evaluated in declaration order
// and an unguarded edge is the default ("else") path.
type Edge struct {
	From  NodeID
	To    NodeID
	Guard string

	// Loop marks a Decision edge that re-enters a loop body. Taking a
	// Loop edge increments the decision's iteration counter, which guard
	// expressions can reference as the "iteration" variable.
	Loop bool
}
