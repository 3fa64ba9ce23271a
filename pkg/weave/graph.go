package weave

import (
	"errors"
	"fmt"
)

// Graph is an immutable description of a workflow's nodes and edges.
// Build one with a Builder or load one through the definition package.
// A Graph can back any number of registered workflow instances and is
// safe for concurrent use.
type Graph struct {
	name        string
	description string
	nodes       []Node // index i holds node with ID i+1
	edges       []Edge // declaration order
	start       NodeID
	out         map[NodeID][]int // edge indexes per source, declaration order
}

// Name returns the graph's name.
func (g *Graph) Name() string { return g.name }

// Description returns the graph's description.
func (g *Graph) Description() string { return g.description }

// Start returns the designated start node.
func (g *Graph) Start() NodeID { return g.start }

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Nodes returns all nodes in ID order.
func (g *Graph) Nodes() []Node {
	nodes := make([]Node, len(g.nodes))
	copy(nodes, g.nodes)
	return nodes
}

// Edges returns all edges in declaration order.
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, len(g.edges))
	copy(edges, g.edges)
	return edges
}

// Node returns the node with the given id.
func (g *Graph) Node(id NodeID) (Node, bool) {
	if id < 1 || int(id) > len(g.nodes) {
		return Node{}, false
	}
	return g.nodes[id-1], true
}

// Outgoing returns the edges leaving id, in declaration order.
func (g *Graph) Outgoing(id NodeID) []Edge {
	idxs := g.out[id]
	edges := make([]Edge, 0, len(idxs))
	for _, i := range idxs {
		edges = append(edges, g.edges[i])
	}
	return edges
}

// Builder assembles a workflow graph. Nodes are created first and
// referenced by the returned NodeIDs; edges may be added in any order.
// Builder is not safe for concurrent use; call Build once to obtain the
// immutable Graph.
type Builder struct {
	name        string
	description string
	nodes       []Node
	edges       []Edge
	start       NodeID
}

// NewBuilder creates a graph builder.
func NewBuilder(name, description string) *Builder {
	return &Builder{name: name, description: description}
}

func (b *Builder) addNode(n Node) NodeID {
	n.ID = NodeID(len(b.nodes) + 1)
	b.nodes = append(b.nodes, n)
	return n.ID
}

// Task adds an agent-executing node. outputKey may be empty to use the
// default "node_<id>_result" key.
func (b *Builder) Task(name, agentRef, prompt, outputKey string) NodeID {
	return b.addNode(Node{
		Name:      name,
		Kind:      KindTask,
		AgentRef:  agentRef,
		Prompt:    prompt,
		OutputKey: outputKey,
	})
}

// Decision adds a routing node. Attach guarded edges with Edge,
// GuardedEdge, and LoopEdge; they are evaluated in declaration order.
func (b *Builder) Decision(name string) NodeID {
	return b.addNode(Node{Name: name, Kind: KindDecision})
}

// Fork adds a parallel-split node. Attach one edge per branch entry and
// declare the convergence point with SetJoin.
func (b *Builder) Fork(name string) NodeID {
	return b.addNode(Node{Name: name, Kind: KindFork})
}

// Join adds a convergence node for a fork.
func (b *Builder) Join(name string) NodeID {
	return b.addNode(Node{Name: name, Kind: KindJoin})
}

// Success adds a terminal node that completes the run.
func (b *Builder) Success(name string) NodeID {
	return b.addNode(Node{Name: name, Kind: KindSuccess})
}

// Failure adds a terminal node that fails the run.
func (b *Builder) Failure(name string) NodeID {
	return b.addNode(Node{Name: name, Kind: KindFailure})
}

// SetJoin declares where the branches of fork converge.
func (b *Builder) SetJoin(fork, join NodeID) *Builder {
	if i := int(fork) - 1; i >= 0 && i < len(b.nodes) {
		b.nodes[i].Join = join
	}
	return b
}

// Edge adds an unguarded edge.
func (b *Builder) Edge(from, to NodeID) *Builder {
	b.edges = append(b.edges, Edge{From: from, To: to})
	return b
}

// GuardedEdge adds an edge taken only when guard evaluates true against
// the run context.
func (b *Builder) GuardedEdge(from, to NodeID, guard string) *Builder {
	b.edges = append(b.edges, Edge{From: from, To: to, Guard: guard})
	return b
}

// LoopEdge adds a guarded edge that re-enters a loop body. Taking it
// increments the decision's iteration counter.
func (b *Builder) LoopEdge(from, to NodeID, guard string) *Builder {
	b.edges = append(b.edges, Edge{From: from, To: to, Guard: guard, Loop: true})
	return b
}

// Start designates the entry node.
func (b *Builder) Start(id NodeID) *Builder {
	b.start = id
	return b
}

// Build validates the assembled graph and returns the immutable Graph.
// All structural violations are collected and joined under
// ErrMalformedGraph.
func (b *Builder) Build() (*Graph, error) {
	var errs []error

	valid := func(id NodeID) bool {
		return id >= 1 && int(id) <= len(b.nodes)
	}
	nodeName := func(id NodeID) string {
		if valid(id) {
			return b.nodes[id-1].Name
		}
		return fmt.Sprintf("#%d", id)
	}

	if len(b.nodes) == 0 {
		errs = append(errs, errors.New("graph has no nodes"))
	}
	if b.start == 0 {
		errs = append(errs, errors.New("start node not set"))
	} else if !valid(b.start) {
		errs = append(errs, fmt.Errorf("start node #%d does not exist", b.start))
	}

	out := make(map[NodeID][]int)
	for i, e := range b.edges {
		if !valid(e.From) {
			errs = append(errs, fmt.Errorf("edge %d: source #%d does not exist", i, e.From))
			continue
		}
		if !valid(e.To) {
			errs = append(errs, fmt.Errorf("edge %d: target #%d does not exist", i, e.To))
			continue
		}
		out[e.From] = append(out[e.From], i)
	}

	for _, n := range b.nodes {
		edges := out[n.ID]
		switch n.Kind {
		case KindTask, KindJoin:
			if len(edges) != 1 {
				errs = append(errs, fmt.Errorf("%s node %s must have exactly one outgoing edge, has %d",
					n.Kind, n.Name, len(edges)))
			}
		case KindDecision:
			if len(edges) == 0 {
				errs = append(errs, fmt.Errorf("decision node %s has no outgoing edges", n.Name))
			}
			for pos, i := range edges {
				if b.edges[i].Guard == "" && pos != len(edges)-1 {
					errs = append(errs, fmt.Errorf("decision node %s: else edge must be declared last", n.Name))
				}
			}
		case KindFork:
			if len(edges) < 2 {
				errs = append(errs, fmt.Errorf("fork node %s needs at least two branches, has %d",
					n.Name, len(edges)))
			}
			if n.Join == 0 {
				errs = append(errs, fmt.Errorf("fork node %s has no join declared", n.Name))
			} else if !valid(n.Join) {
				errs = append(errs, fmt.Errorf("fork node %s: join #%d does not exist", n.Name, n.Join))
			} else if b.nodes[n.Join-1].Kind != KindJoin {
				errs = append(errs, fmt.Errorf("fork node %s: join target %s is not a join node",
					n.Name, nodeName(n.Join)))
			} else {
				for _, i := range edges {
					entry := b.edges[i].To
					if !b.reaches(entry, n.Join, out) {
						errs = append(errs, fmt.Errorf("fork node %s: branch %s cannot reach join %s",
							n.Name, nodeName(entry), nodeName(n.Join)))
					}
				}
			}
		case KindSuccess, KindFailure:
			if len(edges) != 0 {
				errs = append(errs, fmt.Errorf("terminal node %s must not have outgoing edges", n.Name))
			}
		default:
			errs = append(errs, fmt.Errorf("node %s has unknown kind %d", n.Name, n.Kind))
		}

		for _, i := range edges {
			if b.edges[i].Loop && n.Kind != KindDecision {
				errs = append(errs, fmt.Errorf("%s node %s: loop edges are only valid on decisions",
					n.Kind, n.Name))
			}
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedGraph, b.name, errors.Join(errs...))
	}

	nodes := make([]Node, len(b.nodes))
	copy(nodes, b.nodes)
	for i := range nodes {
		if nodes[i].Kind == KindTask && nodes[i].OutputKey == "" {
			nodes[i].OutputKey = resultKey(nodes[i].ID)
		}
	}
	edges := make([]Edge, len(b.edges))
	copy(edges, b.edges)

	return &Graph{
		name:        b.name,
		description: b.description,
		nodes:       nodes,
		edges:       edges,
		start:       b.start,
		out:         out,
	}, nil
}

// reaches reports whether target is reachable from start via edges.
func (b *Builder) reaches(start, target NodeID, out map[NodeID][]int) bool {
	if start == target {
		return true
	}
	seen := map[NodeID]bool{start: true}
	queue := []NodeID{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, i := range out[cur] {
			next := b.edges[i].To
			if next == target {
				return true
			}
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}
