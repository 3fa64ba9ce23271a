// Package mermaid renders workflow graphs as Mermaid flowcharts.
//
// Output is deterministic: nodes are declared in id order and edges in
// declaration order, so two exports of the same graph and highlight are
// byte-identical.
package mermaid

import (
	"errors"
	"fmt"
	"strings"

	"github.com/convergio/weave/pkg/weave"
)

// ErrNilGraph indicates Export was called without a graph.
var ErrNilGraph = errors.New("mermaid: nil graph")

// highlightStyle marks the current node in a resumable or running
// workflow.
const highlightStyle = "fill:#f9a825,stroke:#e65100,stroke-width:2px"

type options struct {
	current weave.NodeID
}

// Option configures an export.
type Option func(*options)

// WithCurrentNode visually distinguishes the node a run is positioned
// at. Zero disables highlighting.
func WithCurrentNode(id weave.NodeID) Option {
	return func(o *options) {
		o.current = id
	}
}

// Export renders the graph as a Mermaid "flowchart TD" document. One
// node declaration is emitted per node and one edge declaration per
// edge; guarded edges carry their guard as the edge label.
func Export(g *weave.Graph, opts ...Option) (string, error) {
	if g == nil {
		return "", ErrNilGraph
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var b strings.Builder
	b.WriteString("flowchart TD\n")

	for _, n := range g.Nodes() {
		open, closing := shape(n.Kind)
		fmt.Fprintf(&b, "  N%d%s%s%s\n", n.ID, open, sanitize(n.Name), closing)
	}

	for _, e := range g.Edges() {
		if e.Guard != "" {
			fmt.Fprintf(&b, "  N%d -->|%s| N%d\n", e.From, sanitize(e.Guard), e.To)
		} else {
			fmt.Fprintf(&b, "  N%d --> N%d\n", e.From, e.To)
		}
	}

	if o.current != 0 {
		if _, ok := g.Node(o.current); ok {
			fmt.Fprintf(&b, "  style N%d %s\n", o.current, highlightStyle)
		}
	}

	return b.String(), nil
}

// shape returns the Mermaid bracket pair for a node kind.
func shape(kind weave.NodeKind) (string, string) {
	switch kind {
	case weave.KindDecision:
		return "{", "}"
	case weave.KindFork, weave.KindJoin:
		return "([", "])"
	case weave.KindSuccess, weave.KindFailure:
		return "((", "))"
	default:
		return "[", "]"
	}
}

// sanitize strips characters that break Mermaid labels, keeping
// alphanumerics, spaces, underscores, hyphens, and a few comparison
// characters used in guards. Newlines become spaces.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == ' ', c == '_', c == '-', c == '.',
			c == '<', c == '>', c == '=', c == '!':
			b.WriteRune(c)
		case c == '\n', c == '\r':
			b.WriteRune(' ')
		}
	}
	return b.String()
}
