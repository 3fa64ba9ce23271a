// Package definition loads workflow graphs from declarative YAML or
// JSON files, so new workflows are data rather than compiled pattern
// functions.
//
// A definition names its nodes and wires edges by those names:
//
//	name: code-review
//	description: Author proposes, reviewer judges
//	start: propose
//	nodes:
//	  - name: propose
//	    kind: task
//	    agent: author
//	    prompt: "Propose a change for: ${input}"
//	  - name: verdict
//	    kind: decision
//	  - name: done
//	    kind: success
//	  - name: rejected
//	    kind: failure
//	edges:
//	  - {from: propose, to: verdict}
//	  - {from: verdict, to: done, guard: "approved == true"}
//	  - {from: verdict, to: rejected}
//
// Fork nodes declare their join by name in the node's "join" field.
package definition

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/convergio/weave/pkg/weave"
)

// File is the on-disk shape of a workflow definition.
type File struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Start       string `yaml:"start" json:"start"`
	Nodes       []Node `yaml:"nodes" json:"nodes"`
	Edges       []Edge `yaml:"edges" json:"edges"`
}

// Node declares one graph node. Kind is one of task, decision, fork,
// join, success, failure.
type Node struct {
	Name   string `yaml:"name" json:"name"`
	Kind   string `yaml:"kind" json:"kind"`
	Agent  string `yaml:"agent,omitempty" json:"agent,omitempty"`
	Prompt string `yaml:"prompt,omitempty" json:"prompt,omitempty"`
	Output string `yaml:"output,omitempty" json:"output,omitempty"`
	Join   string `yaml:"join,omitempty" json:"join,omitempty"`
}

// Edge declares one transition between named nodes.
type Edge struct {
	From  string `yaml:"from" json:"from"`
	To    string `yaml:"to" json:"to"`
	Guard string `yaml:"guard,omitempty" json:"guard,omitempty"`
	Loop  bool   `yaml:"loop,omitempty" json:"loop,omitempty"`
}

// FromFile loads a graph definition, auto-detecting format by
// extension. Supported extensions: .yaml, .yml, .json
func FromFile(path string) (*weave.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json":
		return FromJSON(data)
	default:
		return nil, fmt.Errorf("unsupported definition extension: %s", filepath.Ext(path))
	}
}

// FromYAML parses a YAML definition and builds its graph.
func FromYAML(data []byte) (*weave.Graph, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse yaml definition: %w", err)
	}
	return f.Build()
}

// FromJSON parses a JSON definition and builds its graph.
func FromJSON(data []byte) (*weave.Graph, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse json definition: %w", err)
	}
	return f.Build()
}

// LoadDir loads every definition file in dir, in file name order.
// Subdirectories are not descended into.
func LoadDir(dir string) ([]*weave.Graph, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read definition dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml", ".json":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	graphs := make([]*weave.Graph, 0, len(names))
	for _, name := range names {
		g, err := FromFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		graphs = append(graphs, g)
	}
	return graphs, nil
}

// Build resolves node names to ids and assembles the graph through the
// builder, so definitions get the same structural validation as
// pattern-built graphs.
func (f *File) Build() (*weave.Graph, error) {
	b := weave.NewBuilder(f.Name, f.Description)

	ids := make(map[string]weave.NodeID, len(f.Nodes))
	type forkDecl struct {
		fork weave.NodeID
		join string
		name string
	}
	var forks []forkDecl

	for _, n := range f.Nodes {
		if n.Name == "" {
			return nil, fmt.Errorf("%w: %s: node with empty name", weave.ErrMalformedGraph, f.Name)
		}
		if _, dup := ids[n.Name]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate node name %q", weave.ErrMalformedGraph, f.Name, n.Name)
		}

		var id weave.NodeID
		switch strings.ToLower(n.Kind) {
		case "task":
			id = b.Task(n.Name, n.Agent, n.Prompt, n.Output)
		case "decision":
			id = b.Decision(n.Name)
		case "fork":
			id = b.Fork(n.Name)
			forks = append(forks, forkDecl{fork: id, join: n.Join, name: n.Name})
		case "join":
			id = b.Join(n.Name)
		case "success":
			id = b.Success(n.Name)
		case "failure":
			id = b.Failure(n.Name)
		default:
			return nil, fmt.Errorf("%w: %s: node %q has unknown kind %q",
				weave.ErrMalformedGraph, f.Name, n.Name, n.Kind)
		}
		ids[n.Name] = id
	}

	for _, fd := range forks {
		join, ok := ids[fd.join]
		if !ok {
			return nil, fmt.Errorf("%w: %s: fork %q references unknown join %q",
				weave.ErrMalformedGraph, f.Name, fd.name, fd.join)
		}
		b.SetJoin(fd.fork, join)
	}

	start, ok := ids[f.Start]
	if !ok {
		return nil, fmt.Errorf("%w: %s: unknown start node %q", weave.ErrMalformedGraph, f.Name, f.Start)
	}
	b.Start(start)

	for _, e := range f.Edges {
		from, ok := ids[e.From]
		if !ok {
			return nil, fmt.Errorf("%w: %s: edge from unknown node %q", weave.ErrMalformedGraph, f.Name, e.From)
		}
		to, ok := ids[e.To]
		if !ok {
			return nil, fmt.Errorf("%w: %s: edge to unknown node %q", weave.ErrMalformedGraph, f.Name, e.To)
		}
		switch {
		case e.Loop:
			b.LoopEdge(from, to, e.Guard)
		case e.Guard != "":
			b.GuardedEdge(from, to, e.Guard)
		default:
			b.Edge(from, to)
		}
	}

	return b.Build()
}
