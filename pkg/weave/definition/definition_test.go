package definition_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convergio/weave/pkg/weave"
	"github.com/convergio/weave/pkg/weave/definition"
)

const reviewYAML = `
name: code-review
description: Author proposes, reviewer judges
start: propose
nodes:
  - name: propose
    kind: task
    agent: author
    prompt: "Propose a change for: ${input}"
  - name: review
    kind: task
    agent: reviewer
    prompt: "Judge: ${node_1_result}"
    output: approved
  - name: verdict
    kind: decision
  - name: revise
    kind: task
    agent: author
    prompt: "Revise"
  - name: done
    kind: success
  - name: rejected
    kind: failure
edges:
  - {from: propose, to: review}
  - {from: review, to: verdict}
  - {from: verdict, to: done, guard: "approved == true"}
  - {from: verdict, to: revise, guard: "iteration < 3", loop: true}
  - {from: verdict, to: rejected}
  - {from: revise, to: review}
`

func TestFromYAML(t *testing.T) {
	g, err := definition.FromYAML([]byte(reviewYAML))
	require.NoError(t, err)

	assert.Equal(t, "code-review", g.Name())
	assert.Equal(t, 6, g.Len())

	start, ok := g.Node(g.Start())
	require.True(t, ok)
	assert.Equal(t, "propose", start.Name)
	assert.Equal(t, weave.KindTask, start.Kind)
	assert.Equal(t, "author", start.AgentRef)

	var review weave.Node
	for _, n := range g.Nodes() {
		if n.Name == "review" {
			review = n
		}
	}
	assert.Equal(t, "approved", review.OutputKey)
}

func TestFromYAML_LoopEdgeSurvives(t *testing.T) {
	g, err := definition.FromYAML([]byte(reviewYAML))
	require.NoError(t, err)

	var loops int
	for _, e := range g.Edges() {
		if e.Loop {
			loops++
			assert.Equal(t, "iteration < 3", e.Guard)
		}
	}
	assert.Equal(t, 1, loops)
}

func TestFromJSON(t *testing.T) {
	data := []byte(`{
		"name": "pipeline",
		"start": "work",
		"nodes": [
			{"name": "work", "kind": "task", "agent": "worker", "prompt": "go"},
			{"name": "done", "kind": "success"}
		],
		"edges": [{"from": "work", "to": "done"}]
	}`)

	g, err := definition.FromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, "pipeline", g.Name())
	assert.Equal(t, 2, g.Len())
}

func TestFromYAML_ForkJoinByName(t *testing.T) {
	data := []byte(`
name: fanout
start: split
nodes:
  - {name: split, kind: fork, join: merge}
  - {name: left, kind: task, agent: a, prompt: l}
  - {name: right, kind: task, agent: a, prompt: r}
  - {name: merge, kind: join}
  - {name: done, kind: success}
edges:
  - {from: split, to: left}
  - {from: split, to: right}
  - {from: left, to: merge}
  - {from: right, to: merge}
  - {from: merge, to: done}
`)
	g, err := definition.FromYAML(data)
	require.NoError(t, err)

	var fork weave.Node
	for _, n := range g.Nodes() {
		if n.Kind == weave.KindFork {
			fork = n
		}
	}
	join, ok := g.Node(fork.Join)
	require.True(t, ok)
	assert.Equal(t, weave.KindJoin, join.Kind)
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown kind", `
name: bad
start: a
nodes:
  - {name: a, kind: widget}
`},
		{"duplicate node name", `
name: bad
start: a
nodes:
  - {name: a, kind: task, agent: x, prompt: p}
  - {name: a, kind: success}
`},
		{"empty node name", `
name: bad
start: a
nodes:
  - {name: "", kind: task}
`},
		{"unknown start", `
name: bad
start: ghost
nodes:
  - {name: a, kind: success}
`},
		{"edge to unknown node", `
name: bad
start: a
nodes:
  - {name: a, kind: task, agent: x, prompt: p}
  - {name: done, kind: success}
edges:
  - {from: a, to: ghost}
`},
		{"fork with unknown join", `
name: bad
start: split
nodes:
  - {name: split, kind: fork, join: ghost}
  - {name: done, kind: success}
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := definition.FromYAML([]byte(tt.yaml))
			assert.ErrorIs(t, err, weave.ErrMalformedGraph)
		})
	}
}

func TestFromFile_ByExtension(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "review.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(reviewYAML), 0o644))
	g, err := definition.FromFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "code-review", g.Name())

	txtPath := filepath.Join(dir, "review.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte(reviewYAML), 0o644))
	_, err = definition.FromFile(txtPath)
	assert.ErrorContains(t, err, "unsupported definition extension")

	_, err = definition.FromFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadDir_SortedAndFiltered(t *testing.T) {
	dir := t.TempDir()

	second := []byte("name: second\nstart: s\nnodes:\n  - {name: s, kind: success}\n")
	first := []byte("name: first\nstart: s\nnodes:\n  - {name: s, kind: success}\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), second, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yml"), first, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("skip"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	graphs, err := definition.LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, graphs, 2)
	assert.Equal(t, "first", graphs[0].Name())
	assert.Equal(t, "second", graphs[1].Name())
}

func TestLoadDir_PropagatesFileErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(":::"), 0o644))

	_, err := definition.LoadDir(dir)
	assert.ErrorContains(t, err, "bad.yaml")
}
