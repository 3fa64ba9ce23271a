package agent_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convergio/weave/pkg/weave/agent"
)

func stub(result string) agent.Agent {
	return agent.Func(func(context.Context, agent.Task, map[string]any) (any, error) {
		return result, nil
	})
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := agent.NewRegistry()
	require.NoError(t, r.Register("author", stub("draft")))

	a, err := r.Get("author")
	require.NoError(t, err)
	got, err := a.Execute(context.Background(), agent.Task{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "draft", got)

	assert.True(t, r.Has("author"))
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_DuplicateName(t *testing.T) {
	r := agent.NewRegistry()
	require.NoError(t, r.Register("author", stub("a")))
	err := r.Register("author", stub("b"))
	assert.ErrorIs(t, err, agent.ErrDuplicate)
}

func TestRegistry_RejectsEmptyNameAndNilAgent(t *testing.T) {
	r := agent.NewRegistry()
	assert.Error(t, r.Register("", stub("a")))
	assert.Error(t, r.Register("author", nil))
}

func TestRegistry_UnknownWithoutFallback(t *testing.T) {
	r := agent.NewRegistry()
	_, err := r.Get("ghost")
	assert.ErrorIs(t, err, agent.ErrNotRegistered)
	assert.ErrorContains(t, err, "ghost")
}

func TestRegistry_FallbackServesUnknownNames(t *testing.T) {
	r := agent.NewRegistry()
	require.NoError(t, r.Register("author", stub("specific")))
	r.SetFallback(stub("fallback"))

	a, err := r.Get("ghost")
	require.NoError(t, err)
	got, _ := a.Execute(context.Background(), agent.Task{}, nil)
	assert.Equal(t, "fallback", got)

	// registered names still win over the fallback
	a, err = r.Get("author")
	require.NoError(t, err)
	got, _ = a.Execute(context.Background(), agent.Task{}, nil)
	assert.Equal(t, "specific", got)

	// fallback does not count as registered
	assert.False(t, r.Has("ghost"))
}

func TestRegistry_NamesSorted(t *testing.T) {
	r := agent.NewRegistry()
	for _, name := range []string{"reviewer", "author", "arbiter"} {
		require.NoError(t, r.Register(name, stub(name)))
	}
	assert.Equal(t, []string{"arbiter", "author", "reviewer"}, r.Names())
}

func TestFunc_ImplementsAgent(t *testing.T) {
	called := false
	var a agent.Agent = agent.Func(
		func(_ context.Context, task agent.Task, vars map[string]any) (any, error) {
			called = true
			assert.Equal(t, "Review", task.Node)
			assert.Equal(t, "v", vars["k"])
			return nil, nil
		})

	_, err := a.Execute(context.Background(), agent.Task{Node: "Review"}, map[string]any{"k": "v"})
	require.NoError(t, err)
	assert.True(t, called)
}
