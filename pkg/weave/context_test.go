package weave

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestContext_SetGet verifies basic storage and overwrite behavior.
func TestContext_SetGet(t *testing.T) {
	c := NewContext()

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("key", "value")
	v, ok := c.Get("key")
	require.True(t, ok)
	assert.Equal(t, "value", v)

	c.Set("key", 42)
	v, _ = c.Get("key")
	assert.Equal(t, 42, v)
}

// TestContext_TypedAccessors covers String and Int coercions.
func TestContext_TypedAccessors(t *testing.T) {
	c := NewContext()
	c.Set("text", "hello")
	c.Set("count", 3)
	c.Set("score", 2.0)
	c.Set("flag", true)

	assert.Equal(t, "hello", c.String("text"))
	assert.Equal(t, "true", c.String("flag"))
	assert.Equal(t, "", c.String("missing"))

	assert.Equal(t, 3, c.Int("count"))
	assert.Equal(t, 2, c.Int("score")) // json numbers arrive as float64
	assert.Equal(t, 0, c.Int("text"))
	assert.Equal(t, 0, c.Int("missing"))
}

// TestContext_Keys returns sorted keys.
func TestContext_Keys(t *testing.T) {
	c := NewContext()
	c.Set("b", 1)
	c.Set("a", 2)
	c.Set("c", 3)

	assert.Equal(t, []string{"a", "b", "c"}, c.Keys())
	assert.Equal(t, 3, c.Len())
}

// TestContext_CloneIsIndependent verifies branch clones do not leak
// writes back to the parent.
func TestContext_CloneIsIndependent(t *testing.T) {
	parent := NewContext()
	parent.Set("shared", "original")

	clone := parent.Clone()
	clone.Set("shared", "branch")
	clone.Set("private", true)

	assert.Equal(t, "original", parent.String("shared"))
	_, ok := parent.Get("private")
	assert.False(t, ok)
}

// TestContext_MergeFrom verifies merge overwrites on collision.
func TestContext_MergeFrom(t *testing.T) {
	parent := NewContext()
	parent.Set("a", 1)
	parent.Set("contested", "parent")

	branch := NewContext()
	branch.Set("b", 2)
	branch.Set("contested", "branch")

	parent.MergeFrom(branch)

	assert.Equal(t, 1, parent.Int("a"))
	assert.Equal(t, 2, parent.Int("b"))
	assert.Equal(t, "branch", parent.String("contested"))
}

// TestContext_JSONRoundTrip verifies checkpoint serialization restores
// all entries.
func TestContext_JSONRoundTrip(t *testing.T) {
	c := NewContext()
	c.Set("input", "payload")
	c.Set("node_1_result", "done")
	c.Set("approved", false)

	data, err := json.Marshal(c)
	require.NoError(t, err)

	restored := NewContext()
	require.NoError(t, json.Unmarshal(data, restored))

	assert.Equal(t, "payload", restored.String("input"))
	assert.Equal(t, "done", restored.String("node_1_result"))
	v, ok := restored.Get("approved")
	require.True(t, ok)
	assert.Equal(t, false, v)
}

// TestContext_ConcurrentAccess exercises the lock under parallel
// writers and readers.
func TestContext_ConcurrentAccess(t *testing.T) {
	c := NewContext()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			c.Set("key", n)
		}(i)
		go func() {
			defer wg.Done()
			_ = c.Snapshot()
		}()
	}
	wg.Wait()

	_, ok := c.Get("key")
	assert.True(t, ok)
}
