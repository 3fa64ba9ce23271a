package weave

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Well-known context keys.
const (
	// InputKey holds the initial input passed to Execute.
	InputKey = "input"

	// OutputKey holds the workflow's final output, if a node chose to
	// set one explicitly. Otherwise the last task result stands in.
	OutputKey = "output"
)

// resultKey returns the default output key for a Task node.
func resultKey(id NodeID) string {
	return fmt.Sprintf("node_%d_result", id)
}

// counterKey returns the context key holding a Decision node's loop
// counter.
func counterKey(id NodeID) string {
	return fmt.Sprintf("node_%d_iterations", id)
}

// Context is the key-value state accumulated through one workflow run.
// Values are added or overwritten as nodes execute, never deleted.
// Context is safe for concurrent use; fork branches operate on clones
// that are merged back at the join.
type Context struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewContext creates an empty run context.
func NewContext() *Context {
	return &Context{values: make(map[string]any)}
}

// Set stores a value under key, overwriting any previous value.
func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

// Get returns the value for key and whether it exists.
func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

// String returns the value for key rendered as a string, or "" if the
// key is absent.
func (c *Context) String(key string) string {
	v, ok := c.Get(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Int returns the value for key as an int, or 0 if absent or not
// numeric. JSON round-trips store numbers as float64, so both are
// accepted.
func (c *Context) Int(key string) int {
	v, ok := c.Get(key)
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// Len returns the number of entries.
func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}

// Keys returns all keys in sorted order.
func (c *Context) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a shallow copy of the current entries. The copy is
// safe to read without holding the context's lock; nested values are
// shared.
func (c *Context) Snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := make(map[string]any, len(c.values))
	for k, v := range c.values {
		snap[k] = v
	}
	return snap
}

// Clone returns an independent copy for a fork branch.
func (c *Context) Clone() *Context {
	return &Context{values: c.Snapshot()}
}

// MergeFrom copies every entry of other into c, overwriting on
// collision. Fork merges call this in declared branch order, so the
// last-declared branch wins contested keys.
func (c *Context) MergeFrom(other *Context) {
	snap := other.Snapshot()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range snap {
		c.values[k] = v
	}
}

// MarshalJSON serializes the context for checkpointing.
func (c *Context) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Snapshot())
}

// UnmarshalJSON restores the context from a checkpoint snapshot.
func (c *Context) UnmarshalJSON(data []byte) error {
	var values map[string]any
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if values == nil {
		values = make(map[string]any)
	}
	c.values = values
	return nil
}
