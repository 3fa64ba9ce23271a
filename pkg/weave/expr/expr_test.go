package expr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convergio/weave/pkg/weave/expr"
)

func TestEvaluate(t *testing.T) {
	vars := map[string]any{
		"approved":  false,
		"iteration": 2,
		"score":     0.85,
		"verdict":   "needs work",
		"count":     int64(10),
		"output":    "",
	}

	tests := []struct {
		guard string
		want  bool
	}{
		{"approved == true", false},
		{"approved == false", true},
		{"approved != true", true},
		{"iteration < 3", true},
		{"iteration < 2", false},
		{"iteration <= 2", true},
		{"iteration >= 2", true},
		{"iteration > 2", false},
		{"score >= 0.8", true},
		{"score > 0.9", false},
		{"count > 5", true},
		{`verdict == "needs work"`, true},
		{`verdict == 'needs work'`, true},
		{`verdict contains "work"`, true},
		{`verdict contains "approve"`, false},
		{"approved == false and iteration < 3", true},
		{"approved == false and iteration < 2", false},
		{"approved == true or score >= 0.8", true},
		{"approved == true or score > 0.9", false},
		{"not approved", true},
		{"!approved", true},
		{"not iteration < 3", false},
		// bare values are truthiness checks
		{"score", true},
		{"approved", false},
		{"output", false},
		{"missing_var", true}, // unresolved identifier is its own text
		{"", false},
		{"  ", false},
	}

	for _, tt := range tests {
		t.Run(tt.guard, func(t *testing.T) {
			got, err := expr.Evaluate(tt.guard, vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got, "guard %q", tt.guard)
		})
	}
}

func TestEvaluate_ChainsAssociateRight(t *testing.T) {
	vars := map[string]any{"a": true, "b": false, "c": true}

	got, err := expr.Evaluate("a and b or c", vars)
	require.NoError(t, err)
	// a and (b or c)
	assert.True(t, got)
}

func TestEvaluate_NilVars(t *testing.T) {
	got, err := expr.Evaluate("1 < 2", nil)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestResolve(t *testing.T) {
	vars := map[string]any{"name": "weave", "n": 3}

	assert.Equal(t, "literal", expr.Resolve(`"literal"`, vars))
	assert.Equal(t, "literal", expr.Resolve(`'literal'`, vars))
	assert.Equal(t, true, expr.Resolve("true", vars))
	assert.Equal(t, false, expr.Resolve("FALSE", vars))
	assert.Nil(t, expr.Resolve("null", vars))
	assert.Equal(t, int64(42), expr.Resolve("42", vars))
	assert.Equal(t, 0.5, expr.Resolve("0.5", vars))
	assert.Equal(t, "weave", expr.Resolve("name", vars))
	assert.Equal(t, 3, expr.Resolve("n", vars))
	// unknown identifiers resolve to their own text
	assert.Equal(t, "ghost", expr.Resolve("ghost", vars))
}

func TestTruthy(t *testing.T) {
	assert.False(t, expr.Truthy(nil))
	assert.False(t, expr.Truthy(false))
	assert.True(t, expr.Truthy(true))
	assert.False(t, expr.Truthy(""))
	assert.True(t, expr.Truthy("x"))
	assert.False(t, expr.Truthy(0))
	assert.True(t, expr.Truthy(7))
	assert.False(t, expr.Truthy(0.0))
	assert.True(t, expr.Truthy(0.1))
	assert.True(t, expr.Truthy([]string{}))
}
