// Package expr evaluates guard expressions for workflow edges.
//
// Guards are small boolean expressions over the run context, for
// example:
//
//	approved == false and iteration < 3
//	score >= 0.8 or reviewer == "arbiter"
//	not escalated
//
// Supported operators: ==, !=, <, >, <=, >=, contains, and, or,
// not / ! prefix. Operands are resolved against the variable map;
// quoted strings, booleans, null, and numbers are literals, and a bare
// identifier not present in the variables resolves to its own text.
package expr

import (
	"fmt"
	"strings"
)

// comparison is a binary operator over resolved operands.
type comparison func(left, right any) bool

// comparisons in trial order: two-character operators before their
// one-character prefixes.
var comparisons = []struct {
	op    string
	apply comparison
}{
	{"==", func(l, r any) bool { return text(l) == text(r) }},
	{"!=", func(l, r any) bool { return text(l) != text(r) }},
	{">=", func(l, r any) bool { return number(l) >= number(r) }},
	{"<=", func(l, r any) bool { return number(l) <= number(r) }},
	{">", func(l, r any) bool { return number(l) > number(r) }},
	{"<", func(l, r any) bool { return number(l) < number(r) }},
	{" contains ", func(l, r any) bool { return strings.Contains(text(l), text(r)) }},
}

// Evaluate evaluates a guard expression against vars. An empty guard
// evaluates to false; unconditional edges are represented by the
// absence of a guard, not by an empty one.
func Evaluate(guard string, vars map[string]any) (bool, error) {
	guard = strings.TrimSpace(guard)
	if guard == "" {
		return false, nil
	}

	// Negation prefixes.
	if rest, ok := strings.CutPrefix(guard, "not "); ok {
		result, err := Evaluate(rest, vars)
		return !result, err
	}
	if rest, ok := strings.CutPrefix(guard, "!"); ok {
		result, err := Evaluate(rest, vars)
		return !result, err
	}

	// Boolean connectives, split on the first occurrence so chains
	// associate to the right.
	if left, right, ok := strings.Cut(guard, " and "); ok {
		l, err := Evaluate(left, vars)
		if err != nil {
			return false, err
		}
		r, err := Evaluate(right, vars)
		if err != nil {
			return false, err
		}
		return l && r, nil
	}
	if left, right, ok := strings.Cut(guard, " or "); ok {
		l, err := Evaluate(left, vars)
		if err != nil {
			return false, err
		}
		r, err := Evaluate(right, vars)
		if err != nil {
			return false, err
		}
		return l || r, nil
	}

	for _, cmp := range comparisons {
		if left, right, ok := strings.Cut(guard, cmp.op); ok {
			l := Resolve(strings.TrimSpace(left), vars)
			r := Resolve(strings.TrimSpace(right), vars)
			return cmp.apply(l, r), nil
		}
	}

	// Bare value: truthiness check.
	return Truthy(Resolve(guard, vars)), nil
}

// text renders an operand for string comparison.
func text(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
