// Package prompt expands ${key} placeholders in task prompts from the
// run context, so a node instruction like
//
//	Review the following draft:\n${draft}
//
// receives the author's output before the reviewer agent is called.
package prompt

import (
	"fmt"
	"regexp"
	"strings"
)

// placeholder matches ${name}; names are alphanumeric/underscore.
var placeholder = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// UndefinedVariableError reports placeholders with no value during a
// strict expansion.
type UndefinedVariableError struct {
	// Names are the missing placeholder names in order of appearance.
	Names []string
}

// Error implements the error interface.
func (e *UndefinedVariableError) Error() string {
	return fmt.Sprintf("undefined variables: %s", strings.Join(e.Names, ", "))
}

// Expand replaces every ${key} in s with the value from vars. Missing
// keys are left as-is, so a prompt mentioning an unset context entry
// still reaches the agent intact.
func Expand(s string, vars map[string]any) string {
	out, _ := expand(s, vars, false)
	return out
}

// ExpandStrict is like Expand but returns UndefinedVariableError when
// any placeholder has no value.
func ExpandStrict(s string, vars map[string]any) (string, error) {
	return expand(s, vars, true)
}

func expand(s string, vars map[string]any, strict bool) (string, error) {
	if s == "" || !strings.Contains(s, "${") {
		return s, nil
	}

	var missing []string
	out := placeholder.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		if v, ok := vars[name]; ok {
			return fmt.Sprintf("%v", v)
		}
		if strict {
			missing = append(missing, name)
		}
		return match
	})

	if len(missing) > 0 {
		return out, &UndefinedVariableError{Names: missing}
	}
	return out, nil
}
