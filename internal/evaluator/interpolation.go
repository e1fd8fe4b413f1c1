package evaluator

import (
	"regexp"

	"codenerd/internal/environment"
	"codenerd/internal/value"
)

// interpolationPattern matches bare `{name}` spans; spec.md §4.1: "String
// interpolation does not support nested expressions; only bare names."
var interpolationPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// interpolate resolves brace interpolation at evaluation time. Unresolved
// names are emitted literally; interpolation never aborts evaluation
// (spec.md §4.1).
func (e *Evaluator) interpolate(s string, env *environment.Environment) string {
	return interpolationPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[1 : len(match)-1]
		v, ok := env.Get(name)
		if !ok {
			return match
		}
		return value.Display(v)
	})
}
