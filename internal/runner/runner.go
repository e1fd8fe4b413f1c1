// Package runner implements the cognitive runner (spec.md §4.10, C11): the
// top-level retry loop around one program run, grounded on the
// red-green retry loop shape of the teacher's internal/core/tdd_loop.go
// (bounded attempts, re-running after each applied change).
package runner

import (
	"fmt"

	"codenerd/internal/ast"
	"codenerd/internal/cognitive"
	"codenerd/internal/checkpoint"
	"codenerd/internal/environment"
	"codenerd/internal/evaluator"
	"codenerd/internal/parser"
	"codenerd/internal/safety"
	"codenerd/internal/value"
)

// DefaultMaxRetries bounds a cognitive run's total attempts.
const DefaultMaxRetries = 5

// AppliedFix records one source replacement the runner accepted.
type AppliedFix struct {
	NewCode     string
	Explanation string
}

// Result is the outcome of Run.
type Result struct {
	Value       value.Value
	Err         error
	Retries     int
	AppliedFixes []AppliedFix
	FinalSource string
}

// Config bounds a Run call.
type Config struct {
	MaxRetries int
	Validator  *safety.Validator
}

// DefaultConfig returns spec.md §4.10's defaults.
func DefaultConfig() Config {
	return Config{MaxRetries: DefaultMaxRetries, Validator: safety.New(safety.DefaultConfig())}
}

// NewRuntime builds the cognitive.Runtime used on the first attempt.
// Subsequent attempts always run with cognitive.Null{} (spec.md §4.10's
// "cognitive on first attempt only" rationale: a second deliberation on an
// already-fixed source would loop).
type NewRuntime func() cognitive.Runtime

// Run implements spec.md §4.10's pseudocode: parse, build an evaluator
// with a cognitive runtime only on the first attempt, evaluate, and if the
// evaluator accumulated pending fixes, validate and apply each via C7
// before retrying — up to cfg.MaxRetries.
func Run(original string, cfg Config, newRuntime NewRuntime, checkpoints *checkpoint.Manager, caps evaluator.Capabilities) Result {
	if cfg.MaxRetries <= 0 {
		cfg = DefaultConfig()
	}
	if cfg.Validator == nil {
		cfg.Validator = safety.New(safety.DefaultConfig())
	}

	source := original
	var applied []AppliedFix

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		prog, err := parser.Parse(source)
		if err != nil {
			return Result{Err: fmt.Errorf("runner: parse failed on attempt %d: %w", attempt, err), Retries: attempt, AppliedFixes: applied, FinalSource: source}
		}

		var rt cognitive.Runtime
		if attempt == 0 && newRuntime != nil {
			rt = newRuntime()
		} else {
			rt = cognitive.Null{}
		}

		ev := evaluator.New(rt, checkpoints, caps)
		env := environment.New()
		result, evalErr := ev.Run(prog, env)

		if len(ev.PendingFixes) == 0 {
			return Result{Value: result, Err: evalErr, Retries: attempt, AppliedFixes: applied, FinalSource: source}
		}

		progressed := false
		for _, fix := range ev.PendingFixes {
			if acceptFix(cfg.Validator, fix.NewCode, prog) {
				source = fix.NewCode
				applied = append(applied, AppliedFix{NewCode: fix.NewCode, Explanation: fix.Explanation})
				progressed = true
			}
		}
		if !progressed {
			// Every pending fix was rejected; re-running the same source
			// would loop identically, so surface the last evaluation error.
			return Result{Value: result, Err: evalErr, Retries: attempt, AppliedFixes: applied, FinalSource: source}
		}
	}

	return Result{Err: fmt.Errorf("runner: exceeded max_retries (%d) without converging", cfg.MaxRetries), Retries: cfg.MaxRetries, AppliedFixes: applied, FinalSource: source}
}

func acceptFix(v *safety.Validator, newCode string, prog *ast.Program) bool {
	result := v.Validate(newCode, prog.GoalDescriptions())
	return result.Verified
}
