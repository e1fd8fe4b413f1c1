// Package safety implements the patch validator (spec.md §4.6): the last
// line of defense before a cognitive Fix decision's new_code is allowed to
// replace running source. It is grounded on the teacher's multi-check
// validators (internal/core/validator_syntax.go's parser-backed Validate,
// internal/core/validator_paranoid.go's "ALL checks must pass" posture) —
// every check here must pass or the whole patch is rejected, there is no
// partial credit.
package safety

import (
	"fmt"
	"sort"

	"codenerd/internal/parser"
)

// Config bounds what a Fix patch is allowed to do.
type Config struct {
	MaxFixLines int
}

// DefaultConfig mirrors the teacher's habit of shipping a constructor with
// sane defaults (NewParanoidFileValidator, NewSyntaxValidator) rather than
// requiring callers to fill in every field.
func DefaultConfig() Config {
	return Config{MaxFixLines: 50}
}

// Result reports a single validation outcome, alongside per-check detail
// for the cognitive trace — the same shape the teacher's ValidationResult
// plays (Verified/Method/Details), trimmed to what AURA's Fix path needs.
type Result struct {
	Verified bool
	Reason   string
	Checks   map[string]bool
}

func ok() Result {
	return Result{Verified: true, Checks: map[string]bool{}}
}

func reject(check, reason string) Result {
	return Result{Verified: false, Reason: reason, Checks: map[string]bool{check: false}}
}

// Validator runs the four checks spec.md §4.6 names against a proposed
// patch: line-count bound, re-parseability, exact goal-set preservation,
// and the invariant-preservation extension point.
type Validator struct {
	cfg Config
}

// New creates a Validator. A zero Config falls back to DefaultConfig.
func New(cfg Config) *Validator {
	if cfg.MaxFixLines <= 0 {
		cfg = DefaultConfig()
	}
	return &Validator{cfg: cfg}
}

// Validate checks newCode against originalGoals, the set of goal
// descriptions declared by the program being patched.
func (v *Validator) Validate(newCode string, originalGoals []string) Result {
	if n := lineCount(newCode); n > v.cfg.MaxFixLines {
		return reject("max_fix_lines", fmt.Sprintf("patch has %d lines, exceeds max_fix_lines (%d)", n, v.cfg.MaxFixLines))
	}

	prog, err := parser.Parse(newCode)
	if err != nil {
		return reject("parseable", fmt.Sprintf("patch does not parse: %v", err))
	}

	if reason, preserved := goalSetPreserved(originalGoals, prog.GoalDescriptions()); !preserved {
		return reject("goal_set_preserved", reason)
	}

	// Extension point (spec.md §4.6 item 4): invariant nodes are parsed but
	// never evaluated (ast.InvariantDecl), so there is nothing to compare
	// them against yet; a future invariant language slots in here.

	return ok()
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	n := 1
	for _, r := range s {
		if r == '\n' {
			n++
		}
	}
	return n
}

// goalSetPreserved implements spec.md §4.6 item 3: the set of goal
// descriptions must be exactly equal, order-independent, no additions,
// removals, or edits.
func goalSetPreserved(original, proposed []string) (string, bool) {
	orig := sortedCopy(original)
	prop := sortedCopy(proposed)

	if len(orig) != len(prop) {
		return fmt.Sprintf("goal count changed: %d -> %d", len(orig), len(prop)), false
	}
	for i := range orig {
		if orig[i] != prop[i] {
			return fmt.Sprintf("goal set differs: had %q, now has %q", orig[i], prop[i]), false
		}
	}
	return "", true
}

func sortedCopy(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	sort.Strings(out)
	return out
}
