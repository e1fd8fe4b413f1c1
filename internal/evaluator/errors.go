package evaluator

import "fmt"

// RuntimeError is the evaluator's error shape (spec.md §4.1: "Errors
// surface textually with an optional error kind code"). Kind is empty when
// the failure has no more specific classification.
type RuntimeError struct {
	Message string
	Kind    string
}

func (e *RuntimeError) Error() string { return e.Message }

func errf(kind, format string, args ...any) *RuntimeError {
	return &RuntimeError{Message: fmt.Sprintf(format, args...), Kind: kind}
}
