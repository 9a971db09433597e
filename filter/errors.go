package filter

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyExpression is wrapped by the CompilationError for a blank filter
	ErrEmptyExpression = errors.New("empty expression")
	// ErrUnknownPreset is returned when a named filter is not configured
	ErrUnknownPreset = errors.New("filter preset not found")
)

// CompilationError reports a view filter that expr could not compile
type CompilationError struct {
	Expression string
	Err        error
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("invalid view filter %q: %v", e.Expression, e.Err)
}

func (e *CompilationError) Unwrap() error {
	return e.Err
}

// EvaluationError reports a filter that failed at run time on one item
type EvaluationError struct {
	Expression string
	ItemID     string
	Err        error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("view filter %q failed on item %s: %v", e.Expression, e.ItemID, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}
