package engine

import "fmt"

// ParseError is a syntax error in the input, with a 1-based location.
type ParseError struct {
	Message string
	Line    int
	Column  int
	Offset  int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("SyntaxError: %s (%d:%d)", e.Message, e.Line, e.Column)
}

// ValidationError means the formatting options themselves are invalid. The
// same options apply to every file, so callers treat it as fatal for a run.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return "Validation Error: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
