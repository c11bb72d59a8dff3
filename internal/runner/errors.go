package runner

import "fmt"

// IOError is a failure to read or write a file.
type IOError struct {
	Op   string // "read" or "write"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("Unable to %s file: %s\n%v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// UnexpectedError wraps a value recovered from an engine panic.
type UnexpectedError struct {
	Value any
	Stack []byte
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func (e *UnexpectedError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// DebugCheckError reports that formatting was not stable or changed the
// program. Diff holds the evidence.
type DebugCheckError struct {
	Message string
	Diff    string
}

func (e *DebugCheckError) Error() string {
	if e.Diff == "" {
		return e.Message
	}
	return e.Message + "\n" + e.Diff
}
