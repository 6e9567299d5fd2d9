// Package faults defines the typed errors that abort a cuality command.
// None of them is retried.
package faults

import (
	"fmt"
	"strings"
)

// ToolError reports a non-zero exit from an external command such as git.
type ToolError struct {
	// Command is the argv that was executed.
	Command []string

	// ExitCode is the process exit status, or -1 if the process never ran.
	ExitCode int

	// Stderr is the trimmed standard error output of the command.
	Stderr string

	// Err is the underlying exec error.
	Err error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("command %q failed", strings.Join(e.Command, " "))
	if e.ExitCode >= 0 {
		msg += fmt.Sprintf(" with exit status %d", e.ExitCode)
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// ServiceError reports a non-2xx HTTP response from a remote service.
type ServiceError struct {
	StatusCode int
	URL        string
	Body       string
	Err        error
}

func (e *ServiceError) Error() string {
	msg := fmt.Sprintf("remote service returned HTTP %d", e.StatusCode)
	if e.URL != "" {
		msg += " for " + e.URL
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// IOError ties a file-system failure to the path that caused it.
type IOError struct {
	// Op is a short verb: "open", "read", "write", "rename".
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError wraps err as an IOError, returning nil when err is nil.
func NewIOError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Path: path, Err: err}
}
