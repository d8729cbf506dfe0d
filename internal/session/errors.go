package session

import (
	"errors"
	"fmt"
)

// Code classifies a session error.
type Code string

// Error codes
const (
	CodeNotFound        Code = "NOT_FOUND"
	CodeAlreadyRunning  Code = "ALREADY_RUNNING"
	CodeNotRunning      Code = "NOT_RUNNING"
	CodeInvalidSettings Code = "INVALID_SETTINGS"
	CodeResolveFailed   Code = "RESOLVE_FAILED"
	CodeSpawnFailed     Code = "SPAWN_FAILED"
	CodeProbeFailed     Code = "PROBE_FAILED"
)

// Messages shown to the operator.
const (
	MsgAlreadyRunning = "A stream is already running. Please stop the current stream before starting a new one."
	MsgNotRunning     = "No stream is running."
	MsgNothingToRetry = "No previous stream to restart."
)

// Error represents a session domain error
type Error struct {
	Code    Code
	Message string
	// Command is the generated command line, set when it was built before the failure.
	Command string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new session error
func NewError(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// CodeOf returns the code of a session error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
