package app

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected by the host.
//
// Runtime errors include:
//   - Registration: a payload type registered twice, or looked up before
//     it was registered
//   - Access: a system asked for a queue it did not declare
//   - Scheduling: duplicate or malformed systems
//   - Execution: a system returned an error during a round
//
// The events core itself has no recoverable errors; everything here is
// about wiring queues into the host.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// System names the affected system, if any.
	System string

	// Queue names the affected queue (payload type), if any.
	Queue string

	// Round is the round number the error occurred in (0 outside a round).
	Round int64

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeQueueNotRegistered indicates a lookup for an unregistered payload type.
	ErrCodeQueueNotRegistered RuntimeErrorCode = "QUEUE_NOT_REGISTERED"

	// ErrCodeQueueAlreadyRegistered indicates a second registration of a payload type.
	ErrCodeQueueAlreadyRegistered RuntimeErrorCode = "QUEUE_ALREADY_REGISTERED"

	// ErrCodeInvalidPolicy indicates a registration with an unknown clearing policy.
	ErrCodeInvalidPolicy RuntimeErrorCode = "INVALID_POLICY"

	// ErrCodeAccessUndeclared indicates a system used a queue it did not declare.
	ErrCodeAccessUndeclared RuntimeErrorCode = "ACCESS_UNDECLARED"

	// ErrCodeDuplicateSystem indicates two systems share a name.
	ErrCodeDuplicateSystem RuntimeErrorCode = "DUPLICATE_SYSTEM"

	// ErrCodeInvalidSystem indicates a system definition is malformed.
	ErrCodeInvalidSystem RuntimeErrorCode = "INVALID_SYSTEM"

	// ErrCodeSystemFailed indicates a system returned an error.
	ErrCodeSystemFailed RuntimeErrorCode = "SYSTEM_FAILED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.System != "" && e.Queue != "" {
		msg = fmt.Sprintf("%s (system=%s, queue=%s)", msg, e.System, e.Queue)
	} else if e.System != "" {
		msg = fmt.Sprintf("%s (system=%s)", msg, e.System)
	} else if e.Queue != "" {
		msg = fmt.Sprintf("%s (queue=%s)", msg, e.Queue)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// HasCode returns true if err is (or wraps) a RuntimeError with the given
// code. Nested runtime errors are checked too, so a SYSTEM_FAILED error
// caused by an access violation matches both codes.
func HasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	for errors.As(err, &re) {
		if re.Code == code {
			return true
		}
		err = re.Err
	}
	return false
}

// IsNotRegistered returns true if the error is a missing-queue error.
func IsNotRegistered(err error) bool {
	return HasCode(err, ErrCodeQueueNotRegistered)
}

// IsAccessError returns true if a system used a queue it did not declare.
func IsAccessError(err error) bool {
	return HasCode(err, ErrCodeAccessUndeclared)
}

// IsSystemError returns true if the error came from a failing system.
func IsSystemError(err error) bool {
	return HasCode(err, ErrCodeSystemFailed)
}

func newNotRegisteredError(queue string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeQueueNotRegistered,
		Message: "no queue registered for payload type",
		Queue:   queue,
	}
}

func newAlreadyRegisteredError(queue string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeQueueAlreadyRegistered,
		Message: "payload type already has a queue",
		Queue:   queue,
	}
}

func newAccessError(system, queue string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeAccessUndeclared,
		Message: "system did not declare access to queue",
		System:  system,
		Queue:   queue,
	}
}

func newSystemError(system string, round int64, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeSystemFailed,
		Message: fmt.Sprintf("system failed in round %d", round),
		System:  system,
		Round:   round,
		Err:     err,
	}
}
