package engine

import (
	"errors"
	"strings"
)

// Error is the engine's classified failure.
//
// Messages are human-readable and surfaced to researchers verbatim. Error()
// joins the distinct messages with newlines.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Reason narrows the category (e.g. which duplicate was found).
	Reason ErrorReason

	// Messages are the aggregated, user-facing messages.
	Messages []string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a referenced record is missing or inactive.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeValidation indicates the request was rejected before any write.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodePartialBatch indicates some creates failed; successes were committed.
	ErrCodePartialBatch ErrorCode = "PARTIAL_BATCH_FAILURE"

	// ErrCodeFatalBatch indicates a batch failed in a way that aborted the operation.
	ErrCodeFatalBatch ErrorCode = "FATAL_BATCH_FAILURE"
)

// ErrorReason refines an ErrorCode.
type ErrorReason string

const (
	ReasonProjectNotFound           ErrorReason = "ProjectNotFound"
	ReasonTemplateNotAssigned       ErrorReason = "TemplateNotAssigned"
	ReasonTargetNotFound            ErrorReason = "TargetNotFound"
	ReasonLineNotFound              ErrorReason = "LineNotFound"
	ReasonDuplicateStandardQuestion ErrorReason = "DuplicateStandardQuestion"
	ReasonDuplicateCustomQuestion   ErrorReason = "DuplicateCustomQuestion"
	ReasonDuplicateModule           ErrorReason = "DuplicateModule"
	ReasonInvalidSortOrder          ErrorReason = "InvalidSortOrder"
	ReasonEmptyRows                 ErrorReason = "EmptyRows"
	ReasonInvalidRequest            ErrorReason = "InvalidRequest"
	ReasonCreateFailed              ErrorReason = "CreateFailed"
	ReasonRenumberFailed            ErrorReason = "RenumberFailed"
	ReasonDisplacementFailed        ErrorReason = "DisplacementFailed"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msgs := distinct(e.Messages)
	if len(msgs) == 0 {
		if e.Err != nil {
			return string(e.Code) + ": " + e.Err.Error()
		}
		return string(e.Code)
	}
	return strings.Join(msgs, "\n")
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// distinct returns msgs without repeats, keeping first occurrences.
func distinct(msgs []string) []string {
	seen := make(map[string]bool, len(msgs))
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

func newError(code ErrorCode, reason ErrorReason, msgs ...string) *Error {
	return &Error{Code: code, Reason: reason, Messages: msgs}
}

func codeOf(err error) (ErrorCode, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

// IsNotFound returns true if err is a NOT_FOUND engine error.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrCodeNotFound
}

// IsValidation returns true if err is a VALIDATION engine error.
func IsValidation(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrCodeValidation
}

// IsPartial returns true if err reports a partially committed batch.
func IsPartial(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrCodePartialBatch
}

// IsFatal returns true if err reports a batch that aborted the operation.
func IsFatal(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrCodeFatalBatch
}

// ReasonOf returns the reason of an engine error, or "" for other errors.
func ReasonOf(err error) ErrorReason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}
