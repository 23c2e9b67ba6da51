package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorKind identifies which terminal outcome an invocation ended in.
// Every failed invocation maps to exactly one kind; none of them are retried.
type ErrorKind string

const (
	// KindInvalidRequest indicates the request failed construction-time validation.
	KindInvalidRequest ErrorKind = "invalid_request"

	// KindExecutableNotFound indicates the playbook runner is not on the search path.
	KindExecutableNotFound ErrorKind = "executable_not_found"

	// KindTargetNotFound indicates the playbook file does not exist.
	KindTargetNotFound ErrorKind = "target_not_found"

	// KindPolicyDenied indicates a policy with error severity rejected the request.
	KindPolicyDenied ErrorKind = "policy_denied"

	// KindLockAcquisitionFailed indicates another invocation holds the playbook lock.
	KindLockAcquisitionFailed ErrorKind = "lock_acquisition_failed"

	// KindTimeoutExceeded indicates the subprocess was killed after the wall-clock timeout.
	KindTimeoutExceeded ErrorKind = "timeout_exceeded"

	// KindProcessFailed indicates the subprocess could not be started, was cancelled,
	// or exited nonzero without producing any output.
	KindProcessFailed ErrorKind = "process_failed"

	// KindOutputParse indicates no JSON payload could be decoded from the output.
	KindOutputParse ErrorKind = "output_parse_error"

	// KindTaskFailure indicates the tool completed but reported failed tasks.
	KindTaskFailure ErrorKind = "task_failure"
)

// Error is the single error type returned by the engine.
type Error struct {
	// Kind is the terminal outcome this error represents.
	Kind ErrorKind `json:"kind"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Playbook is the playbook path the invocation targeted, if known.
	Playbook string `json:"playbook,omitempty"`

	// Timeout is the configured wall-clock timeout for KindTimeoutExceeded.
	Timeout time.Duration `json:"timeout,omitempty"`

	// Count is the number of failed tasks for KindTaskFailure.
	Count int `json:"count,omitempty"`

	// Snippet is a prefix of the unparsed text for KindOutputParse.
	Snippet string `json:"snippet,omitempty"`

	// Output is whatever the subprocess wrote before the error surfaced.
	Output string `json:"-"`

	// Result is the partially populated result, when execution got that far.
	Result *Result `json:"-"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Playbook != "" {
		fmt.Fprintf(&b, " (playbook=%s)", e.Playbook)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

func newInvalidRequestError(err error) *Error {
	return &Error{
		Kind:    KindInvalidRequest,
		Message: "invalid execution request",
		Err:     err,
	}
}

func newExecutableNotFoundError(tool string, err error) *Error {
	return &Error{
		Kind:    KindExecutableNotFound,
		Message: fmt.Sprintf("%s not found in PATH", tool),
		Err:     err,
	}
}

func newTargetNotFoundError(playbook string, err error) *Error {
	return &Error{
		Kind:     KindTargetNotFound,
		Message:  "playbook does not exist",
		Playbook: playbook,
		Err:      err,
	}
}

func newPolicyDeniedError(playbook string, violations []string) *Error {
	return &Error{
		Kind:     KindPolicyDenied,
		Message:  "request denied by policy: " + strings.Join(violations, "; "),
		Playbook: playbook,
	}
}

func newLockAcquisitionError(playbook, lockPath string) *Error {
	return &Error{
		Kind:     KindLockAcquisitionFailed,
		Message:  fmt.Sprintf("another run holds the lock %s", lockPath),
		Playbook: playbook,
	}
}

func newTimeoutError(timeout time.Duration, output string) *Error {
	return &Error{
		Kind:    KindTimeoutExceeded,
		Message: fmt.Sprintf("execution exceeded timeout of %s", timeout),
		Timeout: timeout,
		Output:  output,
	}
}

func newProcessFailedError(message string, output string, err error) *Error {
	return &Error{
		Kind:    KindProcessFailed,
		Message: message,
		Output:  output,
		Err:     err,
	}
}

func newOutputParseError(snippet string, err error) *Error {
	return &Error{
		Kind:    KindOutputParse,
		Message: fmt.Sprintf("unable to parse playbook output near %q", snippet),
		Snippet: snippet,
		Err:     err,
	}
}

func newTaskFailureError(count int) *Error {
	return &Error{
		Kind:    KindTaskFailure,
		Message: fmt.Sprintf("%d %s failed", count, plural(count, "task", "tasks")),
		Count:   count,
	}
}
