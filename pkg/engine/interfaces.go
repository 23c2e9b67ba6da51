package engine

import (
	"context"
	"time"
)

// PolicyChecker decides whether a request may run before the coordinator
// takes the lock or starts the tool.
type PolicyChecker interface {
	// CheckRequest evaluates the request for the given mode.
	CheckRequest(ctx context.Context, req *ExecutionRequest, mode Mode) (*PolicyDecision, error)
}

// PolicyDecision is the outcome of a policy evaluation.
type PolicyDecision struct {
	// Allowed is false when at least one error or critical violation matched.
	Allowed bool `json:"allowed"`

	// Denials are the messages of the blocking violations.
	Denials []string `json:"denials,omitempty"`

	// Warnings are the messages of the non-blocking violations.
	Warnings []string `json:"warnings,omitempty"`
}

// Result describes one coordinator invocation.
type Result struct {
	// RunID uniquely identifies the invocation in logs, spans and metrics.
	RunID string `json:"run_id"`

	// Playbook is the playbook path.
	Playbook string `json:"playbook"`

	// Mode is the mode the invocation ran in.
	Mode Mode `json:"mode"`

	// Command is the argument list that was, or would have been, executed.
	Command []string `json:"command"`

	// State is the resolved outcome. For ModeNoop it is Unchanged.
	State ChangeState `json:"state"`

	// Stats are the parsed counters. Nil when the tool did not run.
	Stats *ExecutionStats `json:"stats,omitempty"`

	// Executed reports whether the tool was started.
	Executed bool `json:"executed"`

	// Locked reports whether the advisory lock was held during execution.
	Locked bool `json:"locked"`

	// ExitCode is the tool's exit status.
	ExitCode int `json:"exit_code"`

	// Output is the captured tool output, only set when the request asked for it.
	Output string `json:"output,omitempty"`

	// Message is a human-readable summary of the outcome.
	Message string `json:"message"`

	// StartedAt is when the invocation began.
	StartedAt time.Time `json:"started_at"`

	// Duration is how long the invocation took.
	Duration time.Duration `json:"duration"`
}
