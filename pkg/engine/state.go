package engine

import "fmt"

// ExecutionStats holds the task counters the tool reported for the local host.
// Only Ok, Changed and Failed take part in state resolution.
type ExecutionStats struct {
	Host        string `json:"host"`
	Ok          int    `json:"ok"`
	Changed     int    `json:"changed"`
	Failed      int    `json:"failed"`
	Skipped     int    `json:"skipped"`
	Unreachable int    `json:"unreachable"`
	Rescued     int    `json:"rescued"`
	Ignored     int    `json:"ignored"`
}

// String renders the counters in the tool's recap style.
func (s ExecutionStats) String() string {
	return fmt.Sprintf("ok=%d changed=%d failed=%d skipped=%d unreachable=%d",
		s.Ok, s.Changed, s.Failed, s.Skipped, s.Unreachable)
}

// ChangeState is the authoritative outcome of one invocation.
type ChangeState struct {
	Kind StateKind `json:"kind"`

	// Count is the number of changed tasks for StateChanged and the number of
	// failed tasks for StateFailed. It is zero for StateUnchanged.
	Count int `json:"count"`
}

// Unchanged returns the no-change state.
func Unchanged() ChangeState {
	return ChangeState{Kind: StateUnchanged}
}

// Changed returns a changed state with the given number of changed tasks.
func Changed(count int) ChangeState {
	return ChangeState{Kind: StateChanged, Count: count}
}

// Failed returns a failed state with the given number of failed tasks.
func Failed(count int) ChangeState {
	return ChangeState{Kind: StateFailed, Count: count}
}

// Resolve turns task counters into a ChangeState. Failures win over changes
// and changes win over unchanged tasks, whatever the other counters say.
func Resolve(stats ExecutionStats) ChangeState {
	switch {
	case stats.Failed > 0:
		return Failed(stats.Failed)
	case stats.Changed > 0:
		return Changed(stats.Changed)
	default:
		return Unchanged()
	}
}

// IsChanged reports whether the state represents a change on the host.
func (s ChangeState) IsChanged() bool {
	return s.Kind == StateChanged
}

// IsFailed reports whether the state represents failed tasks.
func (s ChangeState) IsFailed() bool {
	return s.Kind == StateFailed
}

// Summary returns a short human-readable description of the state.
func (s ChangeState) Summary() string {
	switch s.Kind {
	case StateChanged:
		return fmt.Sprintf("%d %s changed", s.Count, plural(s.Count, "task", "tasks"))
	case StateFailed:
		return fmt.Sprintf("%d %s failed", s.Count, plural(s.Count, "task", "tasks"))
	default:
		return "no changes"
	}
}

// String implements fmt.Stringer.
func (s ChangeState) String() string {
	if s.Kind == StateUnchanged {
		return string(s.Kind)
	}
	return fmt.Sprintf("%s(%d)", s.Kind, s.Count)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
