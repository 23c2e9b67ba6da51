package engine

import (
	"encoding/json"
	"fmt"
)

// StateKind is the resolved outcome category of one invocation.
type StateKind string

const (
	// StateUnchanged indicates every task ran without changing the host.
	StateUnchanged StateKind = "unchanged"

	// StateChanged indicates at least one task changed the host and none failed.
	StateChanged StateKind = "changed"

	// StateFailed indicates at least one task failed.
	StateFailed StateKind = "failed"
)

// Validate checks if the state kind is valid.
func (k StateKind) Validate() error {
	switch k {
	case StateUnchanged, StateChanged, StateFailed:
		return nil
	default:
		return fmt.Errorf("invalid state kind: %s", k)
	}
}

// MarshalJSON implements custom JSON marshaling for type-safe enum serialization.
func (k StateKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(k))
}

// UnmarshalJSON implements custom JSON unmarshaling with validation.
func (k *StateKind) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*k = StateKind(str)
	return k.Validate()
}

// Mode selects whether the coordinator executes the playbook or only reports
// the command it would run.
type Mode string

const (
	// ModeApply executes the playbook.
	ModeApply Mode = "apply"

	// ModeNoop renders the command without executing anything.
	ModeNoop Mode = "noop"
)

// Validate checks if the mode is valid.
func (m Mode) Validate() error {
	switch m {
	case ModeApply, ModeNoop:
		return nil
	default:
		return fmt.Errorf("invalid mode: %s", m)
	}
}
