package engine

import (
	"encoding/json"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name  string
		stats ExecutionStats
		want  ChangeState
	}{
		{"all zero", ExecutionStats{}, Unchanged()},
		{"ok only", ExecutionStats{Ok: 5}, Unchanged()},
		{"changed", ExecutionStats{Ok: 3, Changed: 2}, Changed(2)},
		{"failed", ExecutionStats{Ok: 3, Failed: 1}, Failed(1)},
		{"failed beats changed", ExecutionStats{Changed: 10, Failed: 1}, Failed(1)},
		{"skipped ignored", ExecutionStats{Skipped: 4, Unreachable: 1}, Unchanged()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.stats); got != tt.want {
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChangeStateSummary(t *testing.T) {
	tests := []struct {
		state ChangeState
		want  string
	}{
		{Unchanged(), "no changes"},
		{Changed(1), "1 task changed"},
		{Changed(2), "2 tasks changed"},
		{Failed(1), "1 task failed"},
		{Failed(3), "3 tasks failed"},
	}

	for _, tt := range tests {
		if got := tt.state.Summary(); got != tt.want {
			t.Errorf("%v.Summary() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestChangeStateString(t *testing.T) {
	if got := Unchanged().String(); got != "unchanged" {
		t.Errorf("Unchanged().String() = %q", got)
	}
	if got := Changed(2).String(); got != "changed(2)" {
		t.Errorf("Changed(2).String() = %q", got)
	}
	if !Changed(1).IsChanged() || Changed(1).IsFailed() {
		t.Error("Changed(1) predicates are wrong")
	}
	if !Failed(1).IsFailed() || Failed(1).IsChanged() {
		t.Error("Failed(1) predicates are wrong")
	}
}

func TestStateKindJSON(t *testing.T) {
	data, err := json.Marshal(Changed(2))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"kind":"changed","count":2}` {
		t.Errorf("Marshal() = %s", data)
	}

	var state ChangeState
	if err := json.Unmarshal([]byte(`{"kind":"exploded","count":1}`), &state); err == nil {
		t.Error("Unmarshal() accepted an unknown state kind")
	}
}

func TestModeValidate(t *testing.T) {
	for _, m := range []Mode{ModeApply, ModeNoop} {
		if err := m.Validate(); err != nil {
			t.Errorf("%s.Validate() error = %v", m, err)
		}
	}
	if err := Mode("destroy").Validate(); err == nil {
		t.Error("Validate() accepted an unknown mode")
	}
}
