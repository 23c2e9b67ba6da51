package engine

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testEnv(extra map[string]string) map[string]string {
	env := map[string]string{"PATH": os.Getenv("PATH")}
	for k, v := range extra {
		env[k] = v
	}
	return env
}

func TestProcessExecutorCapturesBothStreams(t *testing.T) {
	exec := NewProcessExecutor(zerolog.Nop())
	out, err := exec.Run(context.Background(),
		[]string{"sh", "-c", "echo to-stdout; echo to-stderr 1>&2; exit 2"},
		testEnv(nil), 0)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.ExitCode != 2 {
		t.Errorf("ExitCode = %d, want 2", out.ExitCode)
	}
	if !strings.Contains(out.Text, "to-stdout") || !strings.Contains(out.Text, "to-stderr") {
		t.Errorf("Text = %q, want both streams", out.Text)
	}
}

func TestProcessExecutorUsesExactEnvironment(t *testing.T) {
	t.Setenv("FROYO_PARENT_ONLY", "leaked")
	exec := NewProcessExecutor(zerolog.Nop())
	out, err := exec.Run(context.Background(),
		[]string{"sh", "-c", `echo "foo=$FOO parent=$FROYO_PARENT_ONLY"`},
		testEnv(map[string]string{"FOO": "bar"}), 0)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := strings.TrimSpace(out.Text); got != "foo=bar parent=" {
		t.Errorf("Text = %q", got)
	}
}

func TestProcessExecutorTimeout(t *testing.T) {
	exec := NewProcessExecutor(zerolog.Nop())
	start := time.Now()
	_, err := exec.Run(context.Background(),
		[]string{"sh", "-c", "echo started; sleep 10 & sleep 10"},
		testEnv(nil), 200*time.Millisecond)
	elapsed := time.Since(start)

	if !IsKind(err, KindTimeoutExceeded) {
		t.Fatalf("Run() error = %v, want kind %s", err, KindTimeoutExceeded)
	}
	if elapsed > 3*time.Second {
		t.Errorf("Run() took %s, want the process group killed promptly", elapsed)
	}
	e := err.(*Error)
	if e.Timeout != 200*time.Millisecond {
		t.Errorf("Timeout = %s, want 200ms", e.Timeout)
	}
	if !strings.Contains(e.Output, "started") {
		t.Errorf("Output = %q, want partial output", e.Output)
	}
}

func TestProcessExecutorNonzeroWithoutOutput(t *testing.T) {
	exec := NewProcessExecutor(zerolog.Nop())
	_, err := exec.Run(context.Background(), []string{"sh", "-c", "exit 3"}, testEnv(nil), 0)
	if !IsKind(err, KindProcessFailed) {
		t.Fatalf("Run() error = %v, want kind %s", err, KindProcessFailed)
	}
	if !strings.Contains(err.Error(), "status 3") {
		t.Errorf("error = %q, want exit status", err.Error())
	}
}

func TestProcessExecutorStartFailure(t *testing.T) {
	exec := NewProcessExecutor(zerolog.Nop())
	_, err := exec.Run(context.Background(), []string{"/nonexistent/froyo-tool"}, testEnv(nil), 0)
	if !IsKind(err, KindProcessFailed) {
		t.Fatalf("Run() error = %v, want kind %s", err, KindProcessFailed)
	}

	_, err = exec.Run(context.Background(), nil, testEnv(nil), 0)
	if !IsKind(err, KindProcessFailed) {
		t.Fatalf("Run(nil) error = %v, want kind %s", err, KindProcessFailed)
	}
}

func TestProcessExecutorCancelled(t *testing.T) {
	exec := NewProcessExecutor(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	_, err := exec.Run(ctx, []string{"sleep", "10"}, testEnv(nil), 5*time.Second)
	if !IsKind(err, KindProcessFailed) {
		t.Fatalf("Run() error = %v, want kind %s", err, KindProcessFailed)
	}
}

func TestProcessExecutorFinishesWithinTimeout(t *testing.T) {
	exec := NewProcessExecutor(zerolog.Nop())
	out, err := exec.Run(context.Background(), []string{"sh", "-c", "echo done"}, testEnv(nil), 5*time.Second)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.ExitCode != 0 || strings.TrimSpace(out.Text) != "done" {
		t.Errorf("Run() = %+v, want clean exit", out)
	}
}

func TestKilledByDeadline(t *testing.T) {
	expired, cancel := context.WithTimeout(context.Background(), -time.Second)
	defer cancel()
	cancelled, cancelParent := context.WithCancel(context.Background())
	cancelParent()
	exitErr := errors.New("signal: killed")

	tests := []struct {
		name   string
		killed bool
		runErr error
		runCtx context.Context
		parent context.Context
		want   bool
	}{
		{"killed at deadline", true, exitErr, expired, context.Background(), true},
		{"clean exit as deadline passes", false, nil, expired, context.Background(), false},
		{"kill raced a clean exit", true, nil, expired, context.Background(), false},
		{"own failure as deadline passes", false, exitErr, expired, context.Background(), false},
		{"deadline not reached", true, exitErr, context.Background(), context.Background(), false},
		{"parent cancelled", true, exitErr, expired, cancelled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := killedByDeadline(tt.killed, tt.runErr, tt.runCtx, tt.parent); got != tt.want {
				t.Errorf("killedByDeadline() = %v, want %v", got, tt.want)
			}
		})
	}
}
