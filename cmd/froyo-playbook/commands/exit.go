package commands

import (
	"strconv"

	"github.com/openfroyo/playbook/pkg/engine"
)

// Exit codes. Changed and task failure are only distinguished with
// --detailed-exitcodes; otherwise a run exits 0 or 1.
const (
	ExitCodeUnchanged   = 0
	ExitCodeError       = 1
	ExitCodeChanged     = 2
	ExitCodeTaskFailure = 4
)

// ExitError asks main to exit with Code. Err is nil when the code reports an
// outcome rather than a failure.
type ExitError struct {
	Code int
	Err  error
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	if e.Err == nil {
		return "exit status " + strconv.Itoa(e.Code)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitCode maps a run outcome to a process exit code.
func exitCode(result *engine.Result, err error, detailed bool) int {
	if err != nil {
		if detailed && engine.IsKind(err, engine.KindTaskFailure) {
			return ExitCodeTaskFailure
		}
		return ExitCodeError
	}
	if detailed && result != nil && result.State.IsChanged() {
		return ExitCodeChanged
	}
	return ExitCodeUnchanged
}
