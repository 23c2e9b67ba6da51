// Package engine runs ansible-playbook against the local host on behalf of a
// configuration-management resource and reports whether the run changed
// anything.
//
// # Pipeline
//
// One invocation flows through these steps:
//
//  1. NewExecutionRequest validates the raw parameters once and freezes them.
//  2. BuildCommand turns the request into an argument list with a fixed
//     local-host prefix, optional flags in a fixed order and the playbook last.
//  3. BuildEnvironment merges the process environment, UTF-8 locale defaults,
//     caller overrides and the pinned JSON output callback.
//  4. ProcessExecutor runs the command without a shell, in its own process
//     group, killing the group when the timeout expires.
//  5. ParseOutput finds the JSON document in the combined output and extracts
//     the counters for "localhost".
//  6. Resolve maps the counters to Unchanged, Changed(n) or Failed(n).
//
// Coordinator ties the steps together, adds the optional advisory lock and
// policy gate, and short-circuits dry runs before anything is executed.
//
// # Outcomes
//
// Run returns either a Result with a resolved ChangeState or an *Error whose
// Kind names the terminal outcome:
//
//	res, err := coord.Run(ctx, req, engine.ModeApply)
//	switch engine.KindOf(err) {
//	case "":
//	    fmt.Println(res.Message)
//	case engine.KindTaskFailure:
//	    // the tool ran; err.(*engine.Error).Result has the stats
//	case engine.KindLockAcquisitionFailed:
//	    // another run of the same playbook is in progress
//	}
//
// Failed tasks always win: a run with one failed task is Failed no matter how
// many tasks changed. Nothing is retried.
package engine
