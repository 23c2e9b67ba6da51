package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/openfroyo/playbook/pkg/config"
	"github.com/openfroyo/playbook/pkg/engine"
	"github.com/spf13/cobra"
)

func newApplyCommand(a *app) *cobra.Command {
	var (
		rf       requestFlags
		noop     bool
		detailed bool
	)

	cmd := &cobra.Command{
		Use:   "apply [playbook]",
		Short: "Run a playbook against the local host",
		Long: `Run a playbook against the local host and report whether it changed
anything.

This command:
  - Loads the resource file (-f) and applies flag overrides
  - Resolves extra vars from files, Starlark and inline values
  - Checks the request against the policy set
  - Runs the playbook runner with JSON output
  - Prints a summary of the resolved state`,
		Example: `  # Run a playbook
  froyo-playbook apply site.yml

  # Run from a resource file with an extra var
  froyo-playbook apply -f deploy/web.yaml -e release='"2024.10"'

  # Only tagged tasks, exit 2 when something changed
  froyo-playbook apply site.yml --tags web --detailed-exitcodes`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			loader := config.NewLoader(a.telemetry.Logger.Zerolog())

			req, err := rf.request(ctx, cmd, args, loader)
			if err != nil {
				return &ExitError{Code: ExitCodeError, Err: err}
			}

			coordinator, err := a.coordinator(ctx)
			if err != nil {
				return &ExitError{Code: ExitCodeError, Err: err}
			}

			mode := engine.ModeApply
			if noop {
				mode = engine.ModeNoop
			}

			result, err := coordinator.Run(ctx, req, mode)
			printResult(cmd.OutOrStdout(), result, err)

			code := exitCode(result, err, detailed)
			if code == ExitCodeUnchanged {
				return nil
			}
			return &ExitError{Code: code, Err: err}
		},
	}

	rf.bind(cmd)
	cmd.Flags().BoolVar(&noop, "noop", false, "print the command without running it")
	cmd.Flags().BoolVar(&detailed, "detailed-exitcodes", false, "exit 2 when changed and 4 when tasks failed")

	return cmd
}

// printResult writes the outcome summary and, when the request asked for it,
// the runner's output.
func printResult(w io.Writer, result *engine.Result, err error) {
	if err != nil {
		var engineErr *engine.Error
		if errors.As(err, &engineErr) {
			if engineErr.Result != nil && engineErr.Result.Output != "" {
				fmt.Fprintln(w, engineErr.Result.Output)
			} else if engineErr.Output != "" {
				fmt.Fprintln(w, engineErr.Output)
			}
			if engineErr.Result != nil && engineErr.Result.Stats != nil {
				fmt.Fprintf(w, "%s: %s\n", engineErr.Result.State.Summary(), engineErr.Result.Stats)
			}
		}
		return
	}

	if result.Output != "" {
		fmt.Fprintln(w, result.Output)
	}
	if result.Mode == engine.ModeNoop {
		fmt.Fprintln(w, result.Message)
		return
	}
	if result.Stats != nil {
		fmt.Fprintf(w, "%s: %s\n", result.State.Summary(), result.Stats)
		return
	}
	fmt.Fprintln(w, result.State.Summary())
}
