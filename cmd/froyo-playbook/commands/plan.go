package commands

import (
	"fmt"

	"github.com/openfroyo/playbook/pkg/config"
	"github.com/openfroyo/playbook/pkg/engine"
	"github.com/spf13/cobra"
)

func newPlanCommand(a *app) *cobra.Command {
	var rf requestFlags

	cmd := &cobra.Command{
		Use:   "plan [playbook]",
		Short: "Show the command a run would execute",
		Long: `Resolve the same inputs as apply and print the runner command without
executing it. Policies, the executable and the playbook file are not checked.`,
		Example: `  # Show the command for a resource file
  froyo-playbook plan -f deploy/web.yaml

  # Show the command with overrides
  froyo-playbook plan site.yml --tags web --check`,
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

			result, err := coordinator.Run(ctx, req, engine.ModeNoop)
			if err != nil {
				return &ExitError{Code: ExitCodeError, Err: err}
			}

			fmt.Fprintln(cmd.OutOrStdout(), engine.RenderCommand(result.Command))
			return nil
		},
	}

	rf.bind(cmd)

	return cmd
}
