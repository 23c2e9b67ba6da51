package commands

import (
	"fmt"

	"github.com/openfroyo/playbook/pkg/config"
	"github.com/openfroyo/playbook/pkg/engine"
	"github.com/spf13/cobra"
)

func newValidateCommand(a *app) *cobra.Command {
	var rf requestFlags

	cmd := &cobra.Command{
		Use:   "validate [playbook]",
		Short: "Validate a resource file against schemas and policies",
		Long: `Validate a resource file and the request it produces.

This command checks:
  - Resource file syntax and the #Playbook schema
  - Extra vars files and the Starlark vars script
  - Request constraints (tags, user, environment)
  - Policy compliance (OPA/rego)`,
		Example: `  # Validate a resource file
  froyo-playbook validate -f deploy/web.yaml

  # Validate with extra policies
  froyo-playbook validate -f deploy/web.yaml --policy-dir ./policies`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			loader := config.NewLoader(a.telemetry.Logger.Zerolog())

			req, err := rf.request(ctx, cmd, args, loader)
			if err != nil {
				return &ExitError{Code: ExitCodeError, Err: err}
			}

			pe, err := a.policyEngine(ctx)
			if err != nil {
				return &ExitError{Code: ExitCodeError, Err: err}
			}

			result, err := pe.EvaluateRequest(ctx, req, string(engine.ModeApply))
			if err != nil {
				return &ExitError{Code: ExitCodeError, Err: err}
			}

			logger := a.telemetry.Logger.Zerolog()
			logger.Debug().
				Strs("policies", result.EvaluatedPolicies).
				Dur("duration", result.Duration).
				Msg("Policies evaluated")

			for _, w := range result.Warnings {
				fmt.Fprintf(out, "warning: %s: %s\n", w.Policy, w.Message)
			}
			for _, v := range result.Violations {
				fmt.Fprintf(out, "%s: %s: %s\n", v.Severity, v.Policy, v.Message)
				if v.Remediation != "" {
					fmt.Fprintf(out, "  remediation: %s\n", v.Remediation)
				}
			}

			if !result.Allowed {
				return &ExitError{
					Code: ExitCodeError,
					Err:  fmt.Errorf("%d policy violation(s)", len(result.Violations)),
				}
			}

			fmt.Fprintf(out, "%s: valid\n", req.Playbook())
			return nil
		},
	}

	rf.bind(cmd)

	return cmd
}
