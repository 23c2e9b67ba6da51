package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/openfroyo/playbook/pkg/engine"
	"github.com/openfroyo/playbook/pkg/policy"
	"github.com/openfroyo/playbook/pkg/telemetry"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// ToolEnv overrides the default playbook runner executable.
const ToolEnv = "FROYO_PLAYBOOK_TOOL"

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	logLevel      string
	logFormat     string
	metricsFile   string
	traceExporter string
	otlpEndpoint  string
	policyDirs    []string
	tool          string
}

// app is the per-process state built before a subcommand runs.
type app struct {
	opts      globalOptions
	version   string
	telemetry *telemetry.Telemetry
}

// Execute runs the root command. A returned *ExitError carries the process
// exit code.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	a := &app{version: version}
	rootCmd := newRootCommand(a, version, commit, buildDate)
	err := rootCmd.ExecuteContext(ctx)

	if a.telemetry != nil {
		if shutdownErr := a.telemetry.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
			log.Warn().Err(shutdownErr).Msg("Telemetry shutdown failed")
		}
	}
	return err
}

func newRootCommand(a *app, version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "froyo-playbook",
		Short: "Run playbooks against the local host",
		Long: `froyo-playbook runs a playbook against the local host with a local
connection and reports whether anything changed.

Features:
  - Resource files in YAML, JSON (with comments) or CUE
  - Computed extra vars via Starlark
  - Policy checks via OPA/rego before execution
  - Advisory locking of exclusive runs
  - Prometheus textfile metrics and OpenTelemetry traces`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	defaultLevel := os.Getenv("LOG_LEVEL")
	if defaultLevel == "" {
		defaultLevel = "info"
	}
	defaultTool := os.Getenv(ToolEnv)
	if defaultTool == "" {
		defaultTool = engine.DefaultTool
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.opts.logLevel, "log-level", defaultLevel, "log level (trace, debug, info, warn, error)")
	flags.StringVar(&a.opts.logFormat, "log-format", "console", "log format (console, json)")
	flags.StringVar(&a.opts.metricsFile, "metrics-file", "", "write metrics in textfile format to this path on exit")
	flags.StringVar(&a.opts.traceExporter, "trace-exporter", "none", "trace exporter (none, stdout, otlp)")
	flags.StringVar(&a.opts.otlpEndpoint, "otlp-endpoint", "", "OTLP collector endpoint (host:port)")
	flags.StringArrayVar(&a.opts.policyDirs, "policy-dir", nil, "directory or file of extra rego policies (repeatable)")
	flags.StringVar(&a.opts.tool, "tool", defaultTool, "playbook runner executable (env "+ToolEnv+")")

	rootCmd.AddCommand(newApplyCommand(a))
	rootCmd.AddCommand(newPlanCommand(a))
	rootCmd.AddCommand(newValidateCommand(a))

	return rootCmd
}

func (a *app) setup() error {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceVersion = a.version
	cfg.Logging.Level = a.opts.logLevel
	cfg.Logging.Format = a.opts.logFormat
	cfg.Tracing.Exporter = a.opts.traceExporter
	cfg.Tracing.Endpoint = a.opts.otlpEndpoint
	cfg.Metrics.TextfilePath = a.opts.metricsFile

	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		return &ExitError{Code: ExitCodeError, Err: fmt.Errorf("invalid telemetry settings: %w", err)}
	}
	a.telemetry = tel
	return nil
}

func (a *app) policyEngine(ctx context.Context) (*policy.Engine, error) {
	pe, err := policy.NewEngine(a.telemetry.Logger.Zerolog())
	if err != nil {
		return nil, err
	}
	if len(a.opts.policyDirs) > 0 {
		if err := pe.LoadPolicies(ctx, a.opts.policyDirs); err != nil {
			return nil, err
		}
	}
	return pe, nil
}

func (a *app) coordinator(ctx context.Context) (*engine.Coordinator, error) {
	pe, err := a.policyEngine(ctx)
	if err != nil {
		return nil, err
	}
	return engine.NewCoordinator(
		engine.WithTool(a.opts.tool),
		engine.WithPolicy(pe),
		engine.WithLogger(a.telemetry.Logger.Zerolog()),
		engine.WithMetrics(a.telemetry.Metrics),
		engine.WithTracer(a.telemetry.Tracer),
	), nil
}
