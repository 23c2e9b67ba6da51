package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/openfroyo/playbook/pkg/config"
	"github.com/openfroyo/playbook/pkg/engine"
	"github.com/spf13/cobra"
)

// requestFlags are the inputs shared by apply and plan. With -f the resource
// file is the base and every flag set explicitly overrides it.
type requestFlags struct {
	file          string
	extraVars     []string
	extraVarsJSON string
	varsFiles     []string
	tags          []string
	skipTags      []string
	startAtTask   string
	limit         string
	verbose       bool
	check         bool
	user          string
	timeout       int
	env           []string
	logOutput     bool
	exclusive     bool
}

func (f *requestFlags) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.file, "file", "f", "", "resource file (.yaml, .json, .jsonc, .cue)")
	flags.StringArrayVarP(&f.extraVars, "extra-vars", "e", nil, "extra var as key=value; the value is parsed as JSON when possible (repeatable)")
	flags.StringVar(&f.extraVarsJSON, "extra-vars-json", "", "extra vars as one JSON object")
	flags.StringArrayVar(&f.varsFiles, "extra-vars-file", nil, "YAML, JSON or CUE vars file (repeatable)")
	flags.StringSliceVar(&f.tags, "tags", nil, "only run tasks with these tags")
	flags.StringSliceVar(&f.skipTags, "skip-tags", nil, "skip tasks with these tags")
	flags.StringVar(&f.startAtTask, "start-at-task", "", "start at the task with this name")
	flags.StringVar(&f.limit, "limit", "", "host pattern to limit the run to")
	flags.BoolVar(&f.verbose, "verbose-tool", false, "pass -v to the playbook runner")
	flags.BoolVar(&f.check, "check", false, "run the playbook in check mode")
	flags.StringVar(&f.user, "user", "", "remote user passed to the runner")
	flags.IntVar(&f.timeout, "timeout", 0, "timeout in seconds (0 disables)")
	flags.StringArrayVar(&f.env, "env", nil, "environment variable K=V for the runner (repeatable)")
	flags.BoolVar(&f.logOutput, "logoutput", false, "print the runner's output")
	flags.BoolVar(&f.exclusive, "exclusive", false, "hold an advisory lock on the playbook while running")
}

// resource assembles the resource from -f, the positional playbook and the
// flags that were set.
func (f *requestFlags) resource(ctx context.Context, cmd *cobra.Command, args []string, loader *config.Loader) (*config.ResourceConfig, error) {
	rc := &config.ResourceConfig{}
	if f.file != "" {
		loaded, err := loader.Load(ctx, f.file)
		if err != nil {
			return nil, err
		}
		rc = loaded
	}

	if len(args) > 0 {
		playbook, err := filepath.Abs(args[0])
		if err != nil {
			return nil, err
		}
		rc.Playbook = playbook
	}
	if rc.Playbook == "" {
		return nil, fmt.Errorf("a playbook argument or -f resource file is required")
	}

	vars, err := f.inlineVars()
	if err != nil {
		return nil, err
	}
	if len(vars) > 0 {
		if rc.ExtraVars == nil {
			rc.ExtraVars = make(map[string]interface{}, len(vars))
		}
		for k, v := range vars {
			rc.ExtraVars[k] = v
		}
	}

	env, err := parseEnv(f.env)
	if err != nil {
		return nil, err
	}
	if len(env) > 0 {
		if rc.Environment == nil {
			rc.Environment = make(map[string]string, len(env))
		}
		for k, v := range env {
			rc.Environment[k] = v
		}
	}

	for _, file := range f.varsFiles {
		abs, err := filepath.Abs(file)
		if err != nil {
			return nil, err
		}
		rc.ExtraVarsFiles = append(rc.ExtraVarsFiles, abs)
	}

	changed := cmd.Flags().Changed
	if changed("tags") {
		rc.Tags = f.tags
	}
	if changed("skip-tags") {
		rc.SkipTags = f.skipTags
	}
	if changed("start-at-task") {
		rc.StartAtTask = f.startAtTask
	}
	if changed("limit") {
		rc.Limit = f.limit
	}
	if changed("verbose-tool") {
		rc.Verbose = f.verbose
	}
	if changed("check") {
		rc.CheckMode = f.check
	}
	if changed("user") {
		rc.User = f.user
	}
	if changed("timeout") {
		rc.Timeout = f.timeout
	}
	if changed("logoutput") {
		rc.LogOutput = f.logOutput
	}
	if changed("exclusive") {
		rc.Exclusive = f.exclusive
	}

	return rc, nil
}

// request builds the execution request for the command's inputs.
func (f *requestFlags) request(ctx context.Context, cmd *cobra.Command, args []string, loader *config.Loader) (*engine.ExecutionRequest, error) {
	rc, err := f.resource(ctx, cmd, args, loader)
	if err != nil {
		return nil, err
	}
	return loader.Request(ctx, rc)
}

// inlineVars merges --extra-vars-json and then each -e in order.
func (f *requestFlags) inlineVars() (map[string]interface{}, error) {
	vars := make(map[string]interface{})
	if f.extraVarsJSON != "" {
		if err := json.Unmarshal([]byte(f.extraVarsJSON), &vars); err != nil {
			return nil, fmt.Errorf("--extra-vars-json must be a JSON object: %w", err)
		}
	}
	for _, kv := range f.extraVars {
		key, raw, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid extra var %q: expected key=value", kv)
		}
		var value interface{}
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		vars[key] = value
	}
	return vars, nil
}

func parseEnv(pairs []string) (map[string]string, error) {
	env := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid environment variable %q: expected K=V", kv)
		}
		env[key] = value
	}
	return env, nil
}
