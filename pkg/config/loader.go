package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/openfroyo/playbook/pkg/engine"
	"github.com/rs/zerolog"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Loader reads resource files and turns them into execution requests.
type Loader struct {
	cue       *CUEParser
	starlark  *StarlarkEvaluator
	validator *validator.Validate
	logger    zerolog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithStarlarkEvaluator sets the evaluator used for vars scripts.
func WithStarlarkEvaluator(evaluator *StarlarkEvaluator) LoaderOption {
	return func(l *Loader) { l.starlark = evaluator }
}

// NewLoader creates a resource loader.
func NewLoader(logger zerolog.Logger, opts ...LoaderOption) *Loader {
	l := &Loader{
		cue:       NewCUEParser(),
		starlark:  NewStarlarkEvaluator(DefaultStarlarkTimeout),
		validator: validator.New(),
		logger:    logger.With().Str("component", "config-loader").Logger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads a resource file. The format follows the extension: .yaml/.yml,
// .json/.jsonc (comments and trailing commas allowed) or .cue. Relative
// paths inside the file are resolved against the file's directory.
func (l *Loader) Load(ctx context.Context, path string) (*ResourceConfig, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read resource file: %w", err)
	}

	var resource *ResourceConfig
	switch ext := strings.ToLower(filepath.Ext(absPath)); ext {
	case ".yaml", ".yml":
		resource, err = decodeYAMLResource(data)
	case ".json", ".jsonc":
		resource, err = decodeJSONResource(data)
	case ".cue":
		resource, err = l.cue.ParseResource(ctx, absPath, data)
	default:
		return nil, fmt.Errorf("unsupported resource file type %q", ext)
	}
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to parse %s: %w", absPath, err)
	}

	if err := l.validate(ctx, absPath, resource); err != nil {
		return nil, err
	}

	resource.Source = absPath
	resolvePaths(filepath.Dir(absPath), resource)

	l.logger.Debug().
		Str("source", absPath).
		Str("playbook", resource.Playbook).
		Int("vars_files", len(resource.ExtraVarsFiles)).
		Bool("vars_script", resource.VarsScript != "").
		Msg("Resource file loaded")

	return resource, nil
}

// Load reads a resource file with a default loader.
func Load(ctx context.Context, path string) (*ResourceConfig, error) {
	return NewLoader(zerolog.Nop()).Load(ctx, path)
}

func decodeYAMLResource(data []byte) (*ResourceConfig, error) {
	var resource ResourceConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&resource); err != nil {
		return nil, err
	}
	return &resource, nil
}

func decodeJSONResource(data []byte) (*ResourceConfig, error) {
	var resource ResourceConfig
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&resource); err != nil {
		return nil, err
	}
	return &resource, nil
}

// validate runs the struct tags and the #Playbook schema. CUE resources have
// already been unified with the schema.
func (l *Loader) validate(ctx context.Context, file string, resource *ResourceConfig) error {
	var problems []ValidationError

	if err := l.validator.Struct(resource); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			problems = append(problems, ValidationError{
				File:     file,
				Path:     fe.Namespace(),
				Message:  fmt.Sprintf("failed on the %q rule", fe.Tag()),
				Severity: "error",
			})
		}
	}

	if len(problems) == 0 && filepath.Ext(file) != ".cue" {
		if err := l.cue.GetSchemaRegistry().ValidatePlaybook(ctx, *resource); err != nil {
			problems = append(problems, l.cue.convertCUEErrors(err)...)
			for i := range problems {
				problems[i].File = file
			}
		}
	}

	if len(problems) > 0 {
		return &LoadError{File: file, Errors: problems}
	}
	return nil
}

func resolvePaths(base string, resource *ResourceConfig) {
	resource.Playbook = resolvePath(base, resource.Playbook)
	resource.VarsScript = resolvePath(base, resource.VarsScript)
	for i, f := range resource.ExtraVarsFiles {
		resource.ExtraVarsFiles[i] = resolvePath(base, f)
	}
}

func resolvePath(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// Request resolves the resource's variables and builds an execution request.
// Sources are merged per top-level key with later sources winning: vars
// files in order, then the vars script, then inline extra_vars.
func (l *Loader) Request(ctx context.Context, resource *ResourceConfig) (*engine.ExecutionRequest, error) {
	vars, err := l.ResolveVars(ctx, resource)
	if err != nil {
		return nil, err
	}

	return engine.NewExecutionRequest(engine.RequestParams{
		Playbook:    resource.Playbook,
		ExtraVars:   vars,
		Tags:        resource.Tags,
		SkipTags:    resource.SkipTags,
		StartAtTask: resource.StartAtTask,
		Limit:       resource.Limit,
		Verbose:     resource.Verbose,
		CheckMode:   resource.CheckMode,
		Timeout:     resource.Timeout,
		User:        resource.User,
		Environment: resource.Environment,
		ShowOutput:  resource.LogOutput,
		Exclusive:   resource.Exclusive,
	})
}

// Request builds an execution request with a default loader.
func (rc *ResourceConfig) Request(ctx context.Context) (*engine.ExecutionRequest, error) {
	return NewLoader(zerolog.Nop()).Request(ctx, rc)
}

// ResolveVars merges the resource's variable sources.
func (l *Loader) ResolveVars(ctx context.Context, resource *ResourceConfig) (map[string]interface{}, error) {
	vars := make(map[string]interface{})

	for _, file := range resource.ExtraVarsFiles {
		fileVars, err := l.loadVarsFile(ctx, file)
		if err != nil {
			return nil, fmt.Errorf("extra vars file %s: %w", file, err)
		}
		mergeVars(vars, fileVars)
	}

	if resource.VarsScript != "" {
		script, err := os.ReadFile(resource.VarsScript)
		if err != nil {
			return nil, fmt.Errorf("failed to read vars script: %w", err)
		}
		scriptVars, err := l.starlark.EvaluateVars(ctx, resource.VarsScript, string(script), resource.Playbook)
		if err != nil {
			return nil, fmt.Errorf("vars script %s: %w", resource.VarsScript, err)
		}
		mergeVars(vars, scriptVars)
	}

	mergeVars(vars, resource.ExtraVars)

	if len(vars) == 0 {
		return nil, nil
	}
	return vars, nil
}

func (l *Loader) loadVarsFile(ctx context.Context, path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var vars map[string]interface{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &vars)
	case ".json", ".jsonc":
		err = json.Unmarshal(jsonc.ToJSON(data), &vars)
	case ".cue":
		vars, err = l.cue.ParseVars(ctx, path, data)
	default:
		return nil, fmt.Errorf("unsupported vars file type %q", ext)
	}
	if err != nil {
		return nil, err
	}
	return vars, nil
}

func mergeVars(dst, src map[string]interface{}) {
	for k, v := range src {
		dst[k] = v
	}
}
