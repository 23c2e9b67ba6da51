package engine

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// RequestParams is the raw input for NewExecutionRequest. The resource-model
// layer fills it in; all checks happen when it is turned into a request.
type RequestParams struct {
	// Playbook is the absolute path of the playbook to run.
	Playbook string `json:"playbook" validate:"required,abspath"`

	// ExtraVars are passed to the tool as one JSON document.
	ExtraVars map[string]interface{} `json:"extra_vars,omitempty"`

	// Tags limits the run to tasks carrying these tags.
	Tags []string `json:"tags,omitempty" validate:"dive,required,excludesall=0x2C"`

	// SkipTags skips tasks carrying these tags.
	SkipTags []string `json:"skip_tags,omitempty" validate:"dive,required,excludesall=0x2C"`

	// StartAtTask starts the run at the task with this name.
	StartAtTask string `json:"start_at_task,omitempty"`

	// Limit is a host pattern forwarded to the tool.
	Limit string `json:"limit,omitempty"`

	// Verbose adds -v to the command.
	Verbose bool `json:"verbose,omitempty"`

	// CheckMode runs the tool in its own check mode.
	CheckMode bool `json:"check_mode,omitempty"`

	// Timeout in seconds, used for both the tool's --timeout and the wall clock.
	Timeout int `json:"timeout,omitempty" validate:"gte=0"`

	// User is forwarded as --user.
	User string `json:"user,omitempty" validate:"omitempty,nospace"`

	// Environment is overlaid on the process environment.
	Environment map[string]string `json:"environment,omitempty" validate:"dive,keys,required,excludesall==,endkeys"`

	// ShowOutput returns the captured tool output with the result.
	ShowOutput bool `json:"logoutput,omitempty"`

	// Exclusive serializes runs of the same playbook through an advisory lock.
	Exclusive bool `json:"exclusive,omitempty"`
}

// ExecutionRequest is an immutable description of one playbook invocation.
type ExecutionRequest struct {
	playbook    string
	extraVars   map[string]interface{}
	tags        []string
	skipTags    []string
	startAtTask string
	limit       string
	verbose     bool
	checkMode   bool
	timeout     int
	user        string
	environment map[string]string
	showOutput  bool
	exclusive   bool
}

var requestValidator = newRequestValidator()

func newRequestValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("abspath", func(fl validator.FieldLevel) bool {
		return filepath.IsAbs(fl.Field().String())
	})
	_ = v.RegisterValidation("nospace", func(fl validator.FieldLevel) bool {
		return !strings.ContainsAny(fl.Field().String(), " \t\r\n")
	})
	return v
}

// NewExecutionRequest validates params and returns an immutable request.
// Tags and skip-tags are de-duplicated preserving first occurrence order.
func NewExecutionRequest(params RequestParams) (*ExecutionRequest, error) {
	if err := requestValidator.Struct(params); err != nil {
		return nil, newInvalidRequestError(err)
	}

	if len(params.ExtraVars) > 0 {
		if _, err := json.Marshal(params.ExtraVars); err != nil {
			return nil, newInvalidRequestError(fmt.Errorf("extra vars are not JSON-compatible: %w", err))
		}
	}

	return &ExecutionRequest{
		playbook:    filepath.Clean(params.Playbook),
		extraVars:   copyMap(params.ExtraVars),
		tags:        uniqueOrdered(params.Tags),
		skipTags:    uniqueOrdered(params.SkipTags),
		startAtTask: params.StartAtTask,
		limit:       params.Limit,
		verbose:     params.Verbose,
		checkMode:   params.CheckMode,
		timeout:     params.Timeout,
		user:        params.User,
		environment: copyStrings(params.Environment),
		showOutput:  params.ShowOutput,
		exclusive:   params.Exclusive,
	}, nil
}

// Playbook returns the absolute playbook path.
func (r *ExecutionRequest) Playbook() string { return r.playbook }

// ExtraVars returns a deep copy of the extra variables.
func (r *ExecutionRequest) ExtraVars() map[string]interface{} { return copyMap(r.extraVars) }

// Tags returns the tags to run.
func (r *ExecutionRequest) Tags() []string { return append([]string(nil), r.tags...) }

// SkipTags returns the tags to skip.
func (r *ExecutionRequest) SkipTags() []string { return append([]string(nil), r.skipTags...) }

// StartAtTask returns the start-at-task marker, or "".
func (r *ExecutionRequest) StartAtTask() string { return r.startAtTask }

// Limit returns the host-limit pattern, or "".
func (r *ExecutionRequest) Limit() string { return r.limit }

// Verbose reports whether -v is requested.
func (r *ExecutionRequest) Verbose() bool { return r.verbose }

// CheckMode reports whether the tool runs in check mode.
func (r *ExecutionRequest) CheckMode() bool { return r.checkMode }

// TimeoutSeconds returns the requested timeout, 0 when unset.
func (r *ExecutionRequest) TimeoutSeconds() int { return r.timeout }

// Timeout returns the requested timeout as a duration, 0 when unset.
func (r *ExecutionRequest) Timeout() time.Duration {
	return time.Duration(r.timeout) * time.Second
}

// User returns the execution user, or "".
func (r *ExecutionRequest) User() string { return r.user }

// Environment returns a copy of the extra environment variables.
func (r *ExecutionRequest) Environment() map[string]string { return copyStrings(r.environment) }

// ShowOutput reports whether the full tool output should be surfaced.
func (r *ExecutionRequest) ShowOutput() bool { return r.showOutput }

// Exclusive reports whether the run must hold the playbook lock.
func (r *ExecutionRequest) Exclusive() bool { return r.exclusive }

// EnvironmentKeys returns the sorted names of the extra environment variables.
func (r *ExecutionRequest) EnvironmentKeys() []string {
	keys := make([]string, 0, len(r.environment))
	for k := range r.environment {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Document returns the request as a plain JSON-shaped map, used as policy input.
func (r *ExecutionRequest) Document() map[string]interface{} {
	return map[string]interface{}{
		"playbook":      r.playbook,
		"extra_vars":    copyMap(r.extraVars),
		"tags":          toInterfaces(r.tags),
		"skip_tags":     toInterfaces(r.skipTags),
		"start_at_task": r.startAtTask,
		"limit":         r.limit,
		"verbose":       r.verbose,
		"check_mode":    r.checkMode,
		"timeout":       r.timeout,
		"user":          r.user,
		"environment":   stringsToInterfaces(r.environment),
		"logoutput":     r.showOutput,
		"exclusive":     r.exclusive,
	}
}

func uniqueOrdered(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return copyMap(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		return val
	}
}

func copyStrings(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func stringsToInterfaces(m map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
