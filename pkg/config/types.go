package config

import (
	"fmt"
	"strings"
	"time"
)

// ResourceConfig is one playbook resource as declared in a resource file.
// Paths may be relative; Load resolves them against the file's directory.
type ResourceConfig struct {
	// Playbook is the playbook to run.
	Playbook string `json:"playbook" yaml:"playbook" validate:"required"`

	// ExtraVars are inline variables. They win over every other source.
	ExtraVars map[string]interface{} `json:"extra_vars,omitempty" yaml:"extra_vars,omitempty"`

	// ExtraVarsFiles are YAML, JSON or CUE files merged in order before the
	// script output and the inline vars.
	ExtraVarsFiles []string `json:"extra_vars_files,omitempty" yaml:"extra_vars_files,omitempty" validate:"dive,required"`

	// VarsScript is a Starlark file whose "vars" dict is merged after the
	// vars files.
	VarsScript string `json:"vars_script,omitempty" yaml:"vars_script,omitempty"`

	// Tags limits the run to tasks carrying these tags.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// SkipTags skips tasks carrying these tags.
	SkipTags []string `json:"skip_tags,omitempty" yaml:"skip_tags,omitempty"`

	// StartAtTask starts the run at the named task.
	StartAtTask string `json:"start_at_task,omitempty" yaml:"start_at_task,omitempty"`

	// Limit is a host pattern forwarded to the tool.
	Limit string `json:"limit,omitempty" yaml:"limit,omitempty"`

	// Verbose adds -v to the command.
	Verbose bool `json:"verbose,omitempty" yaml:"verbose,omitempty"`

	// CheckMode runs the tool in its own check mode.
	CheckMode bool `json:"check_mode,omitempty" yaml:"check_mode,omitempty"`

	// Timeout in seconds.
	Timeout int `json:"timeout,omitempty" yaml:"timeout,omitempty" validate:"gte=0"`

	// User is forwarded as --user.
	User string `json:"user,omitempty" yaml:"user,omitempty"`

	// Environment is overlaid on the process environment.
	Environment map[string]string `json:"environment,omitempty" yaml:"environment,omitempty"`

	// LogOutput surfaces the tool's output with the result.
	LogOutput bool `json:"logoutput,omitempty" yaml:"logoutput,omitempty"`

	// Exclusive serializes runs of the same playbook.
	Exclusive bool `json:"exclusive,omitempty" yaml:"exclusive,omitempty"`

	// Source is the file the resource was loaded from.
	Source string `json:"-" yaml:"-"`
}

// ValidationError represents a validation error with location information.
type ValidationError struct {
	// File is the source file path.
	File string `json:"file,omitempty"`

	// Line is the line number (1-indexed).
	Line int `json:"line,omitempty"`

	// Column is the column number (1-indexed).
	Column int `json:"column,omitempty"`

	// Path is the field path of the error (e.g., "environment.PATH").
	Path string `json:"path,omitempty"`

	// Message is the error message.
	Message string `json:"message"`

	// Severity is the error severity (error, warning, info).
	Severity string `json:"severity" validate:"required,oneof=error warning info"`
}

// String renders the error as "file:line:col: path: message".
func (ve ValidationError) String() string {
	var b strings.Builder
	if ve.File != "" {
		b.WriteString(ve.File)
		if ve.Line > 0 {
			fmt.Fprintf(&b, ":%d:%d", ve.Line, ve.Column)
		}
		b.WriteString(": ")
	}
	if ve.Path != "" {
		b.WriteString(ve.Path)
		b.WriteString(": ")
	}
	b.WriteString(ve.Message)
	return b.String()
}

// LoadError is returned when a resource file fails schema or struct
// validation.
type LoadError struct {
	File   string
	Errors []ValidationError
}

// Error implements the error interface.
func (le *LoadError) Error() string {
	msgs := make([]string, len(le.Errors))
	for i, ve := range le.Errors {
		msgs[i] = ve.String()
	}
	return fmt.Sprintf("invalid resource file %s: %s", le.File, strings.Join(msgs, "; "))
}

// StarlarkResult represents the result of Starlark execution.
type StarlarkResult struct {
	// Output is the output data from Starlark.
	Output map[string]interface{} `json:"output,omitempty"`

	// ExecutionTime is how long the script took to execute.
	ExecutionTime time.Duration `json:"execution_time"`

	// Error is any error that occurred.
	Error string `json:"error,omitempty"`
}
