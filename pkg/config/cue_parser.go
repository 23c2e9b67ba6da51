package config

import (
	"context"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

// CUEParser parses CUE resource and vars files and checks them against the
// built-in schemas.
type CUEParser struct {
	ctx            *cue.Context
	schemaRegistry *SchemaRegistry
}

// NewCUEParser creates a new CUE parser.
func NewCUEParser() *CUEParser {
	ctx := cuecontext.New()
	return &CUEParser{
		ctx:            ctx,
		schemaRegistry: newSchemaRegistry(ctx),
	}
}

// ParseResource compiles CUE source as a playbook resource. filename is
// used for error positions only.
func (cp *CUEParser) ParseResource(ctx context.Context, filename string, content []byte) (*ResourceConfig, error) {
	val, err := cp.unify(filename, content, "playbook")
	if err != nil {
		return nil, err
	}

	var resource ResourceConfig
	if err := val.Decode(&resource); err != nil {
		return nil, fmt.Errorf("failed to decode resource: %w", err)
	}
	return &resource, nil
}

// ParseVars compiles CUE source as an extra vars mapping.
func (cp *CUEParser) ParseVars(ctx context.Context, filename string, content []byte) (map[string]interface{}, error) {
	val, err := cp.unify(filename, content, "vars")
	if err != nil {
		return nil, err
	}

	var vars map[string]interface{}
	if err := val.Decode(&vars); err != nil {
		return nil, fmt.Errorf("failed to decode vars: %w", err)
	}
	return vars, nil
}

// ParseInline parses inline CUE content as a playbook resource.
func (cp *CUEParser) ParseInline(ctx context.Context, content string) (*ResourceConfig, error) {
	return cp.ParseResource(ctx, "inline", []byte(content))
}

func (cp *CUEParser) unify(filename string, content []byte, schemaName string) (cue.Value, error) {
	val := cp.ctx.CompileBytes(content, cue.Filename(filename))
	if err := val.Err(); err != nil {
		return cue.Value{}, &LoadError{File: filename, Errors: cp.convertCUEErrors(err)}
	}

	schema, ok := cp.schemaRegistry.GetSchema(schemaName)
	if !ok {
		return cue.Value{}, fmt.Errorf("schema %s not found", schemaName)
	}
	unified := schema.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return cue.Value{}, &LoadError{File: filename, Errors: cp.convertCUEErrors(err)}
	}
	return unified, nil
}

// convertCUEErrors converts CUE errors to ValidationError slice.
func (cp *CUEParser) convertCUEErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	for _, e := range errors.Errors(err) {
		pos := errors.Positions(e)
		var file string
		var line, column int

		if len(pos) > 0 {
			file = pos[0].Filename()
			line = pos[0].Line()
			column = pos[0].Column()
		}

		format, args := e.Msg()
		validationErrors = append(validationErrors, ValidationError{
			File:     file,
			Line:     line,
			Column:   column,
			Path:     strings.Join(e.Path(), "."),
			Message:  fmt.Sprintf(format, args...),
			Severity: "error",
		})
	}

	return validationErrors
}

// GetSchemaRegistry returns the schema registry.
func (cp *CUEParser) GetSchemaRegistry() *SchemaRegistry {
	return cp.schemaRegistry
}
