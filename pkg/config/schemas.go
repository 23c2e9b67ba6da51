package config

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// SchemaRegistry manages CUE schemas for validation. Each schema source
// defines one definition (e.g. #Playbook); data is validated against it.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.RWMutex
}

// NewSchemaRegistry creates a new schema registry with built-in schemas.
func NewSchemaRegistry() *SchemaRegistry {
	return newSchemaRegistry(cuecontext.New())
}

func newSchemaRegistry(ctx *cue.Context) *SchemaRegistry {
	sr := &SchemaRegistry{
		ctx:     ctx,
		schemas: make(map[string]cue.Value),
	}
	sr.registerBuiltInSchemas()
	return sr
}

// registerBuiltInSchemas registers all built-in schemas.
func (sr *SchemaRegistry) registerBuiltInSchemas() {
	if err := sr.RegisterSchema("playbook", builtinPlaybookSchema); err != nil {
		panic(err)
	}
	if err := sr.RegisterSchema("vars", builtinVarsSchema); err != nil {
		panic(err)
	}
}

// RegisterSchema compiles schema and registers its first definition under name.
func (sr *SchemaRegistry) RegisterSchema(name, schema string) error {
	val := sr.ctx.CompileString(schema, cue.Filename(name+".cue"))
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	def, err := firstDefinition(val)
	if err != nil {
		return fmt.Errorf("schema %s: %w", name, err)
	}

	sr.mu.Lock()
	defer sr.mu.Unlock()
	sr.schemas[name] = def
	return nil
}

func firstDefinition(val cue.Value) (cue.Value, error) {
	iter, err := val.Fields(cue.Definitions(true))
	if err != nil {
		return cue.Value{}, err
	}
	for iter.Next() {
		if iter.Selector().IsDefinition() {
			return iter.Value(), nil
		}
	}
	return cue.Value{}, fmt.Errorf("no definition found")
}

// GetSchema retrieves a schema by name.
func (sr *SchemaRegistry) GetSchema(name string) (cue.Value, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	val, ok := sr.schemas[name]
	return val, ok
}

// ValidateAgainstSchema validates Go data against a named schema.
func (sr *SchemaRegistry) ValidateAgainstSchema(ctx context.Context, schemaName string, data interface{}) error {
	dataVal := sr.ctx.Encode(data)
	if err := dataVal.Err(); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}
	_, err := sr.Unify(schemaName, dataVal)
	return err
}

// Unify unifies val with a named schema and requires the result to be
// concrete.
func (sr *SchemaRegistry) Unify(schemaName string, val cue.Value) (cue.Value, error) {
	schema, ok := sr.GetSchema(schemaName)
	if !ok {
		return cue.Value{}, fmt.Errorf("schema %s not found", schemaName)
	}

	unified := schema.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return cue.Value{}, fmt.Errorf("validation failed: %w", err)
	}
	return unified, nil
}

// ListSchemas returns all registered schema names sorted.
func (sr *SchemaRegistry) ListSchemas() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	names := make([]string, 0, len(sr.schemas))
	for name := range sr.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Built-in schema definitions

const builtinPlaybookSchema = `
// Playbook resource
#Playbook: {
	// Playbook to run; relative paths resolve against the resource file
	playbook: string & !=""

	extra_vars?: {[string]: _}
	extra_vars_files?: [...(string & !="")]

	// Starlark file assigning a dict to "vars"
	vars_script?: string & !=""

	// Tags are joined with commas on the command line
	tags?: [...(string & !="" & !~",")]
	skip_tags?: [...(string & !="" & !~",")]

	start_at_task?: string
	limit?: string
	verbose?: bool
	check_mode?: bool

	// Seconds; 0 disables the limit
	timeout?: int & >=0

	user?: string & =~"^[^\\s]+$"
	environment?: {[=~"^[^=]+$"]: string}
	logoutput?: bool
	exclusive?: bool
}
`

const builtinVarsSchema = `
// Extra vars file: a mapping at the top level
#Vars: {[string]: _}
`

// ValidatePlaybook validates a resource against the playbook schema.
func (sr *SchemaRegistry) ValidatePlaybook(ctx context.Context, resource ResourceConfig) error {
	return sr.ValidateAgainstSchema(ctx, "playbook", resource)
}
