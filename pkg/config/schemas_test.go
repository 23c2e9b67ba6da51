package config

import (
	"context"
	"strings"
	"testing"
)

func TestSchemaRegistry_RegisterAndGet(t *testing.T) {
	sr := NewSchemaRegistry()

	customSchema := `
#CustomType: {
	field1: string
	field2: int
}
`

	if err := sr.RegisterSchema("custom", customSchema); err != nil {
		t.Fatalf("failed to register schema: %v", err)
	}

	schema, ok := sr.GetSchema("custom")
	if !ok {
		t.Fatal("expected to find custom schema")
	}
	if schema.Err() != nil {
		t.Errorf("schema has errors: %v", schema.Err())
	}

	ctx := context.Background()
	if err := sr.ValidateAgainstSchema(ctx, "custom", map[string]interface{}{"field1": "a", "field2": 2}); err != nil {
		t.Errorf("valid data rejected: %v", err)
	}
	if err := sr.ValidateAgainstSchema(ctx, "custom", map[string]interface{}{"field1": "a", "field2": "two"}); err == nil {
		t.Error("expected type mismatch to fail")
	}
}

func TestSchemaRegistry_RegisterErrors(t *testing.T) {
	sr := NewSchemaRegistry()

	tests := []struct {
		name   string
		schema string
	}{
		{"syntax error", `#Broken: {`},
		{"no definition", `plain: string`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := sr.RegisterSchema("bad", tt.schema); err == nil {
				t.Error("expected error, got none")
			}
		})
	}

	if _, ok := sr.GetSchema("bad"); ok {
		t.Error("failed schema should not be registered")
	}
}

func TestSchemaRegistry_BuiltInSchemas(t *testing.T) {
	sr := NewSchemaRegistry()

	got := strings.Join(sr.ListSchemas(), ",")
	if got != "playbook,vars" {
		t.Errorf("ListSchemas() = %s", got)
	}

	for _, name := range []string{"playbook", "vars"} {
		t.Run(name, func(t *testing.T) {
			schema, ok := sr.GetSchema(name)
			if !ok {
				t.Fatalf("built-in schema %s not found", name)
			}
			if schema.Err() != nil {
				t.Errorf("built-in schema %s has errors: %v", name, schema.Err())
			}
		})
	}
}

func TestSchemaRegistry_ValidatePlaybook(t *testing.T) {
	sr := NewSchemaRegistry()
	ctx := context.Background()

	tests := []struct {
		name     string
		resource ResourceConfig
		wantErr  bool
	}{
		{
			name:     "minimal",
			resource: ResourceConfig{Playbook: "site.yml"},
		},
		{
			name: "full",
			resource: ResourceConfig{
				Playbook:       "/srv/site.yml",
				ExtraVars:      map[string]interface{}{"port": 8080, "names": []interface{}{"a"}},
				ExtraVarsFiles: []string{"vars.yml"},
				VarsScript:     "vars.star",
				Tags:           []string{"web", "db"},
				SkipTags:       []string{"slow"},
				StartAtTask:    "Install packages",
				Limit:          "web*",
				Verbose:        true,
				CheckMode:      true,
				Timeout:        300,
				User:           "deploy",
				Environment:    map[string]string{"HTTP_PROXY": "http://proxy:3128"},
				LogOutput:      true,
				Exclusive:      true,
			},
		},
		{
			name:     "empty playbook",
			resource: ResourceConfig{},
			wantErr:  true,
		},
		{
			name:     "tag with comma",
			resource: ResourceConfig{Playbook: "site.yml", Tags: []string{"web,db"}},
			wantErr:  true,
		},
		{
			name:     "empty skip tag",
			resource: ResourceConfig{Playbook: "site.yml", SkipTags: []string{""}},
			wantErr:  true,
		},
		{
			name:     "negative timeout",
			resource: ResourceConfig{Playbook: "site.yml", Timeout: -1},
			wantErr:  true,
		},
		{
			name:     "user with space",
			resource: ResourceConfig{Playbook: "site.yml", User: "de ploy"},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sr.ValidatePlaybook(ctx, tt.resource)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePlaybook() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSchemaRegistry_UnknownSchema(t *testing.T) {
	sr := NewSchemaRegistry()

	err := sr.ValidateAgainstSchema(context.Background(), "missing", map[string]interface{}{})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found error, got %v", err)
	}
}
