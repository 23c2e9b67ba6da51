package config

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStarlarkEvaluator_Evaluate(t *testing.T) {
	evaluator := NewStarlarkEvaluator(5 * time.Second)
	ctx := context.Background()

	tests := []struct {
		name      string
		script    string
		input     map[string]interface{}
		checkFunc func(*testing.T, *StarlarkResult)
		wantErr   bool
	}{
		{
			name: "simple arithmetic",
			script: `
result = 2 + 2
`,
			checkFunc: func(t *testing.T, sr *StarlarkResult) {
				if sr.Output["result"] != int64(4) {
					t.Errorf("expected result=4, got %v", sr.Output["result"])
				}
			},
		},
		{
			name: "use input variables",
			script: `
doubled = count * 2
`,
			input: map[string]interface{}{
				"count": 5,
			},
			checkFunc: func(t *testing.T, sr *StarlarkResult) {
				if sr.Output["doubled"] != int64(10) {
					t.Errorf("expected doubled=10, got %v", sr.Output["doubled"])
				}
			},
		},
		{
			name: "functions are not exported",
			script: `
def make_list(n):
    result = []
    for i in range(n):
        result.append(i * 2)
    return result

output = make_list(5)
`,
			checkFunc: func(t *testing.T, sr *StarlarkResult) {
				if _, ok := sr.Output["make_list"]; ok {
					t.Error("function leaked into output")
				}
				output, ok := sr.Output["output"].([]interface{})
				if !ok {
					t.Fatalf("expected output to be a list, got %T", sr.Output["output"])
				}
				if len(output) != 5 || output[0] != int64(0) || output[4] != int64(8) {
					t.Errorf("unexpected list values: %v", output)
				}
			},
		},
		{
			name: "private globals skipped",
			script: `
_base = 8000
port = _base + 80
`,
			checkFunc: func(t *testing.T, sr *StarlarkResult) {
				if _, ok := sr.Output["_base"]; ok {
					t.Error("private global leaked into output")
				}
				if sr.Output["port"] != int64(8080) {
					t.Errorf("expected port=8080, got %v", sr.Output["port"])
				}
			},
		},
		{
			name: "tuple and struct",
			script: `
pair = ("a", 1)
info = struct(name = "web", replicas = 2)
`,
			checkFunc: func(t *testing.T, sr *StarlarkResult) {
				pair, ok := sr.Output["pair"].([]interface{})
				if !ok || len(pair) != 2 || pair[0] != "a" {
					t.Errorf("unexpected pair: %v", sr.Output["pair"])
				}
				info, ok := sr.Output["info"].(map[string]interface{})
				if !ok || info["name"] != "web" || info["replicas"] != int64(2) {
					t.Errorf("unexpected info: %v", sr.Output["info"])
				}
			},
		},
		{
			name: "non-string dict key",
			script: `
result = {i: val for i, val in enumerate(["a", "b"])}
`,
			wantErr: true,
		},
		{
			name: "syntax error",
			script: `
invalid syntax here
`,
			wantErr: true,
		},
		{
			name: "runtime error",
			script: `
result = undefined_variable
`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := evaluator.evaluate(ctx, "config.star", tt.script, tt.input)

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got none")
				}
				if result == nil || result.Error == "" {
					t.Error("expected error in result")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.checkFunc != nil {
				tt.checkFunc(t, result)
			}
			if result.ExecutionTime == 0 {
				t.Error("expected non-zero execution time")
			}
		})
	}
}

func TestStarlarkEvaluator_Timeout(t *testing.T) {
	evaluator := NewStarlarkEvaluator(100 * time.Millisecond)

	script := `
def slow_function():
    result = 0
    for i in range(100000000):
        result = result + i
    return result

output = slow_function()
`

	start := time.Now()
	result, err := evaluator.evaluate(context.Background(), "config.star", script, nil)
	if !errors.Is(err, ErrStarlarkTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if result == nil || result.Error == "" {
		t.Error("expected timeout error in result")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("script ran for %s after the timeout", elapsed)
	}
}

func TestStarlarkEvaluator_PrintSuppressed(t *testing.T) {
	evaluator := NewStarlarkEvaluator(5 * time.Second)

	script := `
print("this should not appear")
result = "done"
`

	result, err := evaluator.evaluate(context.Background(), "config.star", script, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Output["result"] != "done" {
		t.Errorf("expected result='done', got %v", result.Output["result"])
	}
}

func TestStarlarkEvaluator_EvaluateVars(t *testing.T) {
	evaluator := NewStarlarkEvaluator(5 * time.Second)
	evaluator.environ = func() []string {
		return []string{"DEPLOY_ENV=staging", "HOME=/root", "broken"}
	}

	script := `
stage = env.get("DEPLOY_ENV", "dev")

vars = {
    "stage": stage,
    "replicas": 3 if stage == "prod" else 1,
    "source": playbook,
}
`

	vars, err := evaluator.EvaluateVars(context.Background(), "vars.star", script, "/srv/site.yml")
	if err != nil {
		t.Fatalf("EvaluateVars failed: %v", err)
	}
	if vars["stage"] != "staging" || vars["replicas"] != int64(1) || vars["source"] != "/srv/site.yml" {
		t.Errorf("unexpected vars: %v", vars)
	}
}

func TestStarlarkEvaluator_EvaluateVarsStruct(t *testing.T) {
	evaluator := NewStarlarkEvaluator(5 * time.Second)

	script := `
web = struct(port = 8080, tls = True)
vars = {"port": web.port, "web": web}
`

	vars, err := evaluator.EvaluateVars(context.Background(), "vars.star", script, "/srv/site.yml")
	if err != nil {
		t.Fatalf("EvaluateVars failed: %v", err)
	}
	if vars["port"] != int64(8080) {
		t.Errorf("port = %v, want 8080", vars["port"])
	}
	web, ok := vars["web"].(map[string]interface{})
	if !ok || web["tls"] != true {
		t.Errorf("web = %#v, want struct converted to a map", vars["web"])
	}
}

func TestStarlarkEvaluator_EvaluateVarsErrors(t *testing.T) {
	evaluator := NewStarlarkEvaluator(5 * time.Second)

	tests := []struct {
		name   string
		script string
	}{
		{"missing vars", `other = 1`},
		{"vars not a dict", `vars = ["a"]`},
		{"script error", `vars = {"a": missing}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := evaluator.EvaluateVars(context.Background(), "vars.star", tt.script, "/srv/site.yml"); err == nil {
				t.Error("expected error, got none")
			}
		})
	}
}
