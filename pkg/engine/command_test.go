package engine

import (
	"encoding/json"
	"reflect"
	"testing"
)

func mustRequest(t *testing.T, params RequestParams) *ExecutionRequest {
	t.Helper()
	req, err := NewExecutionRequest(params)
	if err != nil {
		t.Fatalf("NewExecutionRequest() error = %v", err)
	}
	return req
}

func TestBuildCommand(t *testing.T) {
	tests := []struct {
		name   string
		params RequestParams
		want   []string
	}{
		{
			name:   "minimal",
			params: RequestParams{Playbook: "/tmp/p.yml"},
			want:   []string{"ansible-playbook", "-i", "localhost,", "--connection=local", "/tmp/p.yml"},
		},
		{
			name: "vars and tags",
			params: RequestParams{
				Playbook:  "/tmp/p.yml",
				ExtraVars: map[string]interface{}{"a": 1},
				Tags:      []string{"x"},
			},
			want: []string{
				"ansible-playbook", "-i", "localhost,", "--connection=local",
				"-e", `{"a":1}`, "--tags", "x", "/tmp/p.yml",
			},
		},
		{
			name: "all options in fixed order",
			params: RequestParams{
				Playbook:    "/srv/site.yml",
				ExtraVars:   map[string]interface{}{"b": "two", "a": true},
				Tags:        []string{"web", "db"},
				SkipTags:    []string{"slow"},
				StartAtTask: "Install packages",
				Limit:       "localhost",
				Verbose:     true,
				CheckMode:   true,
				User:        "deploy",
				Timeout:     30,
			},
			want: []string{
				"ansible-playbook", "-i", "localhost,", "--connection=local",
				"-e", `{"a":true,"b":"two"}`,
				"--tags", "web,db",
				"--skip-tags", "slow",
				"--start-at-task", "Install packages",
				"--limit", "localhost",
				"-v",
				"--check",
				"--user", "deploy",
				"--timeout", "30",
				"/srv/site.yml",
			},
		},
		{
			name:   "duplicate tags collapse",
			params: RequestParams{Playbook: "/tmp/p.yml", Tags: []string{"a", "b", "a"}},
			want: []string{
				"ansible-playbook", "-i", "localhost,", "--connection=local",
				"--tags", "a,b", "/tmp/p.yml",
			},
		},
		{
			name:   "empty vars omitted",
			params: RequestParams{Playbook: "/tmp/p.yml", ExtraVars: map[string]interface{}{}},
			want:   []string{"ansible-playbook", "-i", "localhost,", "--connection=local", "/tmp/p.yml"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildCommand(DefaultTool, mustRequest(t, tt.params))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("BuildCommand() =\n  %q\nwant\n  %q", got, tt.want)
			}
			if got[len(got)-1] != tt.params.Playbook {
				t.Errorf("last argument = %q, want playbook path", got[len(got)-1])
			}
		})
	}
}

func TestBuildCommandVarsRoundTrip(t *testing.T) {
	vars := map[string]interface{}{
		"name":    "web <01> & co",
		"nested":  map[string]interface{}{"list": []interface{}{"a", float64(2), nil}},
		"quote":   `it's "quoted"`,
		"enabled": true,
		"debug":   false,
		"servers": []interface{}{
			map[string]interface{}{"name": "a", "tls": map[string]interface{}{"on": true, "port": float64(443)}},
			map[string]interface{}{"name": "b", "tls": map[string]interface{}{"on": false}},
		},
	}
	cmd := BuildCommand(DefaultTool, mustRequest(t, RequestParams{Playbook: "/tmp/p.yml", ExtraVars: vars}))

	var idx int
	for i, arg := range cmd {
		if arg == "-e" {
			idx = i + 1
		}
	}
	if idx == 0 {
		t.Fatalf("command has no -e argument: %q", cmd)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(cmd[idx]), &decoded); err != nil {
		t.Fatalf("extra vars token is not JSON: %v", err)
	}
	if !reflect.DeepEqual(decoded, vars) {
		t.Errorf("decoded vars = %#v, want %#v", decoded, vars)
	}
}

func TestBuildCommandCustomTool(t *testing.T) {
	cmd := BuildCommand("/opt/bin/runner", mustRequest(t, RequestParams{Playbook: "/tmp/p.yml"}))
	if cmd[0] != "/opt/bin/runner" {
		t.Errorf("cmd[0] = %q, want custom tool", cmd[0])
	}
}

func TestRenderCommand(t *testing.T) {
	tests := []struct {
		name string
		cmd  []string
		want string
	}{
		{"plain", []string{"ansible-playbook", "-i", "localhost,", "/tmp/p.yml"}, "ansible-playbook -i localhost, /tmp/p.yml"},
		{"spaces", []string{"--start-at-task", "Install packages"}, "--start-at-task 'Install packages'"},
		{"json", []string{"-e", `{"a":1}`}, `-e '{"a":1}'`},
		{"single quote", []string{"it's"}, `'it'\''s'`},
		{"empty", []string{"--limit", ""}, "--limit ''"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RenderCommand(tt.cmd); got != tt.want {
				t.Errorf("RenderCommand() = %q, want %q", got, tt.want)
			}
		})
	}
}
