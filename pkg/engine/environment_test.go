package engine

import (
	"reflect"
	"testing"
)

func TestBuildEnvironment(t *testing.T) {
	base := []string{"PATH=/usr/bin", "HOME=/root", "LANG=en_US.ISO-8859-1", "EMPTY=", "malformed", "=novalue"}
	env := BuildEnvironment(base, map[string]string{
		"LC_ALL":                  "de_DE.UTF-8",
		"APP_MODE":                "prod",
		"ANSIBLE_STDOUT_CALLBACK": "yaml",
	})

	want := map[string]string{
		"PATH":                          "/usr/bin",
		"HOME":                          "/root",
		"EMPTY":                         "",
		"LANG":                          "C.UTF-8",
		"LC_ALL":                        "de_DE.UTF-8",
		"APP_MODE":                      "prod",
		"ANSIBLE_STDOUT_CALLBACK":       "json",
		"ANSIBLE_LOAD_CALLBACK_PLUGINS": "1",
	}
	if !reflect.DeepEqual(env, want) {
		t.Errorf("BuildEnvironment() = %v, want %v", env, want)
	}
}

func TestBuildEnvironmentPinsWin(t *testing.T) {
	env := BuildEnvironment(
		[]string{"ANSIBLE_LOAD_CALLBACK_PLUGINS=0"},
		map[string]string{"ANSIBLE_LOAD_CALLBACK_PLUGINS": "false"},
	)
	if env["ANSIBLE_LOAD_CALLBACK_PLUGINS"] != "1" {
		t.Errorf("ANSIBLE_LOAD_CALLBACK_PLUGINS = %q, want 1", env["ANSIBLE_LOAD_CALLBACK_PLUGINS"])
	}
	if env["ANSIBLE_STDOUT_CALLBACK"] != "json" {
		t.Errorf("ANSIBLE_STDOUT_CALLBACK = %q, want json", env["ANSIBLE_STDOUT_CALLBACK"])
	}
}

func TestBuildEnvironmentDoesNotModifyInputs(t *testing.T) {
	base := []string{"A=1"}
	overrides := map[string]string{"B": "2"}
	_ = BuildEnvironment(base, overrides)
	if len(base) != 1 || base[0] != "A=1" {
		t.Errorf("base modified: %v", base)
	}
	if len(overrides) != 1 || overrides["B"] != "2" {
		t.Errorf("overrides modified: %v", overrides)
	}
}

func TestEnvironList(t *testing.T) {
	got := EnvironList(map[string]string{"B": "2", "A": "x=y"})
	want := []string{"A=x=y", "B=2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("EnvironList() = %v, want %v", got, want)
	}
}
