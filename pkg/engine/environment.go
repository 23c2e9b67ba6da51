package engine

import (
	"sort"
	"strings"
)

// Locale variables forced before caller overrides are applied. Callers may
// replace them.
var localeDefaults = map[string]string{
	"LANG":   "C.UTF-8",
	"LC_ALL": "C.UTF-8",
}

// Output-format variables applied after caller overrides. ParseOutput depends
// on the JSON callback, so these cannot be overridden.
var formatPins = map[string]string{
	"ANSIBLE_STDOUT_CALLBACK":       "json",
	"ANSIBLE_LOAD_CALLBACK_PLUGINS": "1",
}

// BuildEnvironment merges base (KEY=VALUE entries, typically os.Environ())
// with the locale defaults, the caller overrides and the output-format pins,
// in that order. Neither input is modified.
func BuildEnvironment(base []string, overrides map[string]string) map[string]string {
	env := make(map[string]string, len(base)+len(overrides)+len(localeDefaults)+len(formatPins))
	for _, entry := range base {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	for k, v := range localeDefaults {
		env[k] = v
	}
	for k, v := range overrides {
		env[k] = v
	}
	for k, v := range formatPins {
		env[k] = v
	}
	return env
}

// EnvironList renders env as sorted KEY=VALUE entries for exec.Cmd.Env.
func EnvironList(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
