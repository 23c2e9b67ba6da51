package engine

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// DefaultTool is the playbook runner invoked when no other tool is configured.
const DefaultTool = "ansible-playbook"

// TargetHost is the host key the tool reports statistics under.
const TargetHost = "localhost"

// localPrefix pins the tool to an inline single-host inventory and a local
// connection. The trailing comma marks the inventory as a host list.
var localPrefix = []string{"-i", TargetHost + ",", "--connection=local"}

// BuildCommand translates a request into the argument list for tool.
// Optional segments follow a fixed order and the playbook path is always last.
func BuildCommand(tool string, req *ExecutionRequest) []string {
	cmd := make([]string, 0, 20)
	cmd = append(cmd, tool)
	cmd = append(cmd, localPrefix...)

	if len(req.extraVars) > 0 {
		cmd = append(cmd, "-e", encodeVars(req.extraVars))
	}
	if len(req.tags) > 0 {
		cmd = append(cmd, "--tags", strings.Join(req.tags, ","))
	}
	if len(req.skipTags) > 0 {
		cmd = append(cmd, "--skip-tags", strings.Join(req.skipTags, ","))
	}
	if req.startAtTask != "" {
		cmd = append(cmd, "--start-at-task", req.startAtTask)
	}
	if req.limit != "" {
		cmd = append(cmd, "--limit", req.limit)
	}
	if req.verbose {
		cmd = append(cmd, "-v")
	}
	if req.checkMode {
		cmd = append(cmd, "--check")
	}
	if req.user != "" {
		cmd = append(cmd, "--user", req.user)
	}
	if req.timeout > 0 {
		cmd = append(cmd, "--timeout", strconv.Itoa(req.timeout))
	}

	return append(cmd, req.playbook)
}

// encodeVars serializes vars as a single JSON token. Map keys come out sorted,
// so the same vars always produce the same token.
func encodeVars(vars map[string]interface{}) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// NewExecutionRequest already proved the vars marshal.
	_ = enc.Encode(vars)
	return strings.TrimSuffix(buf.String(), "\n")
}

// RenderCommand joins a command for display, single-quoting arguments that a
// POSIX shell would otherwise split or expand.
func RenderCommand(cmd []string) string {
	parts := make([]string, len(cmd))
	for i, arg := range cmd {
		parts[i] = quoteArg(arg)
	}
	return strings.Join(parts, " ")
}

func quoteArg(arg string) string {
	if arg == "" {
		return "''"
	}
	safe := true
	for _, r := range arg {
		if !isShellSafe(r) {
			safe = false
			break
		}
	}
	if safe {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}

func isShellSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune("-_./:=,@%+", r)
}
