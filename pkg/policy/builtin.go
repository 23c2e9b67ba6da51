package policy

// GetBuiltinPolicies returns all built-in policies.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		reservedVarsPolicy(),
		tagConflictPolicy(),
		rootUserPolicy(),
	}
}

// reservedVarsPolicy rejects extra vars and environment overrides that would
// undo the local connection or the JSON output callback.
func reservedVarsPolicy() Policy {
	return Policy{
		Name:        "reserved-vars",
		Description: "Rejects extra vars and environment overrides that redirect the connection or the output callback",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"safety", "connection"},
		Rego: `package froyo.playbook.reserved

import rego.v1

reserved_vars := {
	"ansible_connection",
	"ansible_host",
	"ansible_port",
	"ansible_python_interpreter",
	"ansible_ssh_host",
}

reserved_env_prefixes := ["ANSIBLE_STDOUT_CALLBACK", "ANSIBLE_LOAD_CALLBACK"]

deny contains violation if {
	some name, _ in input.request.extra_vars
	name in reserved_vars
	violation := {
		"message": sprintf("extra var %s overrides the local connection", [name]),
		"severity": "error",
		"remediation": "remove the variable; runs always target localhost over a local connection",
	}
}

deny contains violation if {
	some name, _ in input.request.environment
	some prefix in reserved_env_prefixes
	startswith(name, prefix)
	violation := {
		"message": sprintf("environment variable %s controls the output callback", [name]),
		"severity": "error",
		"remediation": "remove the variable; the JSON callback is required to read the results",
	}
}
`,
	}
}

// tagConflictPolicy warns when a tag is both selected and skipped.
func tagConflictPolicy() Policy {
	return Policy{
		Name:        "tag-conflict",
		Description: "Warns when a tag is both selected and skipped",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"tags"},
		Rego: `package froyo.playbook.tags

import rego.v1

deny contains violation if {
	some tag in input.request.tags
	tag in input.request.skip_tags
	violation := {
		"message": sprintf("tag %s is both selected and skipped; its tasks will not run", [tag]),
		"severity": "warning",
	}
}
`,
	}
}

// rootUserPolicy warns when the run is requested as root.
func rootUserPolicy() Policy {
	return Policy{
		Name:        "root-user",
		Description: "Warns when the playbook is run as root",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"privilege"},
		Rego: `package froyo.playbook.user

import rego.v1

deny contains violation if {
	input.request.user == "root"
	input.context.operation == "apply"
	violation := {
		"message": "playbook runs as root",
		"severity": "warning",
		"remediation": "use become in the playbook for the tasks that need it",
	}
}
`,
	}
}
