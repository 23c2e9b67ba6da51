// Package policy gates playbook execution requests with Open Policy Agent
// (OPA) Rego policies.
//
// The Engine implements engine.PolicyChecker, so a Coordinator consults it
// after the playbook and executable checks and before taking the lock. Each
// policy defines a "deny" set under its own package; members are strings or
// objects:
//
//	package site.playbooks
//
//	import rego.v1
//
//	deny contains violation if {
//	    input.request.check_mode == false
//	    input.context.operation == "apply"
//	    violation := {"message": "site.yml must run in check mode", "severity": "error"}
//	}
//
// The input document is:
//
//	{
//	  "request": {"playbook": ..., "extra_vars": {...}, "tags": [...], ...},
//	  "context": {"operation": "apply", "timestamp": "..."}
//	}
//
// Violations with error or critical severity deny the request. Warning and
// info violations are reported and logged but do not block the run.
//
// # Built-in Policies
//
//   - reserved-vars: extra vars or environment that would redirect the
//     connection or disable the JSON output callback (error)
//   - tag-conflict: a tag listed in both tags and skip_tags (warning)
//   - root-user: an apply run requested as root (warning)
//
// # Loading Policies
//
// LoadPolicies accepts .rego files, JSON policy definitions (comments
// allowed) and directories of either. A .rego file becomes a warning-severity
// policy named after the file; the severity field inside a violation object
// overrides it.
package policy
