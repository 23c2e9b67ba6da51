// Package config loads playbook resource files and resolves them into
// engine execution requests.
//
// # Overview
//
// A resource file declares one playbook run: the playbook path, tags,
// variables, environment and run options. The loader accepts three formats,
// chosen by extension:
//
//   - .yaml / .yml, decoded with unknown fields rejected
//   - .json / .jsonc, where comments and trailing commas are allowed
//   - .cue, unified directly with the #Playbook schema
//
// Every resource is checked twice: once against the struct tags and once
// against the #Playbook CUE schema. Failures are reported as a *LoadError
// carrying file positions where the format provides them.
//
// # Variables
//
// Extra vars come from three sources, merged per top-level key with later
// sources winning:
//
//  1. extra_vars_files, in order (YAML, JSON or CUE mappings)
//  2. vars_script, a Starlark file that assigns a dict to "vars"
//  3. extra_vars, inline in the resource file
//
// The Starlark script sees the resolved playbook path as "playbook" and the
// process environment as the dict "env". It runs under a timeout and has no
// file or network access.
//
// # Usage Example
//
//	loader := config.NewLoader(logger)
//
//	resource, err := loader.Load(ctx, "deploy/web.yaml")
//	if err != nil {
//	    return err
//	}
//
//	req, err := loader.Request(ctx, resource)
//	if err != nil {
//	    return err
//	}
//
//	result, err := coordinator.Run(ctx, req, engine.ModeApply)
//
// # Resource Example
//
//	playbook: site.yml
//	tags: [web]
//	extra_vars_files: [vars/common.yml]
//	vars_script: vars.star
//	extra_vars:
//	  release: "2024.10"
//	timeout: 600
//	exclusive: true
package config
