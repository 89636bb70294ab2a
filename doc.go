// Package main implements the bumpversion CLI tool.
//
// The bumpversion tool bumps a version number that is written down in many
// places. A configuration file declares the version's components (for
// example major, minor, patch and a pre-release label), the current
// version, and every file that contains it together with the search and
// replace templates used to rewrite it. A bump validates every file before
// any is written, writes them one by one and restores the written files if a
// later write fails, records the new current version in the configuration
// file, and then optionally commits and tags the change with git.
//
// The configuration is looked up in the working directory in this order:
// .bumpversion.toml, pyproject.toml (only with a [tool.bumpversion] table),
// .bumpversion.yaml and .bumpversion.yml.
//
// Command Usage:
//
//	bumpversion [global flags] <command> [flags] [args]
//
// Commands:
//
//	bump [component]   Bump a component, or set --new-version explicitly.
//	show [name...]     Print current_version, current_<component> and, with
//	                   --increment or --new-version, the new_* values.
//	show-bump [comp]   Print the version each component bump would produce.
//	version            Print the version of this tool.
//
// Global flags:
//
//	--dir:        Directory to search for the configuration (default ".").
//	--config:     Explicit configuration file.
//	--json:       Print a {"success", "data", "error"} JSON envelope.
//	--color:      auto, always or never.
//	--log-level:  debug, info, warn, error or none (default "error").
//
// Bump flags:
//
//	--new-version:  Explicit new version, parsed with the configured template.
//	--dry-run:      Print diffs and the files that would change; write nothing.
//	--no-commit:    Skip the commit (and therefore the tag).
//	--no-tag:       Skip the tag.
//	--allow-dirty:  Allow unrelated uncommitted changes.
//	--show-diff:    Print every diff before writing.
//
// Every flag can also be set with an environment variable prefixed with
// BUMPVERSION_, e.g. BUMPVERSION_DRY_RUN=true.
//
// Exit codes:
//
//	0  success
//	1  other errors
//	2  configuration errors, unknown components, components that cannot be bumped
//	3  a version that does not match its template
//	4  a search that matched a file the wrong number of times
//	5  git failures and dirty working trees
//	6  filesystem errors
//
// Examples:
//
//	# Bump the minor version (e.g. 1.4.9 → 1.5.0)
//	bumpversion bump minor
//
//	# Bump the patch of a pre-release scheme (e.g. 2.0.0-rc → 2.0.1-dev)
//	bumpversion bump patch
//
//	# Set an explicit version
//	bumpversion bump --new-version 2.1.0-rc
//
//	# See what a major bump would change
//	bumpversion bump major --dry-run
//
//	# Print the next minor version for a release script
//	bumpversion show new_version --increment minor
//
// For the library API see the documentation of the "pkg" package.
package main
