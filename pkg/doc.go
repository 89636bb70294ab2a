// Package bumpversion bumps a version number that is written down in many
// places.
//
// A configuration file names the components of the version (for example
// major, minor, patch and a pre-release label), holds the current version,
// and lists every file that contains it together with the search and
// replace templates used to find and rewrite it. Run loads that
// configuration, computes the new version, validates that every search
// matches before any file is written, writes the files and finally commits
// and tags the change.
//
// The subpackages do the individual steps:
//   - config loads and validates .bumpversion.toml, pyproject.toml and
//     .bumpversion.yaml files.
//   - template parses the {placeholder} templates.
//   - version implements the component schemes and bumping.
//   - replace plans and applies file edits with rollback.
//   - vcs runs git.
//   - diag reports configuration problems with source spans.
//
// Usage Example:
//
//	import (
//	    "context"
//	    "log"
//
//	    bumpversion "github.com/bcomnes/bumpversion/pkg"
//	)
//
//	func main() {
//	    res, err := bumpversion.Run(context.Background(), bumpversion.Options{
//	        Dir:       ".",
//	        Component: "minor",
//	    })
//	    if err != nil {
//	        log.Fatalf("version bump failed: %v", err)
//	    }
//	    log.Printf("bumped %s to %s", res.OldVersion, res.NewVersion)
//	}
//
// The exit code a command line tool should use for an error is returned by
// ExitCode.
package bumpversion
