package bumpversion

import (
	"errors"

	"github.com/bcomnes/bumpversion/pkg/diag"
	"github.com/bcomnes/bumpversion/pkg/replace"
	"github.com/bcomnes/bumpversion/pkg/vcs"
	"github.com/bcomnes/bumpversion/pkg/version"
)

// Process exit codes, by failure category.
const (
	ExitOK     = 0
	ExitOther  = 1
	ExitConfig = 2
	ExitParse  = 3
	ExitPolicy = 4
	ExitVCS    = 5
	ExitIO     = 6
)

// ExitCode maps an error returned by Run to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var derr *diag.ListError
	if errors.As(err, &derr) {
		if onlyParseMismatches(derr) {
			return ExitParse
		}
		return ExitConfig
	}

	var (
		cerr    *ConfigError
		unknown *version.UnknownComponentError
		unsup   *version.UnsupportedBumpError
		mism    *version.ParseMismatchError
		policy  *replace.PolicyViolation
		applyE  *replace.ApplyError
		ioE     *replace.IOError
		gitE    *vcs.Error
		dirty   *vcs.DirtyError
	)
	switch {
	case errors.As(err, &cerr), errors.As(err, &unknown), errors.As(err, &unsup):
		return ExitConfig
	case errors.As(err, &mism):
		return ExitParse
	case errors.As(err, &policy):
		return ExitPolicy
	case errors.As(err, &applyE), errors.As(err, &ioE):
		return ExitIO
	case errors.As(err, &gitE), errors.As(err, &dirty):
		return ExitVCS
	}
	return ExitOther
}

func onlyParseMismatches(e *diag.ListError) bool {
	found := false
	for _, d := range e.Diagnostics {
		if d.Severity != diag.Error {
			continue
		}
		var mism *version.ParseMismatchError
		if !errors.As(d.Err, &mism) {
			return false
		}
		found = true
	}
	return found
}
