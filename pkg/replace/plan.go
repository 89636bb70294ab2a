package replace

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Rule is one search and replace inside a file.
type Rule struct {
	// Name identifies the rule in errors, e.g. the configured filename or glob.
	Name        string
	Pattern     Pattern
	Replacement string
	Policy      Policy
}

// Transform rewrites a whole file. Transforms run on the original content,
// before the rules of their FileChange, so that they may rely on offsets
// recorded when the file was last read.
type Transform func(content []byte) ([]byte, error)

// FileChange is every modification planned for one path.
type FileChange struct {
	Path  string
	Rules []Rule
	// Transforms run before Rules.
	Transforms []Transform
	// IgnoreMissing skips the file when it does not exist instead of failing.
	IgnoreMissing bool
}

// Replacement records what one rule did to one file.
type Replacement struct {
	Rule        string
	Search      string
	Replacement string
	Matches     []Match
}

// Edit is the validated outcome for one file. Nothing has been written yet.
type Edit struct {
	Path         string
	Before       []byte
	After        []byte
	Mode         os.FileMode
	Replacements []Replacement
}

// Changed reports whether the edit modifies the file.
func (e *Edit) Changed() bool {
	return string(e.Before) != string(e.After)
}

// Plan is the validated set of edits of a run, in declaration order.
type Plan struct {
	Edits []*Edit
	// Skipped lists missing files that were ignored.
	Skipped []string
}

// Planner runs the validation phase.
type Planner struct {
	Store *Store
	Cache *Cache
	// Concurrency bounds parallel file scans; zero means one per file.
	Concurrency int
	Logger      *zap.Logger
}

// Plan reads every file in changes and computes its new content. Files are
// scanned in parallel since nothing is written. Every policy violation of
// every file is collected; if any exists the returned plan is nil and the
// error combines all of them.
func (p *Planner) Plan(ctx context.Context, changes []FileChange) (*Plan, error) {
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}
	cache := p.Cache
	if cache == nil {
		cache = NewCache()
	}

	edits := make([]*Edit, len(changes))
	skipped := make([]bool, len(changes))
	errs := make([]error, len(changes))

	g, gctx := errgroup.WithContext(ctx)
	if p.Concurrency > 0 {
		g.SetLimit(p.Concurrency)
	}
	for i, change := range changes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			edit, err := p.planFile(cache, change)
			if errors.Is(err, errMissingIgnored) {
				log.Info("file not found, skipping", zap.String("path", change.Path))
				skipped[i] = true
				return nil
			}
			edits[i], errs[i] = edit, err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var combined error
	for _, err := range errs {
		combined = multierr.Append(combined, err)
	}
	if combined != nil {
		return nil, combined
	}

	plan := &Plan{}
	for i, edit := range edits {
		if skipped[i] {
			plan.Skipped = append(plan.Skipped, changes[i].Path)
			continue
		}
		log.Debug("planned edit",
			zap.String("path", edit.Path),
			zap.Bool("changed", edit.Changed()),
			zap.Int("rules", len(edit.Replacements)))
		plan.Edits = append(plan.Edits, edit)
	}
	return plan, nil
}

var errMissingIgnored = errors.New("missing file ignored")

func (p *Planner) planFile(cache *Cache, change FileChange) (*Edit, error) {
	if change.IgnoreMissing {
		ok, err := p.Store.Exists(change.Path)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errMissingIgnored
		}
	}
	before, mode, err := p.Store.Read(change.Path)
	if err != nil {
		return nil, err
	}

	edit := &Edit{Path: change.Path, Before: before, Mode: mode}
	content := before
	for _, transform := range change.Transforms {
		content, err = transform(content)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", change.Path, err)
		}
	}
	var violations error
	for _, rule := range change.Rules {
		re, err := cache.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", change.Path, err)
		}
		matches, err := Locate(content, re, rule.Policy)
		if err != nil {
			var pv *PolicyViolation
			if errors.As(err, &pv) {
				pv.Path = change.Path
				pv.Rule = rule.Name
				pv.Pattern = rule.Pattern.Expr
			}
			violations = multierr.Append(violations, err)
			continue
		}
		edit.Replacements = append(edit.Replacements, Replacement{
			Rule:        rule.Name,
			Search:      rule.Pattern.Expr,
			Replacement: rule.Replacement,
			Matches:     matches,
		})
		content = Apply(content, matches, rule.Replacement)
	}
	if violations != nil {
		return nil, violations
	}
	edit.After = content
	return edit, nil
}

// Paths returns the path of every edit that changes its file.
func (p *Plan) Paths() []string {
	var out []string
	for _, e := range p.Edits {
		if e.Changed() {
			out = append(out, e.Path)
		}
	}
	return out
}
