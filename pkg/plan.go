package bumpversion

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/bcomnes/bumpversion/pkg/config"
	"github.com/bcomnes/bumpversion/pkg/replace"
	"github.com/bcomnes/bumpversion/pkg/template"
	"go.uber.org/zap"
)

// plan resolves the configured rules to files and validates every change.
// Nothing is written.
func (r *runner) plan(ctx context.Context, res *Result, c *computed) (*replace.Plan, error) {
	changes, err := r.changes(res, c)
	if err != nil {
		return nil, err
	}
	planner := &replace.Planner{Store: r.store, Concurrency: r.opts.Concurrency, Logger: r.log}
	plan, err := planner.Plan(ctx, changes)
	if err != nil {
		return nil, err
	}

	res.Skipped = plan.Skipped
	for _, w := range plan.Skipped {
		r.warn(res, "%s does not exist, skipped", w)
	}
	for _, e := range plan.Edits {
		if !e.Changed() {
			continue
		}
		res.Diffs = append(res.Diffs, FileDiff{Path: e.Path, Diff: e.Diff()})
	}
	if r.opts.DryRun {
		res.UpdatedFiles = plan.Paths()
	}
	return plan, nil
}

// changeSet keeps one FileChange per path in first-seen order.
type changeSet struct {
	order []string
	byKey map[string]*replace.FileChange
}

func newChangeSet() *changeSet {
	return &changeSet{byKey: make(map[string]*replace.FileChange)}
}

func (s *changeSet) get(path string, ignoreMissing bool) *replace.FileChange {
	key := filepath.Clean(path)
	fc, ok := s.byKey[key]
	if !ok {
		fc = &replace.FileChange{Path: path, IgnoreMissing: ignoreMissing}
		s.byKey[key] = fc
		s.order = append(s.order, key)
		return fc
	}
	// A file some rule requires must exist.
	fc.IgnoreMissing = fc.IgnoreMissing && ignoreMissing
	return fc
}

func (s *changeSet) list() []replace.FileChange {
	out := make([]replace.FileChange, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, *s.byKey[key])
	}
	return out
}

func (r *runner) changes(res *Result, c *computed) ([]replace.FileChange, error) {
	cfg := c.cfg
	base := r.baseDir(cfg)
	set := newChangeSet()

	for i := range cfg.Files {
		rule := &cfg.Files[i]
		if !rule.Applies(c.component) {
			r.log.Debug("rule not part of this bump",
				zap.String("target", rule.Target()), zap.String("component", c.component))
			continue
		}
		rr, err := r.resolveRule(rule.Effective(cfg), c)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", rule.Target(), err)
		}
		paths, err := r.targets(res, rule, base)
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			fc := set.get(p, rule.IgnoreMissingFile.V)
			fc.Rules = append(fc.Rules, rr)
		}
	}

	// The configuration file records the new current version.
	if cfg.Path != "" && cfg.CurrentVersion.Set {
		fc := set.get(cfg.Path, false)
		fc.Transforms = append(fc.Transforms, func(content []byte) ([]byte, error) {
			return cfg.RewriteCurrent(content, c.newText)
		})
	}

	if cfg.GoModule.V {
		mod, err := moduleChanges(r.fs, base, c.oldText, c.newText)
		if err != nil {
			return nil, err
		}
		for _, m := range mod {
			fc := set.get(m.Path, false)
			fc.Transforms = append(fc.Transforms, m.Transforms...)
		}
	}
	return set.list(), nil
}

// resolveRule renders the search and replacement of a rule. The version
// texts are rendered with the rule's own template, so a file may spell the
// version differently from the configuration.
func (r *runner) resolveRule(eff config.Effective, c *computed) (replace.Rule, error) {
	curText, err := c.current.Render(eff.Template)
	if err != nil {
		return replace.Rule{}, err
	}
	newText, err := c.next.Render(eff.Template)
	if err != nil {
		return replace.Rule{}, err
	}
	lookup := template.Map(config.NewContext(c.current, c.next, curText, newText))

	search, err := literalSearch(eff.Search, lookup, eff.Regex)
	if err != nil {
		return replace.Rule{}, err
	}
	replacement, err := eff.Replace.Execute(lookup)
	if err != nil {
		return replace.Rule{}, err
	}
	return replace.Rule{
		Name:        eff.Rule.Target(),
		Pattern:     replace.Pattern{Expr: search, Regex: eff.Regex, IgnoreCase: eff.IgnoreCase},
		Replacement: replacement,
		Policy:      eff.Match,
	}, nil
}

// targets expands the filename or glob of rule relative to base.
func (r *runner) targets(res *Result, rule *config.Rule, base string) ([]string, error) {
	if !rule.Glob.Set {
		return []string{r.abs(base, rule.Filename.V)}, nil
	}
	exclude := make([]string, 0, len(rule.Exclude))
	for _, ex := range rule.Exclude {
		exclude = append(exclude, r.abs(base, ex.V))
	}
	paths, err := r.store.Glob(r.abs(base, rule.Glob.V), exclude)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", rule.Glob.V, err)
	}
	if len(paths) == 0 {
		r.warn(res, "glob %q matched no files", rule.Glob.V)
	}
	return paths, nil
}

// baseDir is the directory configured paths are relative to.
func (r *runner) baseDir(cfg *config.Config) string {
	if cfg.Path != "" {
		return filepath.Dir(cfg.Path)
	}
	return r.opts.Dir
}

func (r *runner) abs(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}
