package bumpversion

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/bcomnes/bumpversion/pkg/config"
	"github.com/bcomnes/bumpversion/pkg/diag"
	"github.com/bcomnes/bumpversion/pkg/replace"
	"github.com/bcomnes/bumpversion/pkg/template"
	"github.com/bcomnes/bumpversion/pkg/vcs"
	"github.com/bcomnes/bumpversion/pkg/version"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/mod/semver"
)

// State of a run. A run moves forward through the states in order and ends
// either in the last state it was asked to reach or in Failed.
type State int

const (
	Loaded State = iota
	Validated
	Computed
	Previewed
	Applying
	Applied
	Committed
	Tagged
	Failed
)

var stateNames = [...]string{"loaded", "validated", "computed", "previewed", "applying", "applied", "committed", "tagged", "failed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Repository is the version control a run records its bump in.
type Repository interface {
	vcs.Committer
	// CheckClean fails when files other than allowed are modified.
	CheckClean(ctx context.Context, allowed []string) error
	// LatestTag returns the most recent tag, or "" when there is none.
	LatestTag(ctx context.Context) (string, error)
}

// Options configure a run.
type Options struct {
	// Dir is the working directory. The configuration file is searched for
	// here unless ConfigPath is set.
	Dir        string
	ConfigPath string
	// Fs defaults to the OS filesystem.
	Fs afero.Fs

	// Component to bump. Ignored when NewVersion is set.
	Component string
	// NewVersion is an explicit new version, parsed with the configured
	// template.
	NewVersion string

	DryRun     bool
	NoCommit   bool
	NoTag      bool
	AllowDirty bool

	// Repo defaults to git in the directory of the configuration file.
	Repo Repository
	// Preview is called with the validated edits before anything is
	// written, in dry runs too. An error aborts the run.
	Preview func(*Preview) error
	// Concurrency bounds parallel file scans; zero scans all at once.
	Concurrency int
	Logger      *zap.Logger
}

// Preview describes what a run is about to write.
type Preview struct {
	OldVersion string
	NewVersion string
	Edits      []*replace.Edit
	Skipped    []string
}

// FileDiff is the unified diff of one file.
type FileDiff struct {
	Path string `json:"path"`
	Diff string `json:"diff"`
}

// Result holds metadata about the version bump operation.
type Result struct {
	// State is the final state: the last one reached, or Failed.
	State State `json:"state"`
	// Reached is the last state completed before a failure.
	Reached State `json:"reached"`

	ConfigPath string `json:"config_path,omitempty"`
	OldVersion string `json:"old_version,omitempty"`
	NewVersion string `json:"new_version,omitempty"`
	// BumpType is the bumped component, or "explicit".
	BumpType string `json:"bump_type,omitempty"`

	// UpdatedFiles lists the files written, or to be written in a dry run.
	UpdatedFiles []string   `json:"updated_files,omitempty"`
	Skipped      []string   `json:"skipped,omitempty"`
	Diffs        []FileDiff `json:"diffs,omitempty"`
	Warnings     []string   `json:"warnings,omitempty"`

	CommitMessage string `json:"commit_message,omitempty"`
	TagName       string `json:"tag_name,omitempty"`

	// Diagnostics are the configuration diagnostics, warnings included.
	Diagnostics []diag.Diagnostic `json:"-"`
	// Config is the loaded configuration, when loading got that far.
	Config *config.Config `json:"-"`
}

// ErrNoChange is returned when the new version renders the same as the
// current one.
var ErrNoChange = errors.New("new version is the same as the current version")

// ConfigError wraps failures to locate a configuration file.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Run bumps the version: it loads the configuration, computes the new
// version, validates every file change, writes them and finally commits and
// tags. The returned Result is never nil.
//
// Cancellation through ctx is honored up to the start of the writes. Once
// the first file is written the run completes, or rolls back every file it
// wrote. A failed commit or tag leaves the written files in place.
func Run(ctx context.Context, opts Options) (*Result, error) {
	r := newRunner(opts)
	res := &Result{}
	err := r.run(ctx, res)
	if err != nil {
		res.State = Failed
		r.log.Debug("run failed", zap.Stringer("reached", res.Reached), zap.Error(err))
	}
	return res, err
}

// DryRun computes a bump and reports every file that would change without
// writing anything or touching the repository.
func DryRun(ctx context.Context, opts Options) (*Result, error) {
	opts.DryRun = true
	return Run(ctx, opts)
}

type runner struct {
	opts  Options
	fs    afero.Fs
	store *replace.Store
	log   *zap.Logger
}

func newRunner(opts Options) *runner {
	r := &runner{opts: opts, fs: opts.Fs, log: opts.Logger}
	if r.fs == nil {
		r.fs = afero.NewOsFs()
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	if r.opts.Dir == "" {
		r.opts.Dir = "."
	}
	r.store = replace.NewStore(r.fs)
	return r
}

func (r *runner) reach(res *Result, s State) {
	res.State, res.Reached = s, s
	r.log.Debug("state", zap.Stringer("state", s))
}

func (r *runner) warn(res *Result, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	res.Warnings = append(res.Warnings, msg)
	r.log.Warn(msg)
}

// computed is the outcome of the Computed state.
type computed struct {
	cfg       *config.Config
	current   version.Version
	next      version.Version
	oldText   string
	newText   string
	context   map[string]string
	component string
}

func (r *runner) run(ctx context.Context, res *Result) error {
	cfg, invalid, err := r.load(res)
	if err != nil {
		return err
	}
	r.reach(res, Loaded)
	for _, d := range res.Diagnostics {
		if d.Severity == diag.Warning {
			r.warn(res, "%s", d)
		}
	}
	if invalid != nil {
		return invalid
	}
	r.reach(res, Validated)

	if err := ctx.Err(); err != nil {
		return err
	}
	c, err := r.compute(cfg, res)
	if err != nil {
		return err
	}
	r.reach(res, Computed)

	repo := r.repo(cfg)
	useVCS := !r.opts.DryRun && r.wantCommit(cfg)
	if useVCS || r.opts.DryRun {
		r.checkTag(ctx, res, repo, c)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	plan, err := r.plan(ctx, res, c)
	if err != nil {
		return err
	}
	if r.opts.Preview != nil {
		if err := r.opts.Preview(&Preview{OldVersion: c.oldText, NewVersion: c.newText, Edits: plan.Edits, Skipped: plan.Skipped}); err != nil {
			return err
		}
	}
	r.reach(res, Previewed)
	if r.opts.DryRun {
		return nil
	}

	if useVCS && !r.opts.AllowDirty && !cfg.AllowDirty.V {
		if err := repo.CheckClean(ctx, plan.Paths()); err != nil {
			return err
		}
	}
	// Last chance to stop: nothing has been written yet.
	if err := ctx.Err(); err != nil {
		return err
	}

	r.reach(res, Applying)
	report, err := plan.Apply(r.store, r.log)
	if err != nil {
		return err
	}
	res.UpdatedFiles = report.Written
	if err := cfg.SetCurrent(c.next); err != nil {
		return err
	}
	r.reach(res, Applied)
	r.log.Info("bumped version",
		zap.String("old", c.oldText), zap.String("new", c.newText), zap.Strings("files", report.Written))

	return r.record(ctx, res, repo, c, report.Written)
}

// load reads the configuration. invalid is the *diag.ListError of a
// configuration that was read but has error diagnostics.
func (r *runner) load(res *Result) (cfg *config.Config, invalid, err error) {
	path := r.opts.ConfigPath
	if path == "" {
		found, err := config.Find(r.fs, r.opts.Dir)
		if err != nil {
			return nil, nil, &ConfigError{Err: err}
		}
		path = found
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(r.opts.Dir, path)
	}
	res.ConfigPath = path

	cfg, diags, err := config.Load(r.fs, path)
	res.Diagnostics = diags.All()
	res.Config = cfg
	if err != nil {
		var derr *diag.ListError
		if errors.As(err, &derr) {
			return cfg, err, nil
		}
		return nil, nil, &replace.IOError{Path: path, Op: "read", Err: err}
	}
	r.log.Debug("loaded configuration", zap.String("path", path), zap.Int("diagnostics", len(res.Diagnostics)))
	return cfg, nil, nil
}

func (r *runner) compute(cfg *config.Config, res *Result) (*computed, error) {
	c := &computed{cfg: cfg, current: cfg.Current, oldText: cfg.CurrentVersion.V}
	res.OldVersion = c.oldText

	var err error
	if r.opts.NewVersion != "" {
		c.next, err = cfg.Scheme.Parse(cfg.Template.V, r.opts.NewVersion)
		if err != nil {
			return nil, err
		}
		res.BumpType = "explicit"
	} else {
		if r.opts.Component == "" {
			return nil, fmt.Errorf("nothing to bump: give a component (%v) or a new version", cfg.Scheme.Names())
		}
		c.component = r.opts.Component
		c.next, err = c.current.Bump(c.component)
		if err != nil {
			return nil, err
		}
		res.BumpType = c.component
	}
	c.newText, err = c.next.Render(cfg.Template.V)
	if err != nil {
		return nil, err
	}
	res.NewVersion = c.newText
	if c.newText == c.oldText {
		return nil, fmt.Errorf("%w (%s)", ErrNoChange, c.newText)
	}

	oldSem, newSem := semverOf(c.oldText), semverOf(c.newText)
	if semver.IsValid(oldSem) && semver.IsValid(newSem) && semver.Compare(newSem, oldSem) < 0 {
		r.warn(res, "new version %s is lower than %s", c.newText, c.oldText)
	}
	c.context = config.NewContext(c.current, c.next, c.oldText, c.newText)
	return c, nil
}

// semverOf returns text with the "v" prefix semver expects.
func semverOf(text string) string {
	if len(text) > 0 && text[0] == 'v' {
		return text
	}
	return "v" + text
}

func (r *runner) wantCommit(cfg *config.Config) bool {
	return cfg.Commit.V && !r.opts.NoCommit
}

func (r *runner) repo(cfg *config.Config) Repository {
	if r.opts.Repo != nil {
		return r.opts.Repo
	}
	dir := r.opts.Dir
	if cfg.Path != "" {
		dir = filepath.Dir(cfg.Path)
	}
	return &vcs.Git{Dir: dir, Timeout: cfg.VCSTimeout.V, Retries: cfg.VCSRetries.V, Logger: r.log}
}

// checkTag warns when the latest tag is not the tag of the configured
// current version, which usually means the configuration fell behind.
func (r *runner) checkTag(ctx context.Context, res *Result, repo Repository, c *computed) {
	latest, err := repo.LatestTag(ctx)
	if err != nil || latest == "" {
		return
	}
	want, err := c.cfg.TagName.V.Execute(template.Map(config.NewContext(c.current, c.current, c.oldText, c.oldText)))
	if err != nil || want == latest {
		return
	}
	r.warn(res, "latest tag %s does not match the current version %s (expected tag %s)", latest, c.oldText, want)
}

func (r *runner) record(ctx context.Context, res *Result, repo Repository, c *computed, written []string) error {
	if !r.wantCommit(c.cfg) {
		if c.cfg.Tag.V && !r.opts.NoTag {
			r.warn(res, "tagging skipped: tags are only created together with a commit")
		}
		return nil
	}
	lookup := template.Map(c.context)
	msg, err := c.cfg.Message.V.Execute(lookup)
	if err != nil {
		return err
	}
	res.CommitMessage = msg
	if err := repo.Commit(ctx, msg, written); err != nil {
		return err
	}
	r.reach(res, Committed)

	if !c.cfg.Tag.V || r.opts.NoTag {
		return nil
	}
	name, err := c.cfg.TagName.V.Execute(lookup)
	if err != nil {
		return err
	}
	tagMsg, err := c.cfg.TagMessage.V.Execute(lookup)
	if err != nil {
		return err
	}
	res.TagName = name
	if err := repo.Tag(ctx, name, tagMsg); err != nil {
		return err
	}
	r.reach(res, Tagged)
	return nil
}

// literalSearch renders a search template into a pattern. Regex searches
// get their placeholder values escaped so that a version like 1.2.3 matches
// only itself.
func literalSearch(t *template.Template, lookup func(string) (string, bool), regex bool) (string, error) {
	if !regex {
		return t.Execute(lookup)
	}
	return t.ExecuteEscaped(lookup, func(s string) string { return s }, regexp.QuoteMeta)
}
