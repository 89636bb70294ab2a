package bumpversion

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bcomnes/bumpversion/pkg/config"
)

// Show returns the named values of the configuration's version context:
// current_version, current_<component> and, when opts names a component or
// a new version, new_version and new_<component>. Without names every
// available value is returned.
func Show(opts Options, names ...string) (map[string]string, error) {
	r := newRunner(opts)
	res := &Result{}
	cfg, invalid, err := r.load(res)
	if err != nil {
		return nil, err
	}
	if invalid != nil {
		return nil, invalid
	}

	values := config.NewContext(cfg.Current, cfg.Current, cfg.CurrentVersion.V, cfg.CurrentVersion.V)
	if opts.Component != "" || opts.NewVersion != "" {
		c, err := r.compute(cfg, res)
		if err != nil {
			return nil, err
		}
		values = c.context
	} else {
		for k := range values {
			if strings.HasPrefix(k, "new_") {
				delete(values, k)
			}
		}
	}
	if len(names) == 0 {
		return values, nil
	}

	out := make(map[string]string, len(names))
	for _, n := range names {
		v, ok := values[n]
		if !ok {
			known := make([]string, 0, len(values))
			for k := range values {
				known = append(known, k)
			}
			sort.Strings(known)
			return nil, &ConfigError{Err: fmt.Errorf("unknown value %q (available: %v)", n, known)}
		}
		out[n] = v
	}
	return out, nil
}

// BumpOption is the outcome of bumping one component.
type BumpOption struct {
	Component  string `json:"component"`
	NewVersion string `json:"new_version,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ShowBump lists the version each component bump would produce, in scheme
// order. When opts.Component is set only that component is listed.
func ShowBump(opts Options) (current string, options []BumpOption, err error) {
	r := newRunner(opts)
	res := &Result{}
	cfg, invalid, err := r.load(res)
	if err != nil {
		return "", nil, err
	}
	if invalid != nil {
		return "", nil, invalid
	}

	names := cfg.Scheme.Names()
	if opts.Component != "" {
		if _, ok := cfg.Scheme.Lookup(opts.Component); !ok {
			_, err := cfg.Current.Bump(opts.Component)
			return cfg.CurrentVersion.V, nil, err
		}
		names = []string{opts.Component}
	}
	for _, name := range names {
		opt := BumpOption{Component: name}
		next, err := cfg.Current.Bump(name)
		if err == nil {
			opt.NewVersion, err = next.Render(cfg.Template.V)
		}
		if err != nil {
			opt.Error = err.Error()
		}
		options = append(options, opt)
	}
	return cfg.CurrentVersion.V, options, nil
}
