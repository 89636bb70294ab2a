package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	bumpversion "github.com/bcomnes/bumpversion/pkg"
	"github.com/bcomnes/bumpversion/pkg/replace"
	"github.com/spf13/cobra"
)

func (a *app) bumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bump [component]",
		Short: "Bump a version component, or set an explicit version",
		Long: `Bump increments the named version component, resetting every less
significant one, and rewrites every configured file. With --new-version the
version is set explicitly instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := a.options()
			if len(args) == 1 {
				opts.Component = args[0]
			}
			opts.NewVersion = a.v.GetString("new-version")
			opts.DryRun = a.v.GetBool("dry-run")
			opts.NoCommit = a.v.GetBool("no-commit")
			opts.NoTag = a.v.GetBool("no-tag")
			opts.AllowDirty = a.v.GetBool("allow-dirty")
			if a.v.GetBool("show-diff") && !opts.DryRun && !a.jsonOutput() {
				opts.Preview = a.printPreview
			}
			return a.bump(cmd.Context(), opts)
		},
	}
	f := cmd.Flags()
	f.String("new-version", "", "Set this version instead of bumping a component")
	f.Bool("dry-run", false, "Show what would change without writing files or touching git")
	f.Bool("no-commit", false, "Do not commit, even when the configuration asks to")
	f.Bool("no-tag", false, "Do not tag, even when the configuration asks to")
	f.Bool("allow-dirty", false, "Allow uncommitted changes to files the bump does not touch")
	f.Bool("show-diff", false, "Print the diff of every file before writing it")
	return cmd
}

func (a *app) bump(ctx context.Context, opts bumpversion.Options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	// Interrupts stop the run until the first file is written.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	res, err := bumpversion.Run(ctx, opts)
	if err != nil {
		return &failure{err: err, data: res}
	}
	if a.jsonOutput() {
		a.printSuccess(res)
		return nil
	}

	for _, w := range res.Warnings {
		fmt.Fprintln(a.stderr, "Warning:", w)
	}
	if opts.DryRun {
		color := a.useColor(a.stdout)
		for _, d := range res.Diffs {
			fmt.Fprint(a.stdout, replace.ColorDiff(d.Diff, color))
		}
		fmt.Fprintln(a.stdout, "Dry run complete, no files were modified.")
	} else {
		fmt.Fprintln(a.stdout, "Version bump successful!")
	}
	fmt.Fprintf(a.stdout, "Old Version: %s\n", res.OldVersion)
	fmt.Fprintf(a.stdout, "New Version: %s\n", res.NewVersion)
	fmt.Fprintf(a.stdout, "Bump Type:   %s\n", res.BumpType)

	if len(res.UpdatedFiles) > 0 {
		if opts.DryRun {
			fmt.Fprintln(a.stdout, "Files that would be updated:")
		} else {
			fmt.Fprintln(a.stdout, "Files updated:")
		}
		for _, f := range res.UpdatedFiles {
			fmt.Fprintf(a.stdout, "  %s\n", f)
		}
	}
	for _, s := range res.Skipped {
		fmt.Fprintf(a.stdout, "Skipped missing file: %s\n", s)
	}
	if res.CommitMessage != "" && res.State >= bumpversion.Committed {
		fmt.Fprintf(a.stdout, "Committed: %s\n", res.CommitMessage)
	}
	if res.TagName != "" && res.State == bumpversion.Tagged {
		fmt.Fprintf(a.stdout, "Tagged:    %s\n", res.TagName)
	}
	return nil
}

// printPreview prints the diff of every edit before it is written.
func (a *app) printPreview(p *bumpversion.Preview) error {
	color := a.useColor(a.stdout)
	for _, e := range p.Edits {
		if diff := e.Diff(); diff != "" {
			fmt.Fprint(a.stdout, replace.ColorDiff(diff, color))
		}
	}
	return nil
}
