package main

import (
	"fmt"
	"sort"
	"strings"

	bumpversion "github.com/bcomnes/bumpversion/pkg"
	"github.com/spf13/cobra"
)

func (a *app) showCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [name...]",
		Short: "Show version values from the configuration",
		Long: `Show prints values of the version context: current_version and
current_<component>, plus new_version and new_<component> when --increment or
--new-version is given. A single name prints its bare value.`,
		RunE: func(_ *cobra.Command, args []string) error {
			opts := a.options()
			opts.Component = a.v.GetString("increment")
			opts.NewVersion = a.v.GetString("new-version")
			values, err := bumpversion.Show(opts, args...)
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				a.printSuccess(values)
				return nil
			}
			if len(args) == 1 {
				fmt.Fprintln(a.stdout, values[args[0]])
				return nil
			}
			names := make([]string, 0, len(values))
			for n := range values {
				names = append(names, n)
			}
			sort.Strings(names)
			for _, n := range names {
				fmt.Fprintf(a.stdout, "%s=%s\n", n, values[n])
			}
			return nil
		},
	}
	cmd.Flags().String("increment", "", "Component to bump when showing new_* values")
	cmd.Flags().String("new-version", "", "Explicit new version when showing new_* values")
	return cmd
}

// showBumpOutput is the JSON data of show-bump.
type showBumpOutput struct {
	CurrentVersion string                   `json:"current_version"`
	Bumps          []bumpversion.BumpOption `json:"bumps"`
}

func (a *app) showBumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show-bump [component]",
		Short: "Show the version each component bump would produce",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			opts := a.options()
			if len(args) == 1 {
				opts.Component = args[0]
			}
			current, bumps, err := bumpversion.ShowBump(opts)
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				a.printSuccess(showBumpOutput{CurrentVersion: current, Bumps: bumps})
				return nil
			}

			width := 0
			for _, b := range bumps {
				width = max(width, len(b.Component))
			}
			fmt.Fprintln(a.stdout, current)
			for _, b := range bumps {
				pad := strings.Repeat(" ", width-len(b.Component))
				if b.Error != "" {
					fmt.Fprintf(a.stdout, "  %s%s  (%s)\n", b.Component, pad, b.Error)
					continue
				}
				fmt.Fprintf(a.stdout, "  %s%s  -> %s\n", b.Component, pad, b.NewVersion)
			}
			return nil
		},
	}
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of bumpversion",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			if a.jsonOutput() {
				a.printSuccess(map[string]string{"version": Version})
				return
			}
			fmt.Fprintln(a.stdout, "bumpversion CLI version", Version)
		},
	}
}
