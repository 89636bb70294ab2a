package main

import (
	"io"
	"os"
	"strings"

	"github.com/bcomnes/bumpversion/internal/dlogger"
	bumpversion "github.com/bcomnes/bumpversion/pkg"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// envPrefix prefixes the environment variables that set flags, e.g.
// BUMPVERSION_DRY_RUN=true.
const envPrefix = "BUMPVERSION"

// app carries what every command shares.
type app struct {
	v      *viper.Viper
	stdout io.Writer
	stderr io.Writer
	log    *zap.Logger
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	a := &app{v: viper.New(), stdout: stdout, stderr: stderr, log: zap.NewNop()}
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.Execute()
	_ = a.log.Sync()
	if err != nil {
		return a.fail(err)
	}
	return bumpversion.ExitOK
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bumpversion",
		Short: "Bump a version in every file that mentions it",
		Long: `bumpversion reads its configuration from .bumpversion.toml, pyproject.toml
([tool.bumpversion]) or .bumpversion.yaml, computes the next version and
rewrites every configured file. All files are validated before the first one
is written, and a failed write restores the files already written. The change
is then optionally committed and tagged with git.

Examples:
  bumpversion bump minor
  bumpversion bump --new-version 2.0.0-rc
  bumpversion bump patch --dry-run
  bumpversion show current_version
  bumpversion show-bump`,
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			logger, err := dlogger.GetLogger(a.v.GetString("log-level"), a.v.GetBool("json"))
			if err != nil {
				return err
			}
			a.log = logger
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.String("log-level", "error", "Log level: debug, info, warn, error or none")
	pf.Bool("json", false, "Output in JSON format")
	pf.String("color", "auto", "Colorize output: auto, always or never")
	pf.String("dir", ".", "Directory to search for the configuration file")
	pf.String("config", "", "Path to the configuration file")

	root.AddCommand(a.bumpCmd(), a.showCmd(), a.showBumpCmd(), a.versionCmd())
	return root
}

// options returns the run options shared by every command.
func (a *app) options() bumpversion.Options {
	return bumpversion.Options{
		Dir:        a.v.GetString("dir"),
		ConfigPath: a.v.GetString("config"),
		Logger:     a.log,
	}
}
