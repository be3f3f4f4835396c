// Program pkgmonitor reports which of the given package names are available
// in, or missing from, the locally cached repository indexes.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Debian/pkgmonitor/internal/cache"
	"github.com/Debian/pkgmonitor/internal/config"
	"github.com/Debian/pkgmonitor/internal/logging"
	"github.com/Debian/pkgmonitor/internal/lookup"
)

var errNoInput = errors.New("No input was given, you need to use -f/--file, -p/--packages or pipe your input to this script.")

type invocation struct {
	all      bool
	repos    []string
	ok       bool
	missing  bool
	color    bool
	table    bool
	indent   bool
	files    []string
	packages []string
	verbose  bool
	complete bool

	configPath string

	// stdin is nil when standard input is a terminal.
	stdin io.Reader
}

func (i *invocation) setup() (config.Config, *cache.Store, logrus.FieldLogger, error) {
	cfg, err := config.Load(config.DefaultsPath, i.configPath)
	if err != nil {
		return cfg, nil, nil, err
	}
	if len(cfg.ReleaseOrder) == 0 {
		return cfg, nil, nil, fmt.Errorf("Release-Order is not set in %s or %s", config.DefaultsPath, i.configPath)
	}
	log := logging.New(logging.Options{
		Verbose:    i.verbose,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
	})
	log.WithField("config", i.configPath).Debugf("release order: %v", cfg.ReleaseOrder)
	return cfg, cache.NewStore(cfg.FetchCache, cfg.PackageCache, log), log, nil
}

func (i *invocation) requestedRepos(store *cache.Store) ([]string, error) {
	if i.all {
		return store.ListIndexRepos()
	}
	return i.repos, nil
}

// run queries the requested repositories for the package names of all input
// sources and prints the result to w. Positional arguments are additional
// package names.
func (i *invocation) run(args []string, w io.Writer) error {
	cfg, store, log, err := i.setup()
	if err != nil {
		return err
	}
	repos, err := i.requestedRepos(store)
	if err != nil {
		return err
	}

	if i.complete {
		return i.printCompletions(lookup.New(store, nil, cfg.ReleaseOrder, log), repos, args, w)
	}

	rules, err := lookup.LoadRules(cfg.RulesDir)
	if err != nil {
		return err
	}
	in := lookup.Input{
		Files:    i.files,
		Packages: append(append([]string(nil), i.packages...), args...),
		Stdin:    i.stdin,
	}
	names, err := in.Names()
	if err != nil {
		if errors.Is(err, lookup.ErrNoInput) {
			return errNoInput
		}
		return err
	}

	report, err := lookup.New(store, rules, cfg.ReleaseOrder, log).Query(repos, names, i.table)
	if err != nil {
		return err
	}
	p := newPrinter(w, i.ok, i.missing, i.indent, i.color)
	if i.table {
		p.table(report)
	} else {
		p.list(report)
	}
	return nil
}

func newCommand(i *invocation) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pkgmonitor [package...]",
		Short: "Check local build repository cache for existing/missing packages",
		Example: `  # Which of these packages are missing from buster?
  pkgmonitor -r buster -m -p acl bash zsh

  # Compare all cached repositories
  dpkg-query -W -f '${Package}\n' | pkgmonitor -a -t -o -m -c`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true
			return i.run(args, cmd.OutOrStdout())
		},
		ValidArgsFunction: i.completePackages,
	}

	flags := cmd.Flags()
	flags.BoolVarP(&i.all, "all", "a", false, "Check all repos in cache")
	flags.StringSliceVarP(&i.repos, "repo", "r", nil, "Check if packages are (not) found in specified repo")
	flags.BoolVarP(&i.ok, "ok", "o", false, "Output packages that are available")
	flags.BoolVarP(&i.missing, "missing", "m", false, "Output packages that are missing")
	flags.BoolVarP(&i.color, "color", "c", false, "Output with color")
	flags.BoolVarP(&i.table, "table", "t", false, "Output as table")
	flags.BoolVarP(&i.indent, "indent", "i", false, "Indented output")
	flags.StringSliceVarP(&i.files, "file", "f", nil, "Read packages from file")
	flags.StringSliceVarP(&i.packages, "packages", "p", nil, "Read packages from argument list")
	flags.BoolVarP(&i.verbose, "verbose", "v", false, "Verbose output, otherwise only return status")
	flags.BoolVar(&i.complete, "complete", false,
		"Whether to return package name completions for the last argument. Should usually be set by shell completion functions only.")
	flags.StringVar(&i.configPath, "config", config.SystemPath, "Configuration file overriding "+config.DefaultsPath)

	cmd.MarkFlagsMutuallyExclusive("all", "repo")
	cmd.MarkFlagsOneRequired("all", "repo")
	cmd.MarkFlagsMutuallyExclusive("table", "indent")
	cmd.RegisterFlagCompletionFunc("repo", i.completeRepos)
	return cmd
}

func main() {
	i := &invocation{}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		i.stdin = os.Stdin
	}
	if err := newCommand(i).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
