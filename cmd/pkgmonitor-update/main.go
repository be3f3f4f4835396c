// Program pkgmonitor-update fetches the configured repository listings and
// keeps the local package cache in sync with them.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Debian/pkgmonitor/internal/cache"
	"github.com/Debian/pkgmonitor/internal/config"
	"github.com/Debian/pkgmonitor/internal/fetch"
	"github.com/Debian/pkgmonitor/internal/logging"
	"github.com/Debian/pkgmonitor/internal/update"
)

type invocation struct {
	update  bool
	rebuild bool
	fetch   bool
	verbose bool

	configPath string
}

func (i *invocation) options(cfg config.Config, log logrus.FieldLogger) (update.Options, error) {
	opts := update.Options{Mode: update.Update, Fetch: i.fetch}
	if i.rebuild {
		opts.Mode = update.Rebuild
	}
	if i.fetch {
		repos, err := config.LoadRepositories(cfg.ReposDir)
		if err != nil {
			return opts, err
		}
		log.WithField("dir", cfg.ReposDir).Debugf("loaded %d repositories", len(repos))
		opts.Repos = repos
	}
	return opts, nil
}

func (i *invocation) run(ctx context.Context, hookOutput io.Writer) error {
	cfg, err := config.Load(config.DefaultsPath, i.configPath)
	if err != nil {
		return err
	}
	log := logging.New(logging.Options{
		Verbose:    i.verbose,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
	})

	opts, err := i.options(cfg, log)
	if err != nil {
		return err
	}

	store := cache.NewStore(cfg.FetchCache, cfg.PackageCache, log)
	fetcher := fetch.New(store, fetch.Options{
		Workers: cfg.FetchWorkers,
		Timeout: cfg.FetchTimeout,
		MaxSize: cfg.MaxDownloadSize,
	}, log)
	hooks := update.NewHooks(cfg.HooksDir, hookOutput, log)

	log.Debugf("starting %s", opts.Mode)
	summary, err := update.New(store, fetcher, hooks, log).Run(ctx, opts)
	if summary != nil && summary.Fetch != nil && len(summary.Fetch.Failures) > 0 {
		log.Warnf("%d listings could not be fetched", len(summary.Fetch.Failures))
	}
	return err
}

func newCommand(i *invocation) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pkgmonitor-update",
		Short: "Update or rebuild the local package cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true
			return i.run(cmd.Context(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&i.update, "update", "u", false, "Update the package cache of repositories whose listings changed")
	flags.BoolVarP(&i.rebuild, "rebuild", "r", false, "Remove all existing cache and rebuild it")
	flags.BoolVarP(&i.fetch, "fetch", "f", false, "Fetch the listings of all configured repositories")
	flags.BoolVarP(&i.verbose, "verbose", "v", false, "Verbose output")
	flags.StringVar(&i.configPath, "config", config.SystemPath, "Configuration file overriding "+config.DefaultsPath)

	cmd.MarkFlagsMutuallyExclusive("update", "rebuild")
	cmd.MarkFlagsOneRequired("update", "rebuild")
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newCommand(&invocation{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
