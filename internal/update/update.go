// Package update refreshes the package cache: it optionally fetches all
// listings, decides per repository whether the index is stale and rebuilds
// the stale indexes.
package update

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Debian/pkgmonitor/internal/cache"
	"github.com/Debian/pkgmonitor/internal/config"
	"github.com/Debian/pkgmonitor/internal/fetch"
	"github.com/Debian/pkgmonitor/internal/index"
	"github.com/Debian/pkgmonitor/internal/integrity"
)

// Mode selects how stale indexes are detected.
type Mode int

const (
	// Update rebuilds the index of a repository only when one of its staged
	// listings changed since it was last indexed.
	Update Mode = iota
	// Rebuild discards the fetch cache and all indexes and rebuilds every
	// repository.
	Rebuild
)

func (m Mode) String() string {
	if m == Rebuild {
		return "rebuild"
	}
	return "update"
}

type Options struct {
	Mode Mode
	// Fetch downloads the listings of Repos before indexing.
	Fetch bool
	Repos []config.Repository
}

// Summary describes what a Run did.
type Summary struct {
	Fetch *fetch.Report
	// Rebuilt maps every rebuilt repository to its build statistics.
	Rebuilt map[string]index.Stats
	// Unchanged lists the repositories whose index was kept.
	Unchanged []string
}

type Updater struct {
	store   *cache.Store
	gate    *integrity.Gate
	builder *index.Builder
	fetcher *fetch.Fetcher
	hooks   *Hooks
	log     logrus.FieldLogger
}

func New(store *cache.Store, fetcher *fetch.Fetcher, hooks *Hooks, log logrus.FieldLogger) *Updater {
	return &Updater{
		store:   store,
		gate:    integrity.NewGate(log),
		builder: index.NewBuilder(store, log),
		fetcher: fetcher,
		hooks:   hooks,
		log:     log,
	}
}

// Run performs one update pass. Fetch failures are reported in the summary
// and do not fail the pass. A repository whose listings cannot be checked or
// whose index cannot be built is invalidated so that the next pass retries
// it; the remaining repositories are still processed and the errors are
// returned together.
func (u *Updater) Run(ctx context.Context, opts Options) (*Summary, error) {
	summary := &Summary{Rebuilt: make(map[string]index.Stats)}

	if opts.Mode == Rebuild {
		u.log.Debug("removing existing fetch cache")
		if err := u.store.DeleteStaging(); err != nil {
			return summary, err
		}
	}

	if opts.Fetch {
		report, err := u.fetcher.FetchAll(ctx, opts.Repos)
		summary.Fetch = report
		if err != nil {
			return summary, err
		}
		for _, failure := range report.Failures {
			u.log.Warn(failure.Error())
		}
	}

	if opts.Mode == Rebuild {
		indexed, err := u.store.ListIndexRepos()
		if err != nil {
			return summary, err
		}
		for _, repo := range indexed {
			if err := u.store.DeleteIndex(repo); err != nil {
				return summary, err
			}
		}
	}

	repos, err := u.store.ListStagingRepos()
	if err != nil {
		return summary, err
	}
	var errs []error
	for _, repo := range repos {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		log := u.log.WithField("repo", repo)
		listings, err := u.store.ListStagedFiles(repo)
		if err != nil {
			return summary, err
		}
		changed, err := u.gate.CheckAll(listings)
		if err != nil {
			log.WithError(err).Error("checking listings failed")
			errs = append(errs, fmt.Errorf("%s: %w", repo, err))
			if err := u.invalidate(repo, listings); err != nil {
				return summary, err
			}
			continue
		}
		if opts.Mode == Update {
			if !changed {
				log.Debug("index is up to date")
				summary.Unchanged = append(summary.Unchanged, repo)
				continue
			}
			log.Debug("rebuilding package cache, removing existing cache")
			if err := u.store.DeleteIndex(repo); err != nil {
				return summary, err
			}
		}

		stats, err := u.builder.Build(repo)
		if err != nil {
			log.WithError(err).Error("building index failed")
			errs = append(errs, fmt.Errorf("%s: %w", repo, err))
			if err := u.invalidate(repo, listings); err != nil {
				return summary, err
			}
			continue
		}
		summary.Rebuilt[repo] = stats
		log.Infof("indexed %d packages from %d listings", stats.Packages, stats.Listings)
		u.hooks.AfterUpdate(ctx, repo, u.store.IndexDir(repo))
	}
	return summary, errors.Join(errs...)
}

// invalidate drops the partial index of repo and forgets the digests of its
// listings, so that the next update rebuilds it.
func (u *Updater) invalidate(repo string, listings []string) error {
	if err := u.store.DeleteIndex(repo); err != nil {
		return err
	}
	return integrity.Forget(listings)
}
