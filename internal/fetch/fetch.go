// Package fetch downloads the listings of all configured repositories into
// the staging area.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Debian/pkgmonitor/internal/cache"
	"github.com/Debian/pkgmonitor/internal/config"
	"github.com/Debian/pkgmonitor/internal/humanbytes"
	"github.com/Debian/pkgmonitor/internal/write"
)

const userAgent = "pkgmonitor"

// StagingName returns the file name a listing downloaded from url is staged
// under.
func StagingName(url string) string {
	return strings.ReplaceAll(url, "/", "_")
}

// Options tune a Fetcher. Zero values select the defaults of config.Default.
type Options struct {
	Workers int
	Timeout time.Duration
	MaxSize int64
	Client  *http.Client
}

// Failure records one URL that could not be downloaded.
type Failure struct {
	Repo string
	URL  string
	Err  error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %s: %v", f.Repo, f.URL, f.Err)
}

// Report summarizes a fetch pass.
type Report struct {
	// Fetched counts the successfully downloaded listings per repository.
	Fetched  map[string]int
	Failures []Failure
}

type Fetcher struct {
	store *cache.Store
	opts  Options
	log   logrus.FieldLogger
}

func New(store *cache.Store, opts Options, log logrus.FieldLogger) *Fetcher {
	def := config.Default()
	if opts.Workers < 1 {
		opts.Workers = def.FetchWorkers
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.FetchTimeout
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = def.MaxDownloadSize
	}
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	return &Fetcher{store: store, opts: opts, log: log}
}

// FetchAll downloads every URL of every repository, at most Workers at a
// time. A failed URL is recorded in the report and does not stop the pass.
// FetchAll returns once all downloads have finished; the error is non-nil
// only if a staging directory cannot be created or ctx is done.
func (f *Fetcher) FetchAll(ctx context.Context, repos []config.Repository) (*Report, error) {
	report := &Report{Fetched: make(map[string]int)}
	var mu sync.Mutex

	var eg errgroup.Group
	eg.SetLimit(f.opts.Workers)
	for _, repo := range repos {
		dir := f.store.StagingDir(repo.Name)
		if err := os.MkdirAll(dir, 0755); err != nil {
			eg.Wait()
			return report, err
		}
		f.log.WithField("repo", repo.Name).Debug("fetching")
		for _, target := range repo.Targets {
			for _, url := range target.URLs() {
				repo, url := repo.Name, url // copy
				dest := filepath.Join(dir, StagingName(url))
				eg.Go(func() error {
					n, err := f.Download(ctx, url, dest)
					mu.Lock()
					defer mu.Unlock()
					log := f.log.WithFields(logrus.Fields{"repo": repo, "url": url})
					if err != nil {
						log.WithError(err).Warn("fetch failed")
						report.Failures = append(report.Failures, Failure{Repo: repo, URL: url, Err: err})
						return nil
					}
					log.Debugf("fetched %s", humanbytes.Format(n))
					report.Fetched[repo]++
					return nil
				})
			}
		}
	}
	eg.Wait()
	return report, ctx.Err()
}

// Download replaces dest with the content at url. On failure dest is left as
// it was.
func (f *Fetcher) Download(ctx context.Context, url, dest string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	var written int64
	err := write.Atomically(dest, func(w io.Writer) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", userAgent)
		resp, err := f.opts.Client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if got, want := resp.StatusCode, http.StatusOK; got != want {
			// Discard the Body (for Keep-Alive).
			io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
			return fmt.Errorf("unexpected HTTP status code: got %d, want %d", got, want)
		}
		written, err = io.Copy(w, io.LimitReader(resp.Body, f.opts.MaxSize+1))
		if err != nil {
			return err
		}
		if written > f.opts.MaxSize {
			return fmt.Errorf("listing exceeds the download limit of %s", humanbytes.Format(f.opts.MaxSize))
		}
		return nil
	})
	return written, err
}
