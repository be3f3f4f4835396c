// Package cache owns the on-disk layout of pkgmonitor:
//
//	<fetch cache>/<repo>/<listing>          downloaded, compressed listings
//	<fetch cache>/<repo>/<listing>.sha256   digest of the listing when last indexed
//	<package cache>/<repo>/<shard>          one package name per line
//
// A Store holds nothing but the two root paths; every call goes to the file
// system.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// HashExt is the suffix of the digest side-file stored next to a listing.
const HashExt = ".sha256"

// ErrNotDirectory is returned when a repository's index directory is missing.
var ErrNotDirectory = errors.New("is not a directory")

type Store struct {
	stagingRoot string
	indexRoot   string
	log         logrus.FieldLogger
}

func NewStore(stagingRoot, indexRoot string, log logrus.FieldLogger) *Store {
	return &Store{
		stagingRoot: stagingRoot,
		indexRoot:   indexRoot,
		log:         log,
	}
}

func resolve(root, repo string) string {
	if filepath.IsAbs(repo) {
		return repo
	}
	return filepath.Join(root, repo)
}

// StagingDir returns the staging directory of repo, which is either a name
// relative to the fetch cache or an absolute path.
func (s *Store) StagingDir(repo string) string { return resolve(s.stagingRoot, repo) }

// IndexDir returns the shard directory of repo, which is either a name
// relative to the package cache or an absolute path.
func (s *Store) IndexDir(repo string) string { return resolve(s.indexRoot, repo) }

// entries returns the names in dir, sorted by name, skipping dot files. A
// missing dir yields no entries.
func entries(dir string, wantDir bool) ([]string, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, de := range des {
		if strings.HasPrefix(de.Name(), ".") || de.IsDir() != wantDir {
			continue
		}
		names = append(names, de.Name())
	}
	return names, nil
}

// ListStagingRepos returns the names of all repositories in the fetch cache.
func (s *Store) ListStagingRepos() ([]string, error) {
	return entries(s.stagingRoot, true)
}

// ListIndexRepos returns the names of all repositories in the package cache.
func (s *Store) ListIndexRepos() ([]string, error) {
	return entries(s.indexRoot, true)
}

// ListStagedFiles returns the absolute paths of the listings staged for repo,
// excluding digest side-files.
func (s *Store) ListStagedFiles(repo string) ([]string, error) {
	dir := s.StagingDir(repo)
	names, err := entries(dir, false)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, name := range names {
		if strings.HasSuffix(name, HashExt) {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	return paths, nil
}

// ListShards returns the shard keys present in repo's index.
func (s *Store) ListShards(repo string) ([]string, error) {
	return entries(s.IndexDir(repo), false)
}

// RequireIndexDir returns the index directory of repo, or an error wrapping
// ErrNotDirectory if it does not exist.
func (s *Store) RequireIndexDir(repo string) (string, error) {
	dir := s.IndexDir(repo)
	fi, err := os.Stat(dir)
	if err != nil && !os.IsNotExist(err) {
		return "", err
	}
	if err != nil || !fi.IsDir() {
		return "", fmt.Errorf("%s %w!", dir, ErrNotDirectory)
	}
	return dir, nil
}

// DeleteStaging removes every repository from the fetch cache. The fetch
// cache root itself is kept.
func (s *Store) DeleteStaging() error {
	repos, err := s.ListStagingRepos()
	if err != nil {
		return err
	}
	for _, repo := range repos {
		if err := s.removeDir(s.StagingDir(repo)); err != nil {
			return err
		}
	}
	return nil
}

// DeleteIndex removes all shards of repo along with its directory. Deleting
// a repository that has no index is not an error.
func (s *Store) DeleteIndex(repo string) error {
	return s.removeDir(s.IndexDir(repo))
}

func (s *Store) removeDir(dir string) error {
	log := s.log.WithField("dir", dir)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		log.Debug("does not exist, nothing to delete")
		return nil
	}
	log.Debug("removing")
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove %s: %w", dir, err)
	}
	return nil
}
