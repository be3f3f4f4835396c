package index

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Debian/pkgmonitor/internal/cache"
)

// packageField starts every line naming a package in a listing.
var packageField = []byte("Package:")

// readerSize bounds the part of a line that is inspected. Longer lines are
// read in full but only their start is parsed.
const readerSize = 64 * 1024

// Stats summarizes one Build.
type Stats struct {
	Listings  int
	Packages  int
	Malformed int // Package: lines without a usable name, skipped
}

// shardWriter appends names to the shards of one index directory, keeping
// each shard open for the duration of a build.
type shardWriter struct {
	dir    string
	files  map[string]*os.File
	writes map[string]*bufio.Writer
}

func newShardWriter(dir string) *shardWriter {
	return &shardWriter{
		dir:    dir,
		files:  make(map[string]*os.File),
		writes: make(map[string]*bufio.Writer),
	}
}

func (sw *shardWriter) append(key, name string) error {
	w, ok := sw.writes[key]
	if !ok {
		// O_APPEND: shards written by an earlier listing of the same build
		// keep their content.
		f, err := os.OpenFile(filepath.Join(sw.dir, key), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		w = bufio.NewWriter(f)
		sw.files[key] = f
		sw.writes[key] = w
	}
	_, err := fmt.Fprintln(w, name)
	return err
}

func (sw *shardWriter) close() error {
	var first error
	for key, w := range sw.writes {
		if err := w.Flush(); err != nil && first == nil {
			first = err
		}
		if err := sw.files[key].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Builder materializes repository indexes from staged listings.
type Builder struct {
	store *cache.Store
	log   logrus.FieldLogger
}

func NewBuilder(store *cache.Store, log logrus.FieldLogger) *Builder {
	return &Builder{store: store, log: log}
}

// Build appends the package names of every listing staged for repo to the
// shards in repo's index directory, creating it if needed. Listings are read
// in directory order and names are neither sorted nor deduplicated.
func (b *Builder) Build(repo string) (Stats, error) {
	var stats Stats
	log := b.log.WithField("repo", repo)

	dir := b.store.IndexDir(repo)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return stats, err
	}
	files, err := b.store.ListStagedFiles(repo)
	if err != nil {
		return stats, err
	}

	sw := newShardWriter(dir)
	for _, path := range files {
		if !IsListing(path) {
			continue
		}
		n, malformed, err := b.parse(path, sw)
		stats.Listings++
		stats.Packages += n
		stats.Malformed += malformed
		if err != nil {
			sw.close()
			return stats, fmt.Errorf("parse %s: %w", path, err)
		}
		log.WithField("file", path).Debugf("wrote %d packages", n)
		if malformed > 0 {
			log.WithField("file", path).Warnf("skipped %d malformed %s lines", malformed, packageField)
		}
	}
	if err := sw.close(); err != nil {
		return stats, err
	}
	log.Debugf("parsed %d packages", stats.Packages)
	return stats, nil
}

func (b *Builder) parse(path string, sw *shardWriter) (n, malformed int, _ error) {
	rc, err := openListing(path)
	if err != nil {
		return 0, 0, err
	}
	defer rc.Close()

	r := bufio.NewReaderSize(rc, readerSize)
	for {
		// line is only valid until the next read.
		line, err := r.ReadSlice('\n')
		if bytes.HasPrefix(line, packageField) {
			fields := strings.Fields(string(line))
			if len(fields) < 2 {
				malformed++
			} else if name, key := fields[1], ShardKey(fields[1]); !ValidKey(key) {
				malformed++
			} else {
				if err := sw.append(key, name); err != nil {
					return n, malformed, err
				}
				n++
			}
		}
		if err == bufio.ErrBufferFull {
			// Only the start of a line is of interest; drain the rest.
			err = skipLine(r)
		}
		if err == io.EOF {
			return n, malformed, nil
		}
		if err != nil {
			return n, malformed, err
		}
	}
}

// skipLine discards the remainder of the current line.
func skipLine(r *bufio.Reader) error {
	for {
		_, err := r.ReadSlice('\n')
		if err != bufio.ErrBufferFull {
			return err
		}
	}
}
