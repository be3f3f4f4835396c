package index

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ulikunitz/xz"
)

// IsListing reports whether path has the extension of a compressed listing
// that the builder knows how to read.
func IsListing(path string) bool {
	switch filepath.Ext(path) {
	case ".gz", ".xz":
		return true
	}
	return false
}

type listing struct {
	io.Reader
	f      *os.File
	closer io.Closer
}

func (l *listing) Close() error {
	var err error
	if l.closer != nil {
		err = l.closer.Close()
	}
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// openListing returns a stream of the decompressed content of path.
func openListing(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	switch filepath.Ext(path) {
	case ".gz":
		zr, err := gzip.NewReader(bufio.NewReader(f))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return &listing{Reader: zr, f: f, closer: zr}, nil
	case ".xz":
		xr, err := xz.NewReader(bufio.NewReader(f))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return &listing{Reader: xr, f: f}, nil
	}
	f.Close()
	return nil, fmt.Errorf("%s: unsupported listing compression", path)
}
