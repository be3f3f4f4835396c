// Package integrity decides whether a staged listing changed since it was
// last indexed, by comparing its SHA-256 digest against the digest stored in
// the listing's side-file.
package integrity

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/Debian/pkgmonitor/internal/cache"
	"github.com/Debian/pkgmonitor/internal/write"
)

const chunkSize = 64 * 1024

// Result is the outcome of a Check.
type Result int

const (
	Mismatch Result = iota
	Match
)

func (r Result) String() string {
	if r == Match {
		return "MATCH"
	}
	return "FAIL"
}

// SideFile returns the path of the digest side-file belonging to listing.
func SideFile(listing string) string {
	return listing + cache.HashExt
}

// Hash returns the lowercase hex SHA-256 digest of the file at path, reading
// it in fixed-size chunks.
func Hash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, chunkSize)
	for {
		n, err := f.Read(buf)
		h.Write(buf[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("hash %s: %w", path, err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// storedDigest returns the first line of the side-file including its line
// terminator, if any. ok is false when there is no side-file.
func storedDigest(side string) (line string, ok bool, _ error) {
	f, err := os.Open(side)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}
	defer f.Close()
	line, err = bufio.NewReader(f).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", false, err
	}
	return line, true, nil
}

// Check compares the digest of listing with its side-file. On Match the
// side-file is left untouched. On Mismatch, including a missing side-file,
// the side-file is (re)written with the current digest.
func Check(listing string) (Result, error) {
	digest, err := Hash(listing)
	if err != nil {
		return Mismatch, err
	}
	side := SideFile(listing)
	stored, ok, err := storedDigest(side)
	if err != nil {
		return Mismatch, err
	}
	if ok && stored == digest {
		return Match, nil
	}
	if err := write.File(side, []byte(digest)); err != nil {
		return Mismatch, fmt.Errorf("store digest of %s: %w", listing, err)
	}
	return Mismatch, nil
}

// Forget removes the side-files of listings, so that the next Check reports
// Mismatch for each of them.
func Forget(listings []string) error {
	for _, listing := range listings {
		if err := os.Remove(SideFile(listing)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// Gate applies Check to all listings of a repository.
type Gate struct {
	log logrus.FieldLogger
}

func NewGate(log logrus.FieldLogger) *Gate {
	return &Gate{log: log}
}

// CheckAll checks every listing, refreshing all side-files, and reports
// whether any of them mismatched. A listing that cannot be checked does not
// stop the others; the errors of all such listings are returned together and
// count as a change.
func (g *Gate) CheckAll(listings []string) (changed bool, _ error) {
	var errs []error
	for _, listing := range listings {
		log := g.log.WithField("file", listing)
		res, err := Check(listing)
		if err != nil {
			log.WithError(err).Warn("integrity check failed")
			errs = append(errs, err)
			changed = true
			continue
		}
		log.Debug(res.String())
		if res == Mismatch {
			changed = true
		}
	}
	return changed, errors.Join(errs...)
}
