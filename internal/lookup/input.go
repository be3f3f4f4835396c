package lookup

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"
	"unicode"
)

// ErrNoInput is returned by Input.Names when no input source was given.
var ErrNoInput = errors.New("no input was given")

// Input collects the requested package names. Stdin is nil unless it should
// be read, i.e. when it is not a terminal.
type Input struct {
	Files    []string
	Packages []string
	Stdin    io.Reader
}

// Names returns the requested names from Files, Packages and Stdin, in that
// order. Lines are right-trimmed and empty names are dropped. An empty but
// given source is not an error.
func (in Input) Names() ([]string, error) {
	if len(in.Files) == 0 && len(in.Packages) == 0 && in.Stdin == nil {
		return nil, ErrNoInput
	}
	var names []string
	for _, path := range in.Files {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		names, err = appendLines(names, f)
		f.Close()
		if err != nil {
			return nil, err
		}
	}
	for _, name := range in.Packages {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	if in.Stdin != nil {
		var err error
		if names, err = appendLines(names, in.Stdin); err != nil {
			return nil, err
		}
	}
	return names, nil
}

func appendLines(names []string, r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if name := strings.TrimRightFunc(scanner.Text(), unicode.IsSpace); name != "" {
			names = append(names, name)
		}
	}
	return names, scanner.Err()
}
