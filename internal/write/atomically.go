package write

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
)

// TempPrefix starts the name of every in-flight temporary file. Directory
// listings skip names with a leading dot, so a crashed write never shows up
// as a staged listing.
const TempPrefix = ".pkgmonitor-"

// Atomically calls write with a buffered writer backed by a temporary file in
// the directory of dest, then renames the temporary file to dest. dest is
// either fully replaced or left untouched.
func Atomically(dest string, write func(io.Writer) error) (err error) {
	// The temporary file must live on the same file system as dest so that
	// the final rename cannot fail with EXDEV.
	f, err := os.CreateTemp(filepath.Dir(dest), TempPrefix)
	if err != nil {
		return err
	}
	defer func() {
		// Remove the tempfile if an error occurred
		if err != nil {
			os.Remove(f.Name())
		}
	}()
	defer f.Close()

	bufw := bufio.NewWriter(f)

	if err := write(bufw); err != nil {
		return err
	}

	if err := bufw.Flush(); err != nil {
		return err
	}

	if err := f.Chmod(0644); err != nil {
		return err
	}

	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(f.Name(), dest)
}

// File atomically replaces dest with content.
func File(dest string, content []byte) error {
	return Atomically(dest, func(w io.Writer) error {
		_, err := w.Write(content)
		return err
	})
}
