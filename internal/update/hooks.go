package update

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// AfterUpdateDir is the sub directory of the hooks directory whose
// executables run after a repository index was rebuilt.
const AfterUpdateDir = "after-update"

// Hooks runs the executables of a hooks directory in name order.
type Hooks struct {
	dir    string
	output io.Writer
	log    logrus.FieldLogger
}

// NewHooks returns Hooks rooted at dir. Hook output goes to output. A nil
// *Hooks or an empty dir runs nothing.
func NewHooks(dir string, output io.Writer, log logrus.FieldLogger) *Hooks {
	return &Hooks{dir: dir, output: output, log: log}
}

// AfterUpdate runs the after-update hooks for repo with the arguments
// <repo> <index dir>, in indexDir. Failures are logged.
func (h *Hooks) AfterUpdate(ctx context.Context, repo, indexDir string) {
	if h == nil || h.dir == "" {
		return
	}
	if _, err := h.run(ctx, filepath.Join(h.dir, AfterUpdateDir), indexDir, []string{repo, indexDir}); err != nil {
		h.log.WithField("repo", repo).WithError(err).Warn("after-update hook failed")
	}
}

func (h *Hooks) run(ctx context.Context, hookDir, wd string, args []string) (found bool, _ error) {
	des, err := os.ReadDir(hookDir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	for _, de := range des {
		if de.IsDir() {
			continue
		}
		found = true
		path := filepath.Join(hookDir, de.Name())
		h.log.WithField("hook", path).Debug("running hook")
		hook := exec.CommandContext(ctx, path, args...)
		hook.Dir = wd
		hook.Stderr = h.output
		hook.Stdout = h.output
		if err := hook.Run(); err != nil {
			return found, err
		}
	}
	return found, nil
}
