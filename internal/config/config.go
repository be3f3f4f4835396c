// Package config reads the pkgmonitor configuration: a deb822 file with the
// cache locations and tunables, plus the YAML repository definitions it
// points to.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"pault.ag/go/debian/control"

	"github.com/Debian/pkgmonitor/internal/humanbytes"
)

const (
	// DefaultsPath is read first, relative to the working directory.
	DefaultsPath = "pkgmonitor.deb822.default"
	// SystemPath overrides individual fields of DefaultsPath.
	SystemPath = "/etc/pkgmonitor.deb822"
)

// Config is built once at startup and passed to the components that need it.
type Config struct {
	PackageCache string
	FetchCache   string
	ReposDir     string
	RulesDir     string
	HooksDir     string
	ReleaseOrder []string

	FetchWorkers    int
	FetchTimeout    time.Duration
	MaxDownloadSize int64

	LogFile       string
	LogMaxSize    int
	LogMaxBackups int
}

// Default returns the built-in configuration used when no file sets a field.
func Default() Config {
	return Config{
		PackageCache:    "/var/cache/pkgmonitor/packages",
		FetchCache:      "/var/cache/pkgmonitor/fetch",
		ReposDir:        "/etc/pkgmonitor/repos.d",
		RulesDir:        "/etc/pkgmonitor/rules.d",
		HooksDir:        "/etc/pkgmonitor/hooks-enabled",
		FetchWorkers:    4,
		FetchTimeout:    5 * time.Minute,
		MaxDownloadSize: 512 * 1024 * 1024,
		LogMaxSize:      10,
		LogMaxBackups:   3,
	}
}

// file mirrors the fields of a config file. All values are kept as strings so
// that an empty field means "not set".
type file struct {
	PackageCache    string `control:"Package-Cache"`
	FetchCache      string `control:"Fetch-Cache"`
	ReposDir        string `control:"Repos-Dir"`
	RulesDir        string `control:"Rules-Dir"`
	HooksDir        string `control:"Hooks-Dir"`
	ReleaseOrder    string `control:"Release-Order"`
	FetchWorkers    string `control:"Fetch-Workers"`
	FetchTimeout    string `control:"Fetch-Timeout"`
	MaxDownloadSize string `control:"Max-Download-Size"`
	LogFile         string `control:"Log-File"`
	LogMaxSize      string `control:"Log-Max-Size"`
	LogMaxBackups   string `control:"Log-Max-Backups"`
}

// Load starts from Default and applies each existing file in paths in order,
// later files overriding the fields they set. Missing files are skipped.
func Load(paths ...string) (Config, error) {
	cfg := Default()
	for _, path := range paths {
		b, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return cfg, err
		}
		if err := cfg.apply(b); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}
	return cfg, nil
}

func (cfg *Config) apply(b []byte) error {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	var f file
	if err := control.Unmarshal(&f, bytes.NewReader(b)); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	for _, s := range []struct {
		dst *string
		val string
	}{
		{&cfg.PackageCache, f.PackageCache},
		{&cfg.FetchCache, f.FetchCache},
		{&cfg.ReposDir, f.ReposDir},
		{&cfg.RulesDir, f.RulesDir},
		{&cfg.HooksDir, f.HooksDir},
		{&cfg.LogFile, f.LogFile},
	} {
		if v := strings.TrimSpace(s.val); v != "" {
			*s.dst = v
		}
	}

	if order := strings.Fields(f.ReleaseOrder); len(order) > 0 {
		cfg.ReleaseOrder = order
	}

	for _, n := range []struct {
		name string
		dst  *int
		val  string
	}{
		{"Fetch-Workers", &cfg.FetchWorkers, f.FetchWorkers},
		{"Log-Max-Size", &cfg.LogMaxSize, f.LogMaxSize},
		{"Log-Max-Backups", &cfg.LogMaxBackups, f.LogMaxBackups},
	} {
		v := strings.TrimSpace(n.val)
		if v == "" {
			continue
		}
		i, err := strconv.Atoi(v)
		if err != nil || i < 1 {
			return fmt.Errorf("invalid %s value %q: want a positive integer", n.name, v)
		}
		*n.dst = i
	}

	if v := strings.TrimSpace(f.FetchTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid Fetch-Timeout value %q: want a positive duration like 90s", v)
		}
		cfg.FetchTimeout = d
	}

	if v := strings.TrimSpace(f.MaxDownloadSize); v != "" {
		size, err := humanbytes.Parse(v)
		if err != nil || size <= 0 {
			return fmt.Errorf("invalid Max-Download-Size value %q", v)
		}
		cfg.MaxDownloadSize = size
	}
	return nil
}
