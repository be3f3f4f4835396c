package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeSetup creates a configuration with two repository indexes and a rule
// file, returning the configuration path.
func writeSetup(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"packages/buster/a":    "acl\n",
		"packages/buster/b":    "bash\n",
		"packages/buster/libc": "libc6\n",
		"packages/sid/a":       "acl\n",
		"packages/sid/z":       "zsh\n",
		"rules.d/10-sid.yaml":  "- repo: sid\n  packages:\n    - \"bash\": \"zsh\"\n",
		"list":                 "acl\nlibc6\n",
		"pkgmonitor.deb822": "Package-Cache: " + filepath.Join(root, "packages") + "\n" +
			"Fetch-Cache: " + filepath.Join(root, "fetch") + "\n" +
			"Rules-Dir: " + filepath.Join(root, "rules.d") + "\n" +
			"Release-Order: buster sid\n",
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return filepath.Join(root, "pkgmonitor.deb822")
}

func TestRun(t *testing.T) {
	t.Parallel()
	configPath := writeSetup(t)
	list := filepath.Join(filepath.Dir(configPath), "list")

	for _, entry := range []struct {
		name string
		args []string
		i    invocation
		want string
	}{
		{
			name: "Packages",
			i:    invocation{repos: []string{"buster"}, missing: true, packages: []string{"acl", "zsh"}},
			want: "zsh\n",
		},
		{
			name: "FileStdinAndArgs",
			args: []string{"bash"},
			i: invocation{
				all:     true,
				ok:      true,
				files:   []string{list},
				stdin:   strings.NewReader("zsh\n"),
				missing: true,
			},
			want: "buster\nAVAILABLE:\nacl\nbash\nlibc6\nMISSING:\nzsh\n" +
				"sid\nAVAILABLE:\nacl\nzsh\nMISSING:\nlibc6\n",
		},
		{
			name: "ReleaseOrder",
			i:    invocation{repos: []string{"sid", "buster", "unknown"}, ok: true, packages: []string{"acl"}},
			want: "buster\nacl\nsid\nacl\n",
		},
		{
			name: "Complete",
			args: []string{"li"},
			i:    invocation{all: true, complete: true},
			want: "libc6\n",
		},
	} {
		entry := entry // copy
		t.Run(entry.name, func(t *testing.T) {
			t.Parallel()
			entry.i.configPath = configPath
			var buf bytes.Buffer
			if err := entry.i.run(entry.args, &buf); err != nil {
				t.Fatal(err)
			}
			if got := buf.String(); got != entry.want {
				t.Fatalf("run() = %q, want %q", got, entry.want)
			}
		})
	}
}

func TestRunErrors(t *testing.T) {
	t.Parallel()
	configPath := writeSetup(t)

	i := invocation{repos: []string{"buster"}, configPath: configPath}
	if err := i.run(nil, &bytes.Buffer{}); err != errNoInput {
		t.Fatalf("run() without input = %v, want %v", err, errNoInput)
	}

	root := filepath.Dir(configPath)
	if err := os.Remove(filepath.Join(root, "packages", "sid", "a")); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(root, "packages", "sid", "z")); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(root, "packages", "sid")); err != nil {
		t.Fatal(err)
	}
	i = invocation{repos: []string{"sid"}, packages: []string{"acl"}, configPath: configPath}
	err := i.run(nil, &bytes.Buffer{})
	want := filepath.Join(root, "packages", "sid") + " is not a directory!"
	if err == nil || err.Error() != want {
		t.Fatalf("run() = %v, want %q", err, want)
	}

	empty := filepath.Join(root, "empty.deb822")
	if err := os.WriteFile(empty, []byte("Package-Cache: /nonexistent\n"), 0644); err != nil {
		t.Fatal(err)
	}
	i = invocation{all: true, packages: []string{"acl"}, configPath: empty}
	if err := i.run(nil, &bytes.Buffer{}); err == nil || !strings.Contains(err.Error(), "Release-Order") {
		t.Fatalf("run() = %v, want Release-Order error", err)
	}
}

func TestCommandFlags(t *testing.T) {
	t.Parallel()
	for _, args := range [][]string{
		{"-p", "acl"},
		{"-a", "-r", "buster", "-p", "acl"},
		{"-r", "buster", "-t", "-i", "-p", "acl"},
	} {
		cmd := newCommand(&invocation{})
		cmd.SetArgs(args)
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		if err := cmd.Execute(); err == nil {
			t.Errorf("Execute(%v) unexpectedly succeeded", args)
		}
	}
}
