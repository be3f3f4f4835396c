package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func gzipped(t *testing.T, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestRunFetchAndRebuild(t *testing.T) {
	t.Parallel()
	listing := gzipped(t, "Package: acl\n\nPackage: libc6\n")
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(listing)
	}))
	defer ts.Close()

	root := t.TempDir()
	configPath := filepath.Join(root, "pkgmonitor.deb822")
	writeFile(t, configPath, []byte(
		"Package-Cache: "+filepath.Join(root, "packages")+"\n"+
			"Fetch-Cache: "+filepath.Join(root, "fetch")+"\n"+
			"Repos-Dir: "+filepath.Join(root, "repos.d")+"\n"+
			"Hooks-Dir: "+filepath.Join(root, "hooks")+"\n"+
			"Fetch-Workers: 2\n"))
	writeFile(t, filepath.Join(root, "repos.d", "debian.yaml"), []byte(`
- name: buster
  repository:
    - url: `+ts.URL+`/debian/dists/{dist}/main/binary-{arch}/Packages.gz
      dist: buster
      arch: [amd64, i386]
`))

	i := &invocation{rebuild: true, fetch: true, configPath: configPath}
	if err := i.run(context.Background(), &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	for _, shard := range []string{"a", "libc"} {
		b, err := os.ReadFile(filepath.Join(root, "packages", "buster", shard))
		if err != nil {
			t.Fatal(err)
		}
		// Both architectures list the same packages.
		if got := bytes.Count(b, []byte("\n")); got != 2 {
			t.Errorf("shard %s holds %d names, want 2", shard, got)
		}
	}

	// Nothing changed upstream, so an update keeps the index.
	before, err := os.Stat(filepath.Join(root, "packages", "buster", "a"))
	if err != nil {
		t.Fatal(err)
	}
	i = &invocation{update: true, configPath: configPath}
	if err := i.run(context.Background(), &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	after, err := os.Stat(filepath.Join(root, "packages", "buster", "a"))
	if err != nil {
		t.Fatal(err)
	}
	if !os.SameFile(before, after) {
		t.Fatalf("update rewrote an unchanged index")
	}
}

func TestCommandFlags(t *testing.T) {
	t.Parallel()
	for _, args := range [][]string{
		{},
		{"-f"},
		{"-u", "-r"},
		{"-u", "extra"},
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
