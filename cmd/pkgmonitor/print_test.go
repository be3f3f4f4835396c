package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Debian/pkgmonitor/internal/lookup"
)

var listReport = &lookup.Report{
	Repos: []lookup.Result{
		{Repo: "buster", Present: []string{"acl", "bash"}, Missing: []string{"zsh"}},
		{Repo: "sid", Present: []string{"acl"}, Missing: []string{"bash", "zsh"}},
	},
}

func TestList(t *testing.T) {
	t.Parallel()

	for _, entry := range []struct {
		name                string
		ok, missing, indent bool
		report              *lookup.Report
		want                string
	}{
		{
			name:    "MissingOnly",
			missing: true,
			report:  &lookup.Report{Repos: listReport.Repos[:1]},
			want:    "zsh\n",
		},
		{
			name:    "OkAndMissing",
			ok:      true,
			missing: true,
			report:  &lookup.Report{Repos: listReport.Repos[:1]},
			want:    "AVAILABLE:\nacl\nbash\nMISSING:\nzsh\n",
		},
		{
			name:    "Indented",
			ok:      true,
			missing: true,
			indent:  true,
			report:  &lookup.Report{Repos: listReport.Repos[:1]},
			want:    "  AVAILABLE:\n    acl\n    bash\n  MISSING:\n    zsh\n",
		},
		{
			name:   "IndentedOkOnly",
			ok:     true,
			indent: true,
			report: &lookup.Report{Repos: listReport.Repos[:1]},
			want:   "  acl\n  bash\n",
		},
		{
			name:    "MultipleRepos",
			missing: true,
			report:  listReport,
			want:    "buster\nzsh\nsid\nbash\nzsh\n",
		},
		{
			name:   "Neither",
			report: listReport,
			want:   "buster\nsid\n",
		},
	} {
		entry := entry // copy
		t.Run(entry.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			newPrinter(&buf, entry.ok, entry.missing, entry.indent, false).list(entry.report)
			if got := buf.String(); got != entry.want {
				t.Fatalf("list() = %q, want %q", got, entry.want)
			}
		})
	}
}

func TestListColor(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	newPrinter(&buf, true, true, false, true).list(&lookup.Report{Repos: listReport.Repos[:1]})
	got := buf.String()
	if !strings.Contains(got, "\x1b[") {
		t.Fatalf("list() = %q, want ANSI escape sequences", got)
	}
	if !strings.Contains(got, "AVAILABLE:\n") || !strings.Contains(got, "MISSING:\n") {
		t.Fatalf("list() = %q, want uncolored headers", got)
	}
}

var tableReport = &lookup.Report{
	Repos: []lookup.Result{{Repo: "R1"}, {Repo: "R2"}},
	Rows: []lookup.Row{
		{Name: "acl", Present: []bool{true, false}, Class: lookup.Mixed},
		{Name: "bash", Present: []bool{false, false}, Class: lookup.Absent},
		{Name: "curl", Present: []bool{true, true}, Class: lookup.Present},
	},
}

func TestTable(t *testing.T) {
	t.Parallel()

	for _, entry := range []struct {
		name        string
		ok, missing bool
		shown       []string
		hidden      []string
		marks       int
	}{
		{name: "MixedOnly", shown: []string{"acl"}, hidden: []string{"bash", "curl"}, marks: 1},
		{name: "Ok", ok: true, shown: []string{"acl", "curl"}, hidden: []string{"bash"}, marks: 3},
		{name: "Missing", missing: true, shown: []string{"acl", "bash"}, hidden: []string{"curl"}, marks: 1},
		{name: "All", ok: true, missing: true, shown: []string{"acl", "bash", "curl"}, marks: 3},
	} {
		entry := entry // copy
		t.Run(entry.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			newPrinter(&buf, entry.ok, entry.missing, false, false).table(tableReport)
			got := buf.String()
			for _, header := range []string{"Package", "R1", "R2"} {
				if !strings.Contains(got, header) {
					t.Errorf("table() = %q, want header %q", got, header)
				}
			}
			for _, name := range entry.shown {
				if !strings.Contains(got, name) {
					t.Errorf("table() = %q, want row %q", got, name)
				}
			}
			for _, name := range entry.hidden {
				if strings.Contains(got, name) {
					t.Errorf("table() = %q, want no row %q", got, name)
				}
			}
			if n := strings.Count(got, presentMark); n != entry.marks {
				t.Errorf("table() has %d marks, want %d", n, entry.marks)
			}
			if strings.Contains(got, "\x1b[") {
				t.Errorf("table() = %q, want no colors", got)
			}
		})
	}
}
