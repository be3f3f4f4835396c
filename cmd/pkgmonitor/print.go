package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"

	"github.com/Debian/pkgmonitor/internal/lookup"
)

const (
	indentUnit  = "  "
	presentMark = "X"
)

// printer renders a lookup.Report either as per-repository lists or as one
// table.
type printer struct {
	w       io.Writer
	ok      bool
	missing bool
	indent  bool
	color   bool

	green, red, yellow lipgloss.Style
}

func newPrinter(w io.Writer, ok, missing, indent, color bool) *printer {
	r := lipgloss.NewRenderer(w)
	// Colors are requested explicitly, so they are emitted even when w is
	// not a terminal.
	r.SetColorProfile(termenv.ANSI)
	return &printer{
		w:       w,
		ok:      ok,
		missing: missing,
		indent:  indent,
		color:   color,
		green:   r.NewStyle().Foreground(lipgloss.Color("2")),
		red:     r.NewStyle().Foreground(lipgloss.Color("1")),
		yellow:  r.NewStyle().Foreground(lipgloss.Color("3")),
	}
}

func (p *printer) paint(style lipgloss.Style, s string) string {
	if !p.color {
		return s
	}
	return style.Render(s)
}

func (p *printer) section(header string, style lipgloss.Style, names []string) {
	prefix := ""
	if p.indent {
		prefix = indentUnit
	}
	if p.ok && p.missing {
		fmt.Fprintln(p.w, prefix+header)
		prefix += prefix
	}
	for _, name := range names {
		fmt.Fprintln(p.w, p.paint(style, prefix+name))
	}
}

// list prints, per repository, the present names if ok is set and the missing
// names if missing is set. Repository names are only printed when there is
// more than one.
func (p *printer) list(report *lookup.Report) {
	for _, res := range report.Repos {
		if len(report.Repos) > 1 {
			fmt.Fprintln(p.w, res.Repo)
		}
		if p.ok {
			p.section("AVAILABLE:", p.green, res.Present)
		}
		if p.missing {
			p.section("MISSING:", p.red, res.Missing)
		}
	}
}

// table prints one row per name with a mark per repository holding it. Names
// present in some but not all repositories are always shown.
func (p *printer) table(report *lookup.Report) {
	t := table.New().
		Border(lipgloss.ASCIIBorder()).
		Headers(append([]string{"Package"}, report.RepoNames()...)...).
		StyleFunc(func(row, col int) lipgloss.Style {
			return lipgloss.NewStyle().Padding(0, 1)
		})
	for _, row := range report.Rows {
		var style lipgloss.Style
		switch row.Class {
		case lookup.Mixed:
			style = p.yellow
		case lookup.Present:
			if !p.ok {
				continue
			}
			style = p.green
		case lookup.Absent:
			if !p.missing {
				continue
			}
			style = p.red
		}
		cells := make([]string, 0, len(row.Present)+1)
		cells = append(cells, p.paint(style, row.Name))
		for _, present := range row.Present {
			if present {
				cells = append(cells, presentMark)
			} else {
				cells = append(cells, "")
			}
		}
		t.Row(cells...)
	}
	fmt.Fprintln(p.w, strings.TrimRight(t.String(), "\n"))
}
