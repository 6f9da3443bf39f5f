// Package report renders run summaries and output drift for the terminal.
package report

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/tristendillon/dtsbundle/core/models"
)

// Summary renders one row per output plus a totals footer.
func Summary(s *models.Summary) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false

	tbl.AppendHeader(table.Row{"Output", "Source", "In", "Out", "Imports", "Warnings", "Status"})

	var in, out uint64
	for _, f := range s.Files {
		in += uint64(f.InputBytes)
		out += uint64(f.OutputBytes)
		tbl.AppendRow(table.Row{
			f.OutputPath,
			f.Source,
			humanize.Bytes(uint64(f.InputBytes)),
			humanize.Bytes(uint64(f.OutputBytes)),
			f.Imports,
			f.Diagnostics,
			status(f),
		})
	}

	tbl.AppendFooter(table.Row{
		fmt.Sprintf("%d outputs", len(s.Files)),
		"",
		humanize.Bytes(in),
		humanize.Bytes(out),
		"",
		"",
		fmt.Sprintf("%d failed", s.Failed),
	})

	return tbl.Render()
}

func status(f models.FileResult) string {
	switch {
	case f.Err != nil:
		return "failed"
	case f.Changed:
		if f.CacheHit {
			return "written (cached)"
		}
		return "written"
	default:
		return "unchanged"
	}
}

// LineDiff renders a line-oriented diff of two texts with "-", "+" and " "
// prefixes. Identical texts yield an empty string.
func LineDiff(oldText, newText string) string {
	if oldText == newText {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(prefix)
			sb.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				sb.WriteString("\n")
			}
		}
	}
	return sb.String()
}
