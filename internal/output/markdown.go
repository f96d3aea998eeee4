package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/umbrella-scan/umbrella/internal/types"
)

// MarkdownFormatter outputs GitHub-flavored markdown for job summaries and
// PR comments.
type MarkdownFormatter struct {
	Verbose bool
	// Plain drops GitHub emoji shortcodes and inline HTML.
	Plain bool
}

func (f *MarkdownFormatter) Format(w io.Writer, result *types.ScanResult) error {
	infected := result.Filter(types.StatusInfected)
	unscannable := result.Filter(types.StatusUnscannable)

	if len(infected) == 0 {
		fmt.Fprintf(w, "### %sUmbrella Scan: no infected files\n\n", f.emoji(":white_check_mark:"))
	} else {
		fmt.Fprintf(w, "### %sUmbrella Scan: %d infected files\n\n", f.emoji(":rotating_light:"), len(infected))
	}
	f.printSummary(w, result)

	if len(infected) > 0 {
		fmt.Fprintf(w, "#### Infected (%d)\n\n", len(infected))
		tw := newMarkdownTable("File", "Line", "Signature", "Excerpt")
		for _, o := range infected {
			line := "-"
			if o.Line > 0 {
				line = fmt.Sprint(o.Line)
			}
			tw.AppendRow(table.Row{code(o.Path), line, code(o.Signature), truncate(o.Excerpt, previewWidth)})
		}
		fmt.Fprintf(w, "%s\n\n", tw.RenderMarkdown())
	}

	if len(unscannable) > 0 {
		fmt.Fprintf(w, "#### Unscannable (%d)\n\n", len(unscannable))
		tw := newMarkdownTable("File", "Code", "Error")
		for _, o := range unscannable {
			tw.AppendRow(table.Row{code(o.Path), o.ErrorCode, truncate(o.Error, previewWidth+20)})
		}
		fmt.Fprintf(w, "%s\n\n", tw.RenderMarkdown())
	}

	if f.Verbose {
		if clean := result.Filter(types.StatusClean); len(clean) > 0 {
			fmt.Fprintf(w, "#### Clean (%d)\n\n", len(clean))
			for _, o := range clean {
				fmt.Fprintf(w, "- %s\n", code(o.Path))
			}
			fmt.Fprintln(w)
		}
	}

	if f.Plain {
		fmt.Fprintf(w, "---\n_Scanned by umbrella %s_\n", ToolVersion)
	} else {
		fmt.Fprintf(w, "---\n<sub>Scanned by umbrella %s</sub>\n", ToolVersion)
	}
	return nil
}

func (f *MarkdownFormatter) printSummary(w io.Writer, result *types.ScanResult) {
	parts := []string{
		fmt.Sprintf("%d files", result.FilesScanned),
		fmt.Sprintf("%d signatures", result.SignaturesLoaded),
		fmt.Sprintf("%.2fs", result.Duration.Seconds()),
	}
	if result.Target != "" {
		parts = append([]string{fmt.Sprintf("**Target:** %s", code(result.Target))}, parts...)
	}
	fmt.Fprintf(w, "> %s\n\n", strings.Join(parts, " · "))
	fmt.Fprintf(w, "**%d infected** · **%d unscannable** · **%d clean**\n\n",
		result.Count(types.StatusInfected),
		result.Count(types.StatusUnscannable),
		result.Count(types.StatusClean),
	)
}

func (f *MarkdownFormatter) emoji(shortcode string) string {
	if f.Plain {
		return ""
	}
	return shortcode + " "
}

func newMarkdownTable(header ...string) table.Writer {
	tw := table.NewWriter()
	row := make(table.Row, len(header))
	for i, h := range header {
		row[i] = h
	}
	tw.AppendHeader(row)
	return tw
}

func code(s string) string {
	if s == "" {
		return ""
	}
	return "`" + strings.ReplaceAll(s, "`", "'") + "`"
}
