package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/umbrella-scan/umbrella/internal/types"
)

const (
	barWidth     = 40
	lineWidth    = 72
	sigWidth     = 32
	previewWidth = 60
)

// ColorEnabled reports whether f is a terminal that should receive color.
// NO_COLOR disables color regardless of the terminal.
func ColorEnabled(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

type palette struct {
	Bold        lipgloss.Style
	Dim         lipgloss.Style
	Path        lipgloss.Style
	Location    lipgloss.Style
	Infected    lipgloss.Style
	Unscannable lipgloss.Style
	Clean       lipgloss.Style
	Note        lipgloss.Style
}

func newPalette(color bool) palette {
	if !color {
		plain := lipgloss.NewStyle()
		return palette{plain, plain, plain, plain, plain, plain, plain, plain}
	}
	return palette{
		Bold:        lipgloss.NewStyle().Bold(true),
		Dim:         lipgloss.NewStyle().Faint(true),
		Path:        lipgloss.NewStyle().Bold(true).Underline(true),
		Location:    lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		Infected:    lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		Unscannable: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		Clean:       lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		Note:        lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	}
}

// TerminalFormatter prints a triage report: infected files first, then
// files that could not be read, then (verbose only) clean files.
type TerminalFormatter struct {
	NoColor bool
	Verbose bool

	p palette
}

func (f *TerminalFormatter) Format(w io.Writer, result *types.ScanResult) error {
	f.p = newPalette(!f.NoColor && os.Getenv("NO_COLOR") == "")

	f.printHeader(w, result)

	infected := result.Filter(types.StatusInfected)
	unscannable := result.Filter(types.StatusUnscannable)

	if len(result.Outcomes) == 0 {
		fmt.Fprintf(w, "\n  %s No files to scan.\n", f.p.Dim.Render("–"))
	} else {
		f.printDashboard(w, result)
		if len(infected) == 0 && len(unscannable) == 0 {
			fmt.Fprintf(w, "\n  %s No infected files found.\n", f.p.Clean.Render("✔"))
		}
	}

	if len(infected) > 0 {
		fmt.Fprintf(w, "\n%s\n", f.p.Bold.Render(sectionHeader(fmt.Sprintf("INFECTED (%d)", len(infected)))))
		for _, o := range infected {
			f.printInfected(w, o)
		}
	}
	if len(unscannable) > 0 {
		fmt.Fprintf(w, "\n%s\n", f.p.Bold.Render(sectionHeader(fmt.Sprintf("UNSCANNABLE (%d)", len(unscannable)))))
		for _, o := range unscannable {
			f.printUnscannable(w, o)
		}
	}
	if f.Verbose {
		if clean := result.Filter(types.StatusClean); len(clean) > 0 {
			fmt.Fprintf(w, "\n%s\n\n", f.p.Bold.Render(sectionHeader(fmt.Sprintf("CLEAN (%d)", len(clean)))))
			for _, o := range clean {
				fmt.Fprintf(w, "    %s %s%s\n", f.p.Clean.Render("✔"), o.Path, f.cachedTag(o))
			}
		}
	}

	f.printFooter(w, result)
	return nil
}

func separator() string {
	return strings.Repeat("─", lineWidth)
}

func sectionHeader(title string) string {
	prefix := "── " + title + " "
	remaining := max(lineWidth-utf8.RuneCountInString(prefix), 0)
	return prefix + strings.Repeat("─", remaining)
}

func (f *TerminalFormatter) printHeader(w io.Writer, result *types.ScanResult) {
	sep := f.p.Dim.Render(separator())
	fmt.Fprintf(w, "\n%s\n", sep)
	fmt.Fprintf(w, "  %s\n", f.p.Bold.Render("UMBRELLA SCAN RESULTS"))

	var parts []string
	if result.Target != "" {
		parts = append(parts, "Target: "+result.Target)
	}
	parts = append(parts,
		fmt.Sprintf("%d files", result.FilesScanned),
		fmt.Sprintf("%d signatures", result.SignaturesLoaded),
	)
	if result.Duration > 0 {
		parts = append(parts, fmt.Sprintf("%.2fs", result.Duration.Seconds()))
	}
	fmt.Fprintf(w, "  %s\n", strings.Join(parts, "  ·  "))
	fmt.Fprintf(w, "%s\n", sep)
}

func (f *TerminalFormatter) printDashboard(w io.Writer, result *types.ScanResult) {
	rows := []struct {
		status types.Status
		style  lipgloss.Style
	}{
		{types.StatusInfected, f.p.Infected},
		{types.StatusUnscannable, f.p.Unscannable},
		{types.StatusClean, f.p.Clean},
	}
	total := len(result.Outcomes)

	fmt.Fprintln(w)
	for _, row := range rows {
		c := result.Count(row.status)
		if c == 0 {
			continue
		}
		label := fmt.Sprintf("  %-12s", strings.ToUpper(row.status.String()))
		fmt.Fprintf(w, "%s %s %4d\n", f.p.Bold.Render(label), f.renderBar(c, total, row.style), c)
	}
}

func (f *TerminalFormatter) renderBar(count, total int, style lipgloss.Style) string {
	if total == 0 {
		return f.p.Dim.Render(strings.Repeat("░", barWidth))
	}
	filled := count * barWidth / total
	if filled == 0 && count > 0 {
		filled = 1
	}
	if filled >= barWidth {
		filled = barWidth - 1
	}
	return style.Render(strings.Repeat("█", filled)) +
		f.p.Dim.Render(strings.Repeat("░", barWidth-filled))
}

func (f *TerminalFormatter) printInfected(w io.Writer, o types.Outcome) {
	loc := o.Path
	if o.Line > 0 {
		loc = fmt.Sprintf("%s:%d", o.Path, o.Line)
	}
	sig := fmt.Sprintf("%-*s", sigWidth, truncate(o.Signature, sigWidth))

	decoded := ""
	if o.Decoded != "" {
		decoded = " " + f.p.Note.Render("[decoded "+o.Decoded+"]")
	}
	fmt.Fprintf(w, "\n    %s %s %s%s%s\n",
		f.p.Infected.Render("✖"),
		f.p.Bold.Render(sig),
		f.p.Location.Render(loc),
		decoded,
		f.cachedTag(o),
	)
	if o.Excerpt != "" {
		fmt.Fprintf(w, "      %s %s\n", f.p.Dim.Render("│"), f.p.Dim.Render(truncate(o.Excerpt, previewWidth)))
	}
	if f.Verbose && o.Pattern != "" && o.Pattern != o.Signature {
		fmt.Fprintf(w, "      %s %s\n", f.p.Dim.Render("│"), f.p.Note.Render("pattern: "+o.Pattern))
	}
}

func (f *TerminalFormatter) printUnscannable(w io.Writer, o types.Outcome) {
	fmt.Fprintf(w, "\n    %s %s\n", f.p.Unscannable.Render("○"), f.p.Path.Render(o.Path))
	reason := o.Error
	if o.ErrorCode != "" {
		reason = o.ErrorCode + ": " + reason
	}
	if reason != "" {
		fmt.Fprintf(w, "      %s %s\n", f.p.Dim.Render("│"), f.p.Note.Render(truncate(reason, previewWidth+20)))
	}
}

func (f *TerminalFormatter) cachedTag(o types.Outcome) string {
	if !o.Cached {
		return ""
	}
	return " " + f.p.Dim.Render("[cached]")
}

func (f *TerminalFormatter) printFooter(w io.Writer, result *types.ScanResult) {
	sep := f.p.Dim.Render(separator())
	fmt.Fprintf(w, "\n%s\n", sep)

	parts := []string{
		fmt.Sprintf("%d files scanned", result.FilesScanned),
		fmt.Sprintf("%d infected", result.Count(types.StatusInfected)),
		fmt.Sprintf("%d unscannable", result.Count(types.StatusUnscannable)),
		fmt.Sprintf("%d signatures", result.SignaturesLoaded),
	}
	if result.Duration > 0 {
		parts = append(parts, fmt.Sprintf("%.2fs", result.Duration.Seconds()))
	}
	fmt.Fprintf(w, "  %s\n", strings.Join(parts, " · "))
	fmt.Fprintf(w, "%s\n", sep)
}

// truncate flattens s to one line and cuts it to maxLen runes.
func truncate(s string, maxLen int) string {
	s = strings.NewReplacer("\r", "", "\n", " ", "\t", " ").Replace(s)
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	return string(r[:maxLen-3]) + "..."
}
