// Package output renders scan results as a terminal report, JSON, SARIF,
// Markdown, or a standalone HTML page.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/umbrella-scan/umbrella/internal/types"
)

// Formatter writes a scan result to w.
type Formatter interface {
	Format(w io.Writer, result *types.ScanResult) error
}

// Formats lists the names accepted by ForName.
var Formats = []string{"terminal", "json", "sarif", "markdown", "html"}

// ForName returns the formatter registered under name. The terminal
// formatter takes noColor and verbose; the others ignore them.
func ForName(name string, noColor, verbose bool) (Formatter, error) {
	switch strings.ToLower(name) {
	case "", "terminal":
		return &TerminalFormatter{NoColor: noColor, Verbose: verbose}, nil
	case "json":
		return &JSONFormatter{}, nil
	case "sarif":
		return &SARIFFormatter{}, nil
	case "markdown", "md":
		return &MarkdownFormatter{Verbose: verbose}, nil
	case "html":
		return &HTMLFormatter{Verbose: verbose}, nil
	default:
		return nil, fmt.Errorf("unknown format %q (valid: %s)", name, strings.Join(Formats, ", "))
	}
}
