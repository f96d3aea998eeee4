package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/umbrella-scan/umbrella"
)

var explainCmd = &cobra.Command{
	Use:   "explain <SIGNATURE_ID>",
	Short: "Show detailed information about a signature",
	Args:  cobra.ExactArgs(1),
	RunE:  runExplain,
}

func init() {
	rootCmd.AddCommand(explainCmd)
}

func runExplain(cmd *cobra.Command, args []string) error {
	opts, err := baseOptions()
	if err != nil {
		return err
	}
	d, err := umbrella.ExplainSignature(args[0], opts...)
	if err != nil {
		return err
	}

	return writeOutput(cmd, func(w io.Writer) error {
		if isJSON() {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(d)
		}
		printExplain(w, d, !noColor(cmd))
		return nil
	})
}

func printExplain(w io.Writer, d *umbrella.SignatureDetail, color bool) {
	bold, dim, red, green := lipgloss.NewStyle(), lipgloss.NewStyle(), lipgloss.NewStyle(), lipgloss.NewStyle()
	if color {
		bold = bold.Bold(true)
		dim = dim.Faint(true)
		red = red.Foreground(lipgloss.Color("1"))
		green = green.Foreground(lipgloss.Color("2"))
	}

	fmt.Fprintf(w, "\n%s %s\n", dim.Render("Signature:"), bold.Render(d.ID))
	fmt.Fprintf(w, "%s %s\n", dim.Render("Name:"), d.Name)
	fmt.Fprintf(w, "%s %s\n", dim.Render("Sets:"), strings.Join(d.Sets, ", "))
	if d.Reference != "" {
		fmt.Fprintf(w, "%s %s\n", dim.Render("Reference:"), d.Reference)
	}

	if d.Description != "" {
		fmt.Fprintf(w, "\n%s\n%s\n", bold.Render("Description:"), d.Description)
	}

	fmt.Fprintf(w, "\n%s\n  %s\n", bold.Render("Pattern:"), d.Pattern)

	if len(d.TruePositives) > 0 {
		fmt.Fprintf(w, "\n%s\n", bold.Render("True Positives:"))
		for _, ex := range d.TruePositives {
			fmt.Fprintf(w, "  %s %s\n", red.Render("✖"), ex)
		}
	}
	if len(d.FalsePositives) > 0 {
		fmt.Fprintf(w, "\n%s\n", bold.Render("False Positives:"))
		for _, ex := range d.FalsePositives {
			fmt.Fprintf(w, "  %s %s\n", green.Render("✔"), ex)
		}
	}

	if n := len(d.TruePositives) + len(d.FalsePositives); n > 0 {
		if len(d.SelfTestFailures) == 0 {
			fmt.Fprintf(w, "\n%s all %d examples behave as expected\n", green.Render("Self-test:"), n)
		} else {
			fmt.Fprintf(w, "\n%s\n", red.Render("Self-test failures:"))
			for _, f := range d.SelfTestFailures {
				fmt.Fprintf(w, "  %s\n", f)
			}
		}
	}

	fmt.Fprintln(w)
}
