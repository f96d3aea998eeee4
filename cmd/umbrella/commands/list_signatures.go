package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/umbrella-scan/umbrella"
)

var flagListSet string

var listSignaturesCmd = &cobra.Command{
	Use:     "list-signatures",
	Aliases: []string{"ls"},
	Short:   "List the signatures in the catalog",
	Args:    cobra.NoArgs,
	RunE:    runListSignatures,
}

func init() {
	listSignaturesCmd.Flags().StringVar(&flagListSet, "set", "", "Only list signatures in this set")
	rootCmd.AddCommand(listSignaturesCmd)
}

func runListSignatures(cmd *cobra.Command, args []string) error {
	opts, err := baseOptions()
	if err != nil {
		return err
	}
	if flagListSet != "" {
		opts = append(opts, umbrella.WithSets(flagListSet))
	}
	infos, err := umbrella.ListSignatures(opts...)
	if err != nil {
		return err
	}

	return writeOutput(cmd, func(w io.Writer) error {
		if isJSON() {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(infos)
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(w)
		tw.SetStyle(table.StyleLight)
		tw.AppendHeader(table.Row{"ID", "NAME", "SETS", "PATTERN"})
		for _, s := range infos {
			tw.AppendRow(table.Row{s.ID, s.Name, strings.Join(s.Sets, ","), s.Pattern})
		}
		tw.Render()
		_, err := fmt.Fprintf(w, "\n%d signatures loaded\n", len(infos))
		return err
	})
}
