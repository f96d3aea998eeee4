package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/umbrella-scan/umbrella"
)

var (
	flagCheckSignatures []string
	flagCheckSets       []string
	flagCheckDecode     bool
)

var checkCmd = &cobra.Command{
	Use:   "check <paths...>",
	Short: "Print one infected verdict (true/false) per file",
	Long: `Check prints one line per path, in argument order: "true" when the file
matches a signature and "false" otherwise. Files that cannot be read are
reported false. Patterns given with --signature replace the catalog.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringArrayVar(&flagCheckSignatures, "signature", nil, "Regex signature (repeatable); replaces the catalog")
	checkCmd.Flags().StringSliceVar(&flagCheckSets, "set", nil, "Catalog signature sets to use (default: file)")
	checkCmd.Flags().BoolVar(&flagCheckDecode, "decode", false, "Also match inside base64 and hex blobs")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	opts, err := baseOptions()
	if err != nil {
		return err
	}
	if sets := trimAll(flagCheckSets); len(sets) > 0 {
		opts = append(opts, umbrella.WithSets(sets...))
	}
	if flagCheckDecode {
		opts = append(opts, umbrella.WithDecodeEmbedded(true))
	}
	s := umbrella.New(opts...)

	patterns := flagCheckSignatures
	if len(patterns) == 0 {
		sigs, err := s.Signatures()
		if err != nil {
			return err
		}
		for _, sig := range sigs {
			patterns = append(patterns, sig.Pattern)
		}
	}

	ctx, cancel := contextWithInterrupt()
	defer cancel()

	verdicts, err := s.CheckVirusFromFiles(ctx, args, patterns)
	if err != nil {
		return err
	}

	return writeOutput(cmd, func(w io.Writer) error {
		if isJSON() {
			return json.NewEncoder(w).Encode(verdicts)
		}
		for _, v := range verdicts {
			if _, err := fmt.Fprintln(w, strconv.FormatBool(v)); err != nil {
				return err
			}
		}
		return nil
	})
}
